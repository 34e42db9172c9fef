package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/payment"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/testutil"
)

var ctxBg = context.Background()

func TestDB_deleteRules(t *testing.T) {
	db := testutil.PrepareDB(t)
	users := inmemdb.NewUserRepository(db)
	batches := inmemdb.NewBatchRepository(db)
	students := inmemdb.NewStudentRepository(db)
	payments := inmemdb.NewPaymentRepository(db)
	notifications := inmemdb.NewNotificationRepository(db)

	admin := testutil.CreateUser(t, users, "Admin", "admin_one", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	hero := testutil.CreateUser(t, users, "Hero", "hero_one", "hero@test.cd", "", []string{user.RoleStudent}, true)
	b := testutil.CreateBatch(t, batches, "Cohort 7", "cohort-7", core.NewDate(2024, time.January, 8), core.NewDate(2024, time.June, 28), "500")
	p := testutil.CreateProfile(t, students, hero.ID, "STD-AAAAAA")
	e := testutil.CreateEnrollment(t, students, hero.ID, b.ID, "500", "0")

	plan := testutil.CreatePlan(t, payments, e.ID, "3x150", "450", 3)

	adminNtf, err := notifications.CreateAdminNotification(ctxBg, notification.Notification{
		EventID: "ev-1", RecipientID: admin.ID, Type: notification.TypeStudentEnrolled,
		RelatedUserID: null.StringFrom(hero.ID), RelatedBatchID: null.StringFrom(b.ID),
	})
	require.NoError(t, err)
	_, err = notifications.CreateNotification(ctxBg, notification.Notification{EventID: "ev-2", RecipientID: hero.ID, Type: notification.TypeNewSignup})
	require.NoError(t, err)

	require.NoError(t, batches.DeleteBatch(ctxBg, b.ID))
	_, err = students.GetEnrollment(ctxBg, e.ID)
	assert.Equal(t, student.ErrEnrollmentNotFound, err, "enrollments follow their batch")
	_, err = payments.GetPlan(ctxBg, plan.ID)
	assert.Equal(t, payment.ErrPlanNotFound, err, "plans follow their enrollment")

	got, err := notifications.GetAdminNotification(ctxBg, adminNtf.ID)
	require.NoError(t, err)
	assert.False(t, got.RelatedBatchID.Valid)

	cnt, err := users.DeleteUsersByID(ctxBg, hero.ID, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt)

	_, err = students.GetProfile(ctxBg, p.ID)
	assert.Equal(t, student.ErrProfileNotFound, err)
	heroNtfs, err := notifications.QueryNotifications(ctxBg, &notification.QueryFilter{RecipientID: hero.ID})
	require.NoError(t, err)
	assert.Empty(t, heroNtfs)

	got, err = notifications.GetAdminNotification(ctxBg, adminNtf.ID)
	require.NoError(t, err)
	assert.False(t, got.RelatedUserID.Valid, "admin inbox keeps the notification")

	db.Reset()
	_, err = users.GetUser(ctxBg, user.GetFilter{ID: admin.ID})
	assert.Equal(t, user.ErrNotFound, err)
}

func TestUserRepository_QueryUsers(t *testing.T) {
	db := testutil.PrepareDB(t)
	users := inmemdb.NewUserRepository(db)
	now := time.Now().UTC()

	zed := testutil.CreateUser(t, users, "Zed", "zed_one", "zed@test.cd", "", []string{user.RoleInstructor}, true, now.Add(-2*time.Hour))
	amy := testutil.CreateUser(t, users, "Amy", "amy_one", "amy@test.cd", "", []string{user.RoleAdminFinance}, false, now.Add(-time.Hour))
	bob := testutil.CreateUser(t, users, "Bob", "bob_one", "bob@test.cd", "", []string{user.RoleStudent}, true, now)

	ids := func(usrs []user.User) []string {
		out := make([]string, 0, len(usrs))
		for _, u := range usrs {
			out = append(out, u.ID)
		}
		return out
	}

	got, err := users.QueryUsers(ctxBg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID, amy.ID, zed.ID}, ids(got), "newest first")

	got, err = users.QueryUsers(ctxBg, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{amy.ID, bob.ID, zed.ID}, ids(got))

	got, err = users.QueryUsers(ctxBg, &user.QueryFilter{Roles: []string{"ADMIN:", "instructor:"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{amy.ID, zed.ID}, ids(got))

	active := true
	got, err = users.QueryUsers(ctxBg, &user.QueryFilter{Search: "TEST.CD", IsActive: &active, CreatedFrom: now.Add(-90 * time.Minute)}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, ids(got))
}
