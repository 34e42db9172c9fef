package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_studentApi_ownProfile(t *testing.T) {
	env, app := newTestApp(t)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	token := getToken(t, env, stdnt)

	rec := serve(app, http.MethodGet, "/v1/students/profile", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"student profile not found"}`, rec.Body.String())

	// user_id is always the acting user's
	rec = serve(app, http.MethodPost, "/v1/students/profile", token, []byte(`{"user_id":"somebody-else","gender":"FEMALE","city":"Kinshasa"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p student.Profile
	decodeBody(t, rec, &p)
	assert.Equal(t, stdnt.ID, p.UserID)
	assert.Regexp(t, `^STD-[0-9A-F]{6}$`, p.StudentID)
	assert.Equal(t, "FEMALE", p.Gender.String)

	rec = serve(app, http.MethodPost, "/v1/students/profile", token, []byte(`{}`))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"user_id":"this user already has a student profile"}`, rec.Body.String())

	rec = serve(app, http.MethodPut, "/v1/students/profile", token, []byte(`{"phone_number":"+243000000","gender":"OTHER"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(app, http.MethodPut, "/v1/students/profile", token, []byte(`{"phone_number":"+243000000"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated student.Profile
	decodeBody(t, rec, &updated)
	assert.Equal(t, p.StudentID, updated.StudentID, "student ID is assigned once")
	assert.Equal(t, "+243000000", updated.PhoneNumber.String)
	assert.Equal(t, "Kinshasa", updated.City.String)

	b := testutil.CreateBatch(t, env.BatchRepo, "Cohort 1", "cohort-1", core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 30), "500")
	e := testutil.CreateEnrollment(t, env.StudentRepo, stdnt.ID, b.ID, "500", "0")

	rec = serve(app, http.MethodGet, "/v1/students/profile", token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var withEnrollments student.ProfileWithEnrollments
	decodeBody(t, rec, &withEnrollments)
	assert.Equal(t, p.ID, withEnrollments.ID)
	require.Len(t, withEnrollments.Enrollments, 1)
	assert.Equal(t, e.ID, withEnrollments.Enrollments[0].ID)
}

func Test_studentApi_profiles(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, env, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "Admin required", path: "/v1/students/profiles", token: getToken(t, env, stdnt), wantCode: http.StatusForbidden, wantData: marshalObj(t, errPermDenied)},
		{name: "empty", path: "/v1/students/profiles", token: adminToken, wantData: marshalList(t)},
		{name: "user_id required", method: http.MethodPost, path: "/v1/students/profiles", token: adminToken, body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"user_id": "this field is required"})},
		{name: "unknown user", method: http.MethodPost, path: "/v1/students/profiles", token: adminToken, body: []byte(`{"user_id":"nope"}`), wantCode: http.StatusNotFound},
	})

	rec := serve(app, http.MethodPost, "/v1/students/profiles", adminToken, marshalObj(t, student.NewProfile{UserID: stdnt.ID}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p student.Profile
	decodeBody(t, rec, &p)

	runHTTPTests(t, app, []httpTest{
		{name: "search by student ID prefix", path: "/v1/students/profiles?search=" + p.StudentID[:6], token: adminToken, wantData: marshalList(t, p)},
		{name: "search (unknown)", path: "/v1/students/profiles?search=XYZ", token: adminToken, wantData: marshalList(t)},
		{name: "retrieve", path: "/v1/students/profiles/" + p.ID, token: adminToken, wantData: marshalObj(t, p)},
		{name: "delete", method: http.MethodDelete, path: "/v1/students/profiles/" + p.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/v1/students/profiles/" + p.ID, token: adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_studentApi_enroll(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	b := testutil.CreateBatch(t, env.BatchRepo, "Cohort 7", "cohort-7", core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 30), "500")
	c := testutil.CreateCourse(t, env.CourseRepo, "Go", "go", "500")
	adminToken := getToken(t, env, admin)

	body := func(total, discount string) []byte {
		return []byte(fmt.Sprintf(
			`{"student_id":%q,"batch_id":%q,"course_id":%q,"total_fee":%q,"discount_amount":%q}`,
			stdnt.ID, b.ID, c.ID, total, discount,
		))
	}

	runHTTPTests(t, app, []httpTest{
		{name: "Admin required", method: http.MethodPost, path: "/v1/enrollments", token: getToken(t, env, stdnt), body: body("500.00", "50.00"), wantCode: http.StatusForbidden},
		{name: "total_fee required", method: http.MethodPost, path: "/v1/enrollments", token: adminToken, body: []byte(fmt.Sprintf(`{"student_id":%q,"batch_id":%q}`, stdnt.ID, b.ID)), wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"total_fee": "this field is required"})},
		{name: "negative discount", method: http.MethodPost, path: "/v1/enrollments", token: adminToken, body: body("500.00", "-1"), wantCode: http.StatusBadRequest},
		{name: "unknown batch", method: http.MethodPost, path: "/v1/enrollments", token: adminToken, body: []byte(fmt.Sprintf(`{"student_id":%q,"batch_id":"nope","total_fee":"1"}`, stdnt.ID)), wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "batch not found"})},
	})

	rec := serve(app, http.MethodPost, "/v1/enrollments", adminToken, body("500.00", "50.00"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e student.Enrollment
	decodeBody(t, rec, &e)
	assert.Equal(t, "450.00", e.FinalFee.StringFixed(2))
	assert.Equal(t, student.StatusActive, e.Status)
	assert.Equal(t, c.ID, e.CourseID.String)
	assert.Equal(t, core.Today(), e.EnrollmentDate)

	t.Run("discount above total is kept", func(t *testing.T) {
		rec := serve(app, http.MethodPost, "/v1/enrollments", adminToken, body("100", "150"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var e student.Enrollment
		decodeBody(t, rec, &e)
		assert.Equal(t, "-50.00", e.FinalFee.StringFixed(2))
	})

	t.Run("fee recomputed on update", func(t *testing.T) {
		rec := serve(app, http.MethodPut, "/v1/enrollments/"+e.ID, adminToken, []byte(`{"discount_amount":"125.555","status":"SUSPENDED"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var updated student.Enrollment
		decodeBody(t, rec, &updated)
		assert.Equal(t, "125.56", updated.DiscountAmount.StringFixed(2))
		assert.Equal(t, "374.44", updated.FinalFee.StringFixed(2))
		assert.Equal(t, student.StatusSuspended, updated.Status)
	})

	t.Run("staff notified & admin emailed", func(t *testing.T) {
		ntfs, err := env.NotificationSvc.QueryAdmin(ctxBg, admin.ID, nil)
		require.NoError(t, err)
		require.Len(t, ntfs, 2)
		assert.Equal(t, notification.TypeStudentEnrolled, ntfs[0].Type)
		assert.Equal(t, "Hero has enrolled in batch 'Cohort 7'.", ntfs[0].Message)

		var subjects []string
		for _, msg := range env.Email.SentMessages() {
			subjects = append(subjects, msg.Subject)
		}
		assert.Contains(t, subjects, "New Student Enrollment: Hero")
	})
}

func Test_studentApi_enrollmentOwnership(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	b := testutil.CreateBatch(t, env.BatchRepo, "Cohort 1", "cohort-1", core.NewDate(2024, 1, 1), core.NewDate(2024, 6, 30), "500")
	ownerEnrl := testutil.CreateEnrollment(t, env.StudentRepo, owner.ID, b.ID, "500", "0")
	otherEnrl := testutil.CreateEnrollment(t, env.StudentRepo, other.ID, b.ID, "500", "100")

	ownerToken := getToken(t, env, owner)

	runHTTPTests(t, app, []httpTest{
		{name: "owner reads", path: "/v1/enrollments/" + ownerEnrl.ID, token: ownerToken, wantData: marshalObj(t, ownerEnrl)},
		{name: "other student forbidden", path: "/v1/enrollments/" + otherEnrl.ID, token: ownerToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errPermDenied)},
		{name: "admin reads", path: "/v1/enrollments/" + otherEnrl.ID, token: getToken(t, env, admin), wantData: marshalObj(t, otherEnrl)},
		{name: "unknown", path: "/v1/enrollments/nope", token: ownerToken, wantCode: http.StatusNotFound},
		{name: "list is scoped to the student", path: "/v1/enrollments?student_id=" + other.ID, token: ownerToken, wantData: marshalList(t, ownerEnrl)},
		{name: "owner cannot update", method: http.MethodPut, path: "/v1/enrollments/" + ownerEnrl.ID, token: ownerToken, body: []byte(`{"discount_amount":"500"}`), wantCode: http.StatusForbidden},
		{name: "owner cannot delete", method: http.MethodDelete, path: "/v1/enrollments/" + ownerEnrl.ID, token: ownerToken, wantCode: http.StatusForbidden},
	})
}
