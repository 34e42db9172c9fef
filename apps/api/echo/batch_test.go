package echoapi_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/batch"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_batchApi_create(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, env, admin)

	body := []byte(`{"name":"Cohort 7","start_date":"2024-01-01","end_date":"2024-06-30","price":"500.00"}`)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/batches", body: body, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "Admin required", method: http.MethodPost, path: "/v1/batches", body: body, token: getToken(t, env, stdnt), wantCode: http.StatusForbidden, wantData: marshalObj(t, errPermDenied)},
		{
			name: "end before start", method: http.MethodPost, path: "/v1/batches", token: adminToken,
			body:     []byte(`{"name":"Cohort 8","start_date":"2024-06-30","end_date":"2024-01-01","price":"500.00"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"end_date": "end date must be after start date"}),
		},
		{
			name: "end equals start", method: http.MethodPost, path: "/v1/batches", token: adminToken,
			body:     []byte(`{"name":"Cohort 8","start_date":"2024-01-01","end_date":"2024-01-01","price":"500.00"}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"end_date": "end date must be after start date"}),
		},
		{
			name: "negative price", method: http.MethodPost, path: "/v1/batches", token: adminToken,
			body:     []byte(`{"name":"Cohort 8","start_date":"2024-01-01","end_date":"2024-06-30","price":"-1"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	var slugs []string
	for i := 0; i < 3; i++ {
		rec := serve(app, http.MethodPost, "/v1/batches", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var b batch.Batch
		decodeBody(t, rec, &b)
		assert.Equal(t, "Cohort 7", b.Name)
		assert.True(t, core.MoneyEqual(testutil.Dec("500"), b.Price))
		assert.Equal(t, admin.ID, b.CreatedBy.String)
		slugs = append(slugs, b.Slug)
	}
	assert.Equal(t, []string{"cohort-7", "cohort-7-1", "cohort-7-2"}, slugs)

	t.Run("staff notified", func(t *testing.T) {
		ntfs, err := env.NotificationSvc.Query(ctxBg, admin.ID, &notification.QueryFilter{Type: notification.TypeBatchCreated})
		require.NoError(t, err)
		assert.Len(t, ntfs, 3)
	})
}

func Test_batchApi_queryAndUpdate(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, env, admin)

	today := core.Today()
	day := 24 * time.Hour
	running := testutil.CreateBatch(t, env.BatchRepo, "Running", "running", core.DateOf(today.Add(-10*day)), core.DateOf(today.Add(10*day)), "100")
	upcoming := testutil.CreateBatch(t, env.BatchRepo, "Upcoming", "upcoming", core.DateOf(today.Add(10*day)), core.DateOf(today.Add(20*day)), "200")
	past := testutil.CreateBatch(t, env.BatchRepo, "Past", "past", core.DateOf(today.Add(-20*day)), core.DateOf(today.Add(-10*day)), "300")

	runHTTPTests(t, app, []httpTest{
		{name: "status=active", path: "/v1/batches?status=active", token: adminToken, wantData: marshalList(t, running)},
		{name: "status=upcoming", path: "/v1/batches?status=UPCOMING", token: adminToken, wantData: marshalList(t, upcoming)},
		{name: "order by -start_date", path: "/v1/batches?ordering=-start_date", token: adminToken, wantData: marshalList(t, upcoming, running, past)},
		{name: "name", path: "/v1/batches?name=pas", token: adminToken, wantData: marshalList(t, past)},
		{name: "retrieve", path: "/v1/batches/" + past.ID, token: adminToken, wantData: marshalObj(t, past)},
		{name: "unknown", path: "/v1/batches/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "batch not found"})},
		{
			name: "update breaks date range", method: http.MethodPut, path: "/v1/batches/" + past.ID, token: adminToken,
			body: []byte(`{"end_date":"2000-01-01"}`), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("update keeps slug", func(t *testing.T) {
		rec := serve(app, http.MethodPut, "/v1/batches/"+running.ID, adminToken, []byte(`{"name":"Renamed","price":"150.5"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var b batch.Batch
		decodeBody(t, rec, &b)
		assert.Equal(t, "Renamed", b.Name)
		assert.Equal(t, "running", b.Slug)
		assert.True(t, core.MoneyEqual(testutil.Dec("150.50"), b.Price))
		assert.Equal(t, running.StartDate, b.StartDate)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(app, http.MethodDelete, "/v1/batches/"+past.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = serve(app, http.MethodGet, "/v1/batches/"+past.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_courseApi(t *testing.T) {
	env, app := newTestApp(t)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, env, admin)
	stdntToken := getToken(t, env, stdnt)

	body := []byte(`{"name":"Go Programming","duration":"12 weeks","price":"99.99"}`)

	rec := serve(app, http.MethodPost, "/v1/courses", stdntToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(app, http.MethodPost, "/v1/courses", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c course.Course
	decodeBody(t, rec, &c)
	assert.Equal(t, "go-programming", c.Slug)

	rec = serve(app, http.MethodPost, "/v1/courses", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var dup course.Course
	decodeBody(t, rec, &dup)
	assert.Equal(t, "go-programming-1", dup.Slug)

	runHTTPTests(t, app, []httpTest{
		{name: "students can browse", path: "/v1/courses?ordering=slug", token: stdntToken, wantData: marshalList(t, c, dup)},
		{name: "students can read", path: "/v1/courses/" + c.ID, token: stdntToken, wantData: marshalObj(t, c)},
		{name: "students cannot update", method: http.MethodPut, path: "/v1/courses/" + c.ID, token: stdntToken, body: []byte(`{"name":"x"}`), wantCode: http.StatusForbidden},
		{name: "students cannot delete", method: http.MethodDelete, path: "/v1/courses/" + c.ID, token: stdntToken, wantCode: http.StatusForbidden},
		{name: "admin deletes", method: http.MethodDelete, path: "/v1/courses/" + dup.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/v1/courses/" + dup.ID, token: adminToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "course not found"})},
	})
}
