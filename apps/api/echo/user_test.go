package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/testutil"
)

func Test_userApi_query(t *testing.T) {
	env, app := newTestApp(t)

	now := time.Now()
	usr := testutil.CreateUser(t, env.UserRepo, "User", "awe", "awe@test.cd", "", nil, true, now.Add(1*time.Hour))
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true, now.Add(3*time.Hour))
	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false, now.Add(4*time.Hour))

	adminToken := getToken(t, env, admin)
	path := func(v url.Values) string { return "/v1/users?" + v.Encode() }

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "Admin required", path: "/v1/users", token: getToken(t, env, stdnt), wantCode: http.StatusForbidden, wantData: marshalObj(t, errPermDenied)},
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marshalList(t, naughty, admin, stdnt, usr)},
		{name: "search (unknown)", path: path(url.Values{"search": {"lol"}}), token: adminToken, wantData: marshalList(t)},
		{name: "search=HER", path: path(url.Values{"search": {"HER"}}), token: adminToken, wantData: marshalList(t, stdnt)},
		{name: "role=student:", path: path(url.Values{"role": {user.RoleStudent}}), token: adminToken, wantData: marshalList(t, naughty, stdnt)},
		{name: "is_active=false", path: path(url.Values{"is_active": {"false"}}), token: adminToken, wantData: marshalList(t, naughty)},
		{name: "order by name", path: path(url.Values{"ordering": {"name"}}), token: adminToken, wantData: marshalList(t, admin, stdnt, naughty, usr)},
		{name: "unknown ordering field ignored", path: path(url.Values{"ordering": {"password_hash"}}), token: adminToken, wantData: marshalList(t, naughty, admin, stdnt, usr)},
		{name: "roles", path: "/v1/users/roles", token: adminToken, wantData: marshalObj(t, user.Roles)},
	})
}

func Test_userApi_signup(t *testing.T) {
	env, app := newTestApp(t)
	testutil.CreateUser(t, env.UserRepo, "Taken", "taken_name", "taken@test.cd", "", nil, true)

	rec := serve(app, http.MethodPost, "/v1/users/signup", "", []byte(`{
		"name": "New Student", "username": "newstudent", "email": "New@Test.cd",
		"password": "K7#mQz!x2Lp", "password_confirm": "K7#mQz!x2Lp", "roles": ["admin:"]
	}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var usr user.User
	decodeBody(t, rec, &usr)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "new@test.cd", usr.Email)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles, "signup cannot grant staff roles")
	assert.True(t, usr.IsActive)

	t.Run("welcome notification", func(t *testing.T) {
		ntfs, err := env.NotificationSvc.Query(ctxBg, usr.ID, nil)
		require.NoError(t, err)
		require.Len(t, ntfs, 1)
		assert.Equal(t, notification.TypeNewSignup, ntfs[0].Type)
		assert.Equal(t, "Hello New Student, your account has been successfully created.", ntfs[0].Message)
	})

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{name: "username taken", body: `{"name":"A","username":"TAKEN_NAME","password":"K7#mQz!x2Lp","password_confirm":"K7#mQz!x2Lp"}`, wantField: "username"},
		{name: "email taken", body: `{"name":"A","email":"taken@test.cd","password":"K7#mQz!x2Lp","password_confirm":"K7#mQz!x2Lp"}`, wantField: "email"},
		{name: "passwords mismatch", body: `{"name":"A","username":"another","password":"K7#mQz!x2Lp","password_confirm":"K7#mQz!x2Lq"}`, wantField: "password_confirm"},
		{name: "name required", body: `{"username":"another","password":"K7#mQz!x2Lp","password_confirm":"K7#mQz!x2Lp"}`, wantField: "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(app, http.MethodPost, "/v1/users/signup", "", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var fldErrs map[string]string
			decodeBody(t, rec, &fldErrs)
			assert.Contains(t, fldErrs, tt.wantField)
		})
	}

	t.Run("malformed payload", func(t *testing.T) {
		rec := serve(app, http.MethodPost, "/v1/users/signup", "", []byte(`{"name":`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"invalid NewUser payload"}`, rec.Body.String())
	})
}

func Test_userApi_login(t *testing.T) {
	env, app := newTestApp(t)
	usr := testutil.CreateUser(t, env.UserRepo, "Hero", "hero_one", "hero@test.cd", "pwd123", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog_one", "ndog@test.cd", "pwd123", []string{user.RoleStudent}, false)

	authFailed := marshalObj(t, httpErr{Error: "authentication failed"})
	runHTTPTests(t, app, []httpTest{
		{name: "unknown user", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{"username":"nobody","password":"pwd123"}`), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{"username":"hero_one","password":"nope"}`), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "deactivated", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{"username":"ndog_one","password":"pwd123"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "missing password", method: http.MethodPost, path: "/v1/users/login", body: []byte(`{"username":"hero_one"}`), wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"password": "this field is required"})},
	})

	for _, uname := range []string{"hero_one", "HERO@test.cd"} {
		t.Run("success with "+uname, func(t *testing.T) {
			rec := serve(app, http.MethodPost, "/v1/users/login", "", marshalObj(t, echoapi.LoginRequest{Username: uname, Password: "pwd123"}))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp echoapi.LoginResponse
			decodeBody(t, rec, &resp)
			require.NotEmpty(t, resp.Token)

			// the token authenticates the user
			rec = serve(app, http.MethodGet, "/v1/users/"+usr.ID, resp.Token)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	got, err := env.UserSvc.GetByID(ctxBg, usr.ID)
	require.NoError(t, err)
	assert.True(t, got.LastLogin.Valid, "login sets last_login")
}

func Test_userApi_refreshToken(t *testing.T) {
	env, app := newTestApp(t)
	naughty := testutil.CreateUser(t, env.UserRepo, "N Dog", "ndog", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshable := echoapi.GetUserClaims(env.Conf, stdnt, now.Add(-2*env.Conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := echoapi.GenerateToken(env.Conf, unrefreshable)
	require.NoError(t, err)

	expired := echoapi.GetUserClaims(env.Conf, stdnt)
	expired.StandardClaims = jwt.StandardClaims{Subject: stdnt.ID, ExpiresAt: now.Add(-time.Minute).Unix()}
	expiredToken, err := echoapi.GenerateToken(env.Conf, expired)
	require.NoError(t, err)

	runHTTPTests(t, app, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/users/token-refresh", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "Expired token", method: http.MethodPost, path: "/v1/users/token-refresh", token: expiredToken, wantCode: http.StatusUnauthorized},
		{name: "Inactive user not allowed", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, env, naughty), wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", method: http.MethodPost, path: "/v1/users/token-refresh", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", method: http.MethodPost, path: "/v1/users/token-refresh", token: getToken(t, env, stdnt), wantCode: http.StatusOK},
	})
}

func Test_userApi_detail(t *testing.T) {
	env, app := newTestApp(t)
	stdnt := testutil.CreateUser(t, env.UserRepo, "Hero", "hero_one", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, env.UserRepo, "Other", "other", "other@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, env.UserRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	stdntToken := getToken(t, env, stdnt)
	adminToken := getToken(t, env, admin)

	runHTTPTests(t, app, []httpTest{
		{name: "self", path: "/v1/users/" + stdnt.ID, token: stdntToken, wantData: marshalObj(t, stdnt)},
		{name: "somebody else", path: "/v1/users/" + other.ID, token: stdntToken, wantCode: http.StatusForbidden, wantData: marshalObj(t, errPermDenied)},
		{name: "admin", path: "/v1/users/" + other.ID, token: adminToken, wantData: marshalObj(t, other)},
		{name: "unknown", path: "/v1/users/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "user not found"})},
		{
			name: "student cannot change own roles", method: http.MethodPut, path: "/v1/users/" + stdnt.ID, token: stdntToken,
			body: []byte(`{"roles":["admin:"]}`), wantCode: http.StatusForbidden,
		},
		{name: "student cannot delete", method: http.MethodDelete, path: "/v1/users/" + stdnt.ID, token: stdntToken, wantCode: http.StatusForbidden},
		{name: "admin cannot delete self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
	})

	t.Run("update own name", func(t *testing.T) {
		rec := serve(app, http.MethodPut, "/v1/users/"+stdnt.ID, stdntToken, []byte(`{"name":"  Super Hero "}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got user.User
		decodeBody(t, rec, &got)
		assert.Equal(t, "Super Hero", got.Name)
		assert.Equal(t, stdnt.Username, got.Username)
	})

	t.Run("admin deletes", func(t *testing.T) {
		rec := serve(app, http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = serve(app, http.MethodGet, "/v1/users/"+other.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_userApi_register(t *testing.T) {
	env, app := newTestApp(t)
	finance := testutil.CreateUser(t, env.UserRepo, "Finance", "finance", "finance@test.cd", "", []string{user.RoleAdminFinance}, true)
	owner := testutil.CreateUser(t, env.UserRepo, "Owner", "owner", "owner@test.cd", "", []string{user.RoleAdminOwner}, true)

	body := []byte(`{"name":"Boss","username":"the_boss","password":"K7#mQz!x2Lp","password_confirm":"K7#mQz!x2Lp","roles":["admin:owner"]}`)

	rec := serve(app, http.MethodPost, "/v1/users/register", getToken(t, env, finance), body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"roles":"not enough rights to set these roles"}`, rec.Body.String())

	rec = serve(app, http.MethodPost, "/v1/users/register", getToken(t, env, owner), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decodeBody(t, rec, &usr)
	assert.Equal(t, []string{user.RoleAdminOwner}, usr.Roles)
}
