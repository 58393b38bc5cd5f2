package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/jhkim0602/monguri-sub002/apps/api/echo"
	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
)

func Test_authApi_signup(t *testing.T) {
	app := newTestApp(t)
	app.createProfile(t, core.RoleMentor, "Taken", "taken@test.test")

	signup := func(role, email, pwd string) profile.NewProfile {
		return profile.NewProfile{Role: role, Name: "Park Minsu", Email: email, Password: pwd, PasswordConfirm: pwd}
	}

	t.Run("mentee", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/auth/signup", "", signup(core.RoleMentee, "  Park@Test.test ", validPwd))
		p := decode[profile.Profile](t, rec, http.StatusCreated)
		assert.Equal(t, "park@test.test", p.Email)
		assert.Equal(t, core.RoleMentee, p.Role)
		assert.True(t, p.IsActive)
	})

	t.Run("admin refused", func(t *testing.T) {
		res := decodeErr(t, app.do(t, http.MethodPost, "/v1/auth/signup", "", signup(core.RoleAdmin, "root@test.test", validPwd)), http.StatusBadRequest)
		assert.Contains(t, res.Fields, "role")
	})

	t.Run("unknown role", func(t *testing.T) {
		res := decodeErr(t, app.do(t, http.MethodPost, "/v1/auth/signup", "", signup("teacher", "who@test.test", validPwd)), http.StatusBadRequest)
		assert.Equal(t, "invalid role", res.Fields["role"])
	})

	t.Run("weak password", func(t *testing.T) {
		res := decodeErr(t, app.do(t, http.MethodPost, "/v1/auth/signup", "", signup(core.RoleMentee, "weak@test.test", "password")), http.StatusBadRequest)
		assert.Contains(t, res.Fields, "password")
	})

	t.Run("email taken", func(t *testing.T) {
		res := decodeErr(t, app.do(t, http.MethodPost, "/v1/auth/signup", "", signup(core.RoleMentee, "TAKEN@test.test", validPwd)), http.StatusBadRequest)
		assert.Equal(t, profile.ErrEmailExists.Error(), res.Fields["email"])
	})
}

func Test_authApi_login(t *testing.T) {
	app := newTestApp(t)
	mentor := app.createProfile(t, core.RoleMentor, "Kim Mentor", "mentor@test.test")
	naughty := testutilInactive(t, app)

	app.run(t, []httpTest{
		{name: "invalid body", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Email: "lol"}, wantCode: http.StatusBadRequest, wantErr: "invalid input"},
		{name: "unknown email", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Email: "lol@test.test", Password: validPwd}, wantCode: http.StatusBadRequest, wantErr: "invalid credentials"},
		{name: "wrong password", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Email: mentor.Email, Password: "nope"}, wantCode: http.StatusBadRequest, wantErr: "invalid credentials"},
		{name: "deactivated", method: http.MethodPost, path: "/v1/auth/login", body: echoapi.LoginRequest{Email: naughty.Email, Password: validPwd}, wantCode: http.StatusForbidden, wantErr: "account deactivated"},
	})

	t.Run("logged in", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/auth/login", "", echoapi.LoginRequest{Email: "MENTOR@test.test", Password: validPwd})
		res := decode[echoapi.LoginResponse](t, rec, http.StatusOK)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, core.RoleMentor, res.Role)
		assert.Equal(t, "/mentor", res.Portal)

		me := decode[profile.Profile](t, app.do(t, http.MethodGet, "/v1/me", res.Token, nil), http.StatusOK)
		assert.Equal(t, mentor.ID, me.ID)
		assert.NotNil(t, me.LastLogin)
	})
}

func testutilInactive(t *testing.T, app *testApp) profile.Profile {
	p := app.createProfile(t, core.RoleMentee, "N Dog", "ndog@test.test")
	p.IsActive = false
	p, err := app.c.Repos.Profiles.UpdateProfile(context.Background(), p)
	require.NoError(t, err)
	return p
}

func Test_authApi_refreshToken(t *testing.T) {
	app := newTestApp(t)
	mentee := app.createProfile(t, core.RoleMentee, "Lee Mentee", "mentee@test.test")
	naughty := testutilInactive(t, app)

	app.run(t, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/auth/token-refresh", wantCode: http.StatusUnauthorized, wantErr: "missing or malformed jwt"},
		{name: "invalid token", method: http.MethodPost, path: "/v1/auth/token-refresh", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "inactive profile", method: http.MethodPost, path: "/v1/auth/token-refresh", token: app.token(t, naughty), wantCode: http.StatusForbidden, wantErr: "account deactivated"},
	})

	t.Run("refreshed", func(t *testing.T) {
		res := decode[echoapi.LoginResponse](t, app.do(t, http.MethodPost, "/v1/auth/token-refresh", app.token(t, mentee), nil), http.StatusOK)
		assert.NotEmpty(t, res.Token)
		assert.Equal(t, "/mentee", res.Portal)
	})
}

func Test_authApi_passwordReset(t *testing.T) {
	app := newTestApp(t)
	mentee := app.createProfile(t, core.RoleMentee, "Lee Mentee", "mentee@test.test")

	t.Run("unknown email is not disclosed", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/auth/password-reset", "", echoapi.PasswordResetRequest{Email: "lol@test.test"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, app.mailSvc.SentMessages())
	})

	t.Run("mail sent", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/auth/password-reset", "", echoapi.PasswordResetRequest{Email: mentee.Email})
		require.Equal(t, http.StatusOK, rec.Code)
		sent := app.mailSvc.SentMessages()
		require.Len(t, sent, 1)
		assert.Equal(t, mentee.Email, sent[0].To[0].Address)
	})
}
