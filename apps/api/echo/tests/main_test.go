package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/apps/api/di"
	echoapi "github.com/jhkim0602/monguri-sub002/apps/api/echo"
	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/profile"
	emailsvc "github.com/jhkim0602/monguri-sub002/services/email"
	"github.com/jhkim0602/monguri-sub002/tests"
)

const validPwd = "Gr8-Mentor!x"

type testApp struct {
	srv     *echoapi.Server
	c       *di.Container
	mailSvc *emailsvc.ConsoleService
}

// newTestApp serves a fresh memory database for every test.
func newTestApp(t *testing.T) *testApp {
	c, mailSvc := testutil.NewContainer(t)
	srv := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          c.Conf,
		Logger:        c.Logger,
		Validate:      c.Validate,
		Translator:    c.Translator,
		Profiles:      c.Profiles,
		Subjects:      c.Subjects,
		Tasks:         c.Tasks,
		Planner:       c.Planner,
		Overview:      c.Overview,
		Notifications: c.Notifications,
		Chat:          c.Chat,
		Columns:       c.Columns,
	})
	return &testApp{srv: srv, c: c, mailSvc: mailSvc}
}

func (app *testApp) createProfile(t *testing.T, role, name, email string) profile.Profile {
	return testutil.CreateProfile(t, app.c.Repos.Profiles, role, name, email, validPwd, true)
}

// mentorship creates a mentor and a mentee linked together.
func (app *testApp) mentorship(t *testing.T) (mentor, mentee profile.Profile, link profile.Link) {
	mentor = app.createProfile(t, core.RoleMentor, "Kim Mentor", "mentor@test.test")
	mentee = app.createProfile(t, core.RoleMentee, "Lee Mentee", "mentee@test.test")
	link = testutil.Link(t, app.c.Profiles, mentor, mentee)
	return mentor, mentee, link
}

func (app *testApp) token(t *testing.T, p profile.Profile) string {
	token, err := app.srv.TokenFor(p)
	require.NoError(t, err)
	return token
}

func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.srv.ServeHTTP(rec, req)
	return rec
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

// decode checks the status code and returns the data of a successful response.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder, wantCode int) T {
	t.Helper()
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	var env envelope[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(t, env.Success)
	return env.Data
}

// decodeErr checks the status code and returns the body of a failed response.
func decodeErr(t *testing.T, rec *httptest.ResponseRecorder, wantCode int) echoapi.ErrorResponse {
	t.Helper()
	require.Equal(t, wantCode, rec.Code, rec.Body.String())
	var res echoapi.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Success)
	return res
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantErr  string
}

// run checks the status code of each test and, for failures, the error message.
func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, tt.method, tt.path, tt.token, tt.body)
			if tt.wantErr != "" {
				res := decodeErr(t, rec, tt.wantCode)
				require.Equal(t, tt.wantErr, res.Error)
				return
			}
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}
