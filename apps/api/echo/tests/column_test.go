package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhkim0602/monguri-sub002/core"
	"github.com/jhkim0602/monguri-sub002/core/column"
)

func TestColumnPublishing(t *testing.T) {
	app := newTestApp(t)
	author := app.createProfile(t, core.RoleMentor, "Kim Mentor", "mentor@test.test")
	other := app.createProfile(t, core.RoleMentor, "Choi Mentor", "other@test.test")
	reader := app.createProfile(t, core.RoleMentee, "Lee Mentee", "mentee@test.test")
	authorToken := app.token(t, author)

	draft := decode[column.Article](t, app.do(t, http.MethodPost, "/v1/columns", authorToken, map[string]interface{}{
		"slug":  "how-to-plan-a-week",
		"title": "How to plan a week",
		"body":  "Start with the deadlines.",
		"tags":  []string{"planning"},
	}), http.StatusCreated)
	assert.False(t, draft.Published)
	assert.Nil(t, draft.PublishedAt)

	// the public list is cached before publication and must be refreshed by it
	list := decode[[]column.Article](t, app.do(t, http.MethodGet, "/v1/columns", "", nil), http.StatusOK)
	assert.Empty(t, list)

	app.run(t, []httpTest{
		{
			name:     "anonymous reads a draft",
			path:     "/v1/columns/how-to-plan-a-week",
			wantCode: http.StatusNotFound,
			wantErr:  "column not found",
		},
		{
			name:     "another reader reads a draft",
			path:     "/v1/columns/how-to-plan-a-week",
			token:    app.token(t, reader),
			wantCode: http.StatusNotFound,
			wantErr:  "column not found",
		},
		{
			name:  "author reads their draft",
			path:  "/v1/columns/how-to-plan-a-week",
			token: authorToken,
		},
		{
			name:     "mentee writes a column",
			method:   http.MethodPost,
			path:     "/v1/columns",
			token:    app.token(t, reader),
			body:     map[string]interface{}{"slug": "mine", "title": "Mine", "body": "Text"},
			wantCode: http.StatusForbidden,
			wantErr:  "only mentors can write columns",
		},
		{
			name:     "duplicate slug",
			method:   http.MethodPost,
			path:     "/v1/columns",
			token:    app.token(t, other),
			body:     map[string]interface{}{"slug": "how-to-plan-a-week", "title": "Again", "body": "Text"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "another mentor publishes",
			method:   http.MethodPut,
			path:     "/v1/columns/" + draft.ID + "/publish",
			token:    app.token(t, other),
			body:     map[string]bool{"published": true},
			wantCode: http.StatusForbidden,
			wantErr:  "only the author can edit this column",
		},
		{
			name:     "another mentor edits",
			method:   http.MethodPut,
			path:     "/v1/columns/" + draft.ID,
			token:    app.token(t, other),
			body:     map[string]string{"title": "Hijacked"},
			wantCode: http.StatusForbidden,
			wantErr:  "only the author can edit this column",
		},
		{
			name:     "another mentor deletes",
			method:   http.MethodDelete,
			path:     "/v1/columns/" + draft.ID,
			token:    app.token(t, other),
			wantCode: http.StatusForbidden,
			wantErr:  "only the author can edit this column",
		},
		{
			name:     "anonymous publishes",
			method:   http.MethodPut,
			path:     "/v1/columns/" + draft.ID + "/publish",
			body:     map[string]bool{"published": true},
			wantCode: http.StatusUnauthorized,
		},
	})

	edited := decode[column.Article](t, app.do(t, http.MethodPut, "/v1/columns/"+draft.ID, authorToken,
		map[string]string{"title": "How to plan a school week"}), http.StatusOK)
	assert.Equal(t, "How to plan a school week", edited.Title)
	assert.Equal(t, "how-to-plan-a-week", edited.Slug)

	published := decode[column.Article](t, app.do(t, http.MethodPut, "/v1/columns/"+draft.ID+"/publish", authorToken,
		map[string]bool{"published": true}), http.StatusOK)
	assert.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)

	got := decode[column.Article](t, app.do(t, http.MethodGet, "/v1/columns/how-to-plan-a-week", "", nil), http.StatusOK)
	assert.Equal(t, draft.ID, got.ID)

	list = decode[[]column.Article](t, app.do(t, http.MethodGet, "/v1/columns", "", nil), http.StatusOK)
	require.Len(t, list, 1)

	// republishing keeps the first publication date
	decode[column.Article](t, app.do(t, http.MethodPut, "/v1/columns/"+draft.ID+"/publish", authorToken,
		map[string]bool{"published": false}), http.StatusOK)
	again := decode[column.Article](t, app.do(t, http.MethodPut, "/v1/columns/"+draft.ID+"/publish", authorToken,
		map[string]bool{"published": true}), http.StatusOK)
	assert.True(t, published.PublishedAt.Equal(*again.PublishedAt))

	rec := app.do(t, http.MethodDelete, "/v1/columns/"+draft.ID, authorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list = decode[[]column.Article](t, app.do(t, http.MethodGet, "/v1/columns", "", nil), http.StatusOK)
	assert.Empty(t, list)
}
