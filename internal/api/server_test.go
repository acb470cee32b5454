package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"litscout/internal/config"
	"litscout/internal/models"
	"litscout/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, *store.SessionStore) {
	t.Helper()
	layout := store.NewLayout(t.TempDir())
	require.NoError(t, layout.EnsureDirs())
	sessions := store.NewSessionStore(layout)
	return NewServer(config.Config{}, sessions, nil), sessions
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok": true}`, rec.Body.String())
}

func TestSessionsListAndGet(t *testing.T) {
	srv, sessions := testServer(t)
	require.NoError(t, sessions.SaveNote("s1", models.Note{Topic: "gnn", SessionID: "s1"}))

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Sessions []string `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, []string{"s1"}, listed.Sessions)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var note models.Note
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &note))
	assert.Equal(t, "gnn", note.Topic)
}

func TestSessionNotFound(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPapers(t *testing.T) {
	srv, sessions := testServer(t)
	require.NoError(t, sessions.AppendPaperLog(models.PaperRecord{ID: "arxiv:1", Title: "First"}))

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/papers", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Papers []models.PaperRecord `json:"papers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Papers, 1)
	assert.Equal(t, "arxiv:1", payload.Papers[0].ID)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/sessions", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
