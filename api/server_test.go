package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eclipse-warden/model"
	"eclipse-warden/moderation"
	"eclipse-warden/utils/clock/clocktest"
	"eclipse-warden/utils/database/modstore"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "s3cret"

func testServer(t *testing.T) (*Server, *moderation.Engine) {
	return testServerWithToken(t, testToken)
}

func testServerWithToken(t *testing.T, token string) (*Server, *moderation.Engine) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := model.DefaultModerationConfig()
	cfg.ModeratorRoles = []string{"Moderator"}
	eng, err := moderation.New(moderation.Options{
		Store:  modstore.NewMemoryStore(),
		Config: cfg,
		Clock:  clocktest.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		Logger: logger,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(eng.Close)
	return NewServer(eng, logger, token), eng
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	return getWithToken(t, s, path, testToken)
}

func getWithToken(t *testing.T, s *Server, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAliveAndHealth(t *testing.T) {
	assert := assert.New(t)
	s, _ := testServer(t)

	rec := get(t, s, "/")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("Bot is alive!", rec.Body.String())

	rec = get(t, s, "/_health")
	assert.Equal(http.StatusOK, rec.Code)
	var hs HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	assert.Equal("ok", hs.Status)

	rec = get(t, s, "/metrics")
	assert.Equal(http.StatusOK, rec.Code)
}

func TestModerationRecordAndCase(t *testing.T) {
	assert := assert.New(t)
	s, eng := testServer(t)
	mod := moderation.Member{ID: "m1", Roles: []string{"Moderator"}}
	_, err := eng.Warn(context.Background(), mod, moderation.Member{ID: "u1"}, "spam")
	require.NoError(t, err)

	rec := get(t, s, "/api/moderation/u1")
	require.Equal(t, http.StatusOK, rec.Code)
	var mr model.ModerationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mr))
	assert.Equal("u1", mr.UserID)
	assert.Len(mr.Infractions, 1)
	assert.Equal(model.StateNone, mr.State)

	rec = get(t, s, "/api/cases/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var ce model.CaseEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ce))
	assert.Equal(model.ActionWarn, ce.Action)
	assert.Equal("u1", ce.TargetID)

	assert.Equal(http.StatusNotFound, get(t, s, "/api/cases/99").Code)
	assert.Equal(http.StatusBadRequest, get(t, s, "/api/cases/abc").Code)
}

func TestLookupsRequireToken(t *testing.T) {
	assert := assert.New(t)
	s, _ := testServer(t)

	assert.Equal(http.StatusUnauthorized, getWithToken(t, s, "/api/moderation/u1", "").Code)
	assert.Equal(http.StatusUnauthorized, getWithToken(t, s, "/api/moderation/u1", "wrong").Code)
	assert.Equal(http.StatusUnauthorized, getWithToken(t, s, "/api/cases/1", "").Code)
	assert.Equal(http.StatusOK, getWithToken(t, s, "/", "").Code)
	assert.Equal(http.StatusOK, getWithToken(t, s, "/api/moderation/u1", testToken).Code)

	open, _ := testServerWithToken(t, "")
	assert.Equal(http.StatusNotFound, getWithToken(t, open, "/api/moderation/u1", "").Code)
	assert.Equal(http.StatusOK, getWithToken(t, open, "/_health", "").Code)
}
