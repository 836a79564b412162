package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"totopool/domain/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	err error
}

func (c stubChecker) Ping(ctx context.Context) error {
	return c.err
}

func TestStatusForError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		code int
	}{
		{entities.ErrRoundNotFound, http.StatusNotFound},
		{entities.ErrNoUnseenWin, http.StatusNotFound},
		{fmt.Errorf("failed to get user: %w", entities.ErrUserNotFound), http.StatusNotFound},
		{entities.ErrIncompleteSelection, http.StatusBadRequest},
		{entities.ErrInvalidOutcome, http.StatusBadRequest},
		{entities.ErrInvalidStake, http.StatusBadRequest},
		{entities.ErrTooManyVariants, http.StatusBadRequest},
		{entities.ErrRoundNotAcceptingBets, http.StatusConflict},
		{entities.ErrUsernameTaken, http.StatusConflict},
		{entities.ErrInvalidUsername, http.StatusBadRequest},
		{entities.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.code, statusForError(tt.err))
		})
	}
}

func TestOpsServer_Health(t *testing.T) {
	t.Parallel()

	t.Run("all dependencies up", func(t *testing.T) {
		t.Parallel()

		server := NewOpsServer(":0", panicFactory{}, nil, nil, map[string]HealthChecker{
			"database": stubChecker{},
			"redis":    stubChecker{},
		})
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, map[string]string{"status": "ok", "database": "ok", "redis": "ok"}, body)
	})

	t.Run("degraded dependency", func(t *testing.T) {
		t.Parallel()

		server := NewOpsServer(":0", panicFactory{}, nil, nil, map[string]HealthChecker{
			"database": stubChecker{},
			"redis":    stubChecker{err: errors.New("dial tcp: refused")},
		})
		rec := httptest.NewRecorder()

		server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unavailable", body["redis"])
	})
}

func TestOpsServer_BadParameters(t *testing.T) {
	t.Parallel()

	server := NewOpsServer(":0", panicFactory{}, nil, nil, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/rounds/abc/stats"},
		{http.MethodGet, "/rounds/?limit=ten"},
		{http.MethodGet, "/stats/top-wins?limit=x"},
		{http.MethodPost, "/users/me/unseen-win/claim"},
		{http.MethodGet, "/users/1/rounds/last/summary"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			server.Router().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestOpsServer_Metrics(t *testing.T) {
	t.Parallel()

	server := NewOpsServer(":0", panicFactory{}, nil, nil, nil)
	router := server.Router()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "totopool_http_requests_total")
}
