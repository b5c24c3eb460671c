package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"floatchat-be/internal/pkg/logger"
	"floatchat-be/pkg/ocean"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSessions int

func (s staticSessions) Count() int { return int(s) }

type staticContexts struct {
	n       int64
	records []ocean.ContextRecord
	err     error
}

func (s staticContexts) Count(context.Context) (int64, error) { return s.n, s.err }

func (s staticContexts) Recent(_ context.Context, page, limit int) ([]ocean.ContextRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	if page > 1 {
		return []ocean.ContextRecord{}, nil
	}
	if len(s.records) > limit {
		return s.records[:limit], nil
	}
	return s.records, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func newApp(contexts staticContexts, protect ...fiber.Handler) *fiber.App {
	app := fiber.New()
	NewSystemController(staticSessions(2), contexts, logger.NopLogger{}).
		RegisterRoutes(app, app.Group("/api"), protect...)
	return app
}

func TestIndexServesLandingPage(t *testing.T) {
	resp, err := newApp(staticContexts{}).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/ws")
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		contexts staticContexts
		status   string
		stored   int64
	}{
		{"ok", staticContexts{n: 12}, "ok", 12},
		{"store down", staticContexts{err: errors.New("connection refused")}, "degraded", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.contexts).Test(httptest.NewRequest("GET", "/api/health", nil))
			require.NoError(t, err)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			var env envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			var health struct {
				Status         string `json:"status"`
				ActiveSessions int    `json:"active_sessions"`
				StoredContexts int64  `json:"stored_contexts"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &health))

			assert.Equal(t, tt.status, health.Status)
			assert.Equal(t, 2, health.ActiveSessions)
			assert.Equal(t, tt.stored, health.StoredContexts)
		})
	}
}

func TestLogsRoutes(t *testing.T) {
	app := newApp(staticContexts{})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/logs?limit=5", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/logs/abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLogsCanBeProtected(t *testing.T) {
	deny := func(ctx *fiber.Ctx) error { return ctx.SendStatus(fiber.StatusUnauthorized) }
	app := newApp(staticContexts{}, deny)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/logs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/contexts", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetContexts(t *testing.T) {
	records := []ocean.ContextRecord{
		{ID: "a", Document: "Warm.", Metadata: ocean.ContextMetadata{Query: "temperature?"}},
		{ID: "b", Document: "Salty.", Metadata: ocean.ContextMetadata{Query: "salinity?"}},
	}

	tests := []struct {
		name     string
		contexts staticContexts
		url      string
		status   int
		ids      []string
	}{
		{"first page", staticContexts{records: records}, "/api/contexts", fiber.StatusOK, []string{"a", "b"}},
		{"limited", staticContexts{records: records}, "/api/contexts?limit=1", fiber.StatusOK, []string{"a"}},
		{"past the end", staticContexts{records: records}, "/api/contexts?page=2", fiber.StatusOK, []string{}},
		{"store down", staticContexts{err: errors.New("connection refused")}, "/api/contexts", fiber.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.contexts).Test(httptest.NewRequest("GET", tt.url, nil))
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.ids == nil {
				return
			}

			var env envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
			var got []ocean.ContextRecord
			if len(env.Data) > 0 {
				require.NoError(t, json.Unmarshal(env.Data, &got))
			}
			ids := []string{}
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}
