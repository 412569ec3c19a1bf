package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mothclassifier/coordinator/internal/bus"
	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── mock store ──────────────────────────────────────────────────────────────

type testStore struct {
	pingErr error
}

func (s *testStore) Ping(_ context.Context) error                      { return s.pingErr }
func (s *testStore) CreateJob(_ context.Context, _ *models.Job) error  { return nil }
func (s *testStore) GetJob(_ context.Context, _ int64) (*models.Job, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) UpdateJobStatus(_ context.Context, _ int64, _, _ models.JobStatus, _ ...store.JobUpdateOption) error {
	return nil
}
func (s *testStore) AddJobModel(_ context.Context, _, _ int64) error { return nil }
func (s *testStore) GetJobModelIDs(_ context.Context, _ int64) ([]int64, error) {
	return nil, nil
}
func (s *testStore) BestClassifier(_ context.Context) (*models.MLModel, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetImage(_ context.Context, _ int64) (*models.Image, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) GetClassification(_ context.Context, _ int64) (*models.Classification, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) ApplyClassificationUpdate(_ context.Context, _ int64, _ store.ClassificationFields, _ *string) (*models.Classification, error) {
	return nil, store.ErrNotFound
}
func (s *testStore) ListDevices(_ context.Context, _ int64) ([]*models.Device, error) {
	return nil, nil
}

var _ store.Store = (*testStore)(nil)

// ─── mock bus ────────────────────────────────────────────────────────────────

type testBus struct {
	pingErr error
}

func (b *testBus) Publish(_ context.Context, _ string, _ []byte) error { return nil }
func (b *testBus) Subscribe(_ context.Context, _ string) (bus.Subscription, error) {
	return nil, errors.New("not implemented")
}
func (b *testBus) NumSubscribers(_ context.Context, _ string) (int64, error) { return 0, nil }
func (b *testBus) Ping(_ context.Context) error                              { return b.pingErr }
func (b *testBus) Close() error                                              { return nil }

var _ bus.Bus = (*testBus)(nil)

// ─── health handler tests ───────────────────────────────────────────────────

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(&testStore{}, &testBus{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "ok", services["database"])
	assert.Equal(t, "ok", services["bus"])
}

func TestHealthHandler_DatabaseDegraded(t *testing.T) {
	h := healthHandler(&testStore{pingErr: errors.New("connection refused")}, &testBus{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
}

func TestHealthHandler_BusDegraded(t *testing.T) {
	h := healthHandler(&testStore{}, &testBus{pingErr: errors.New("redis down")})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_BothDegraded(t *testing.T) {
	h := healthHandler(
		&testStore{pingErr: errors.New("db down")},
		&testBus{pingErr: errors.New("redis down")},
	)

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ─── run() config validation tests ──────────────────────────────────────────

func TestRun_FailsOnMissingConfig(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "REDIS_URL"} {
		t.Setenv(key, "")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_FailsOnInvalidDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "not-a-valid-url")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
}

// ─── shutdown timeout constant test ─────────────────────────────────────────

func TestShutdownTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, shutdownTimeout)
}
