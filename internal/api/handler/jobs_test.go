package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockJobService struct {
	createFn func(ctx context.Context, imageID int64) (*models.Job, error)
	getFn    func(ctx context.Context, id int64) (*models.Job, error)
}

func (m *mockJobService) Create(ctx context.Context, imageID int64) (*models.Job, error) {
	return m.createFn(ctx, imageID)
}

func (m *mockJobService) Get(ctx context.Context, id int64) (*models.Job, error) {
	return m.getFn(ctx, id)
}

type mockDispatcher struct {
	mu         sync.Mutex
	dispatched []int64
}

func (m *mockDispatcher) Dispatch(_ context.Context, jobID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched = append(m.dispatched, jobID)
	return nil
}

func (m *mockDispatcher) calls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.dispatched...)
}

// --- tests ---

func TestCreateJob(t *testing.T) {
	svc := &mockJobService{
		createFn: func(_ context.Context, imageID int64) (*models.Job, error) {
			return &models.Job{ID: 7, JobType: models.JobTypeClassify, Status: models.JobStatusIssued, ImageID: imageID}, nil
		},
	}
	dispatcher := &mockDispatcher{}
	h := NewJobs(svc, dispatcher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"image":3}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Data models.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.Data.ID)
	assert.Equal(t, models.JobStatusIssued, body.Data.Status)

	// dispatch runs in the background after the response
	require.Eventually(t, func() bool {
		return len(dispatcher.calls()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{7}, dispatcher.calls())
}

func TestCreateJobInvalidBody(t *testing.T) {
	h := NewJobs(&mockJobService{}, &mockDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{broken`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_BODY")
}

func TestCreateJobMissingImage(t *testing.T) {
	h := NewJobs(&mockJobService{}, &mockDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_IMAGE")
}

func TestCreateJobUnknownImage(t *testing.T) {
	svc := &mockJobService{
		createFn: func(_ context.Context, _ int64) (*models.Job, error) {
			return nil, store.ErrNotFound
		},
	}
	dispatcher := &mockDispatcher{}
	h := NewJobs(svc, dispatcher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"image":99}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, dispatcher.calls(), "nothing to dispatch without a job")
}

func TestCreateJobServiceFailure(t *testing.T) {
	svc := &mockJobService{
		createFn: func(_ context.Context, _ int64) (*models.Job, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewJobs(svc, &mockDispatcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"image":3}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func getJobRequest(t *testing.T, h *Jobs, jobID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+jobID, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("jobID", jobID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.Get(rec, req)
	return rec
}

func TestGetJob(t *testing.T) {
	svc := &mockJobService{
		getFn: func(_ context.Context, id int64) (*models.Job, error) {
			return &models.Job{
				ID: id, JobType: models.JobTypeClassify,
				Status: models.JobStatusError, StatusMessage: "Machine Learning service is unavailable.",
				ImageID: 3, ModelIDs: []int64{2},
			}, nil
		},
	}
	h := NewJobs(svc, &mockDispatcher{})

	rec := getJobRequest(t, h, "7")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.JobStatusError, body.Data.Status)
	assert.Equal(t, "Machine Learning service is unavailable.", body.Data.StatusMessage)
	assert.Equal(t, []int64{2}, body.Data.ModelIDs)
}

func TestGetJobNotFound(t *testing.T) {
	svc := &mockJobService{
		getFn: func(_ context.Context, _ int64) (*models.Job, error) {
			return nil, store.ErrNotFound
		},
	}
	h := NewJobs(svc, &mockDispatcher{})

	rec := getJobRequest(t, h, "404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "JOB_NOT_FOUND")
}

func TestGetJobInvalidID(t *testing.T) {
	h := NewJobs(&mockJobService{}, &mockDispatcher{})

	rec := getJobRequest(t, h, "not-a-number")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
