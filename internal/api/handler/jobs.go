package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mothclassifier/coordinator/internal/api/response"
	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
)

// JobService is the slice of the job lifecycle the intake surface needs.
type JobService interface {
	Create(ctx context.Context, imageID int64) (*models.Job, error)
	Get(ctx context.Context, id int64) (*models.Job, error)
}

// Dispatcher kicks off the dispatch of a created job.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID int64) error
}

// Jobs handles the job intake surface: creating classification jobs and
// exposing their status.
type Jobs struct {
	service    JobService
	dispatcher Dispatcher
}

func NewJobs(service JobService, dispatcher Dispatcher) *Jobs {
	return &Jobs{service: service, dispatcher: dispatcher}
}

type createJobRequest struct {
	Image int64 `json:"image"`
}

// Create registers a classify job for an image and dispatches it in the
// background. The response is 202: the job starts issued and advances
// asynchronously; clients poll the job record for the outcome.
func (h *Jobs) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be JSON", nil)
		return
	}
	if req.Image <= 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_IMAGE", "image must be a positive id", nil)
		return
	}

	job, err := h.service.Create(r.Context(), req.Image)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image does not exist", nil)
		return
	}
	if err != nil {
		slog.Error("create job failed", "image_id", req.Image, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create job", nil)
		return
	}

	go h.dispatch(job.ID)

	response.Accepted(w, job)
}

// dispatch runs the coordinator in the background; the request has already
// been answered. Dispatch outcomes land on the job record, so failures here
// are only logged.
func (h *Jobs) dispatch(jobID int64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in dispatch", "job_id", jobID, "error", r)
		}
	}()

	if err := h.dispatcher.Dispatch(context.Background(), jobID); err != nil {
		slog.Error("dispatch failed", "job_id", jobID, "error", err)
	}
}

// Get returns a job record, including its status, status message, and the
// models that processed it.
func (h *Jobs) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "jobID"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest, "INVALID_JOB_ID", "Job id must be a positive integer", nil)
		return
	}

	job, err := h.service.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job does not exist", nil)
		return
	}
	if err != nil {
		slog.Error("get job failed", "job_id", id, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job", nil)
		return
	}

	response.JSON(w, job)
}
