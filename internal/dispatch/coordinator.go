// Package dispatch publishes classification requests to the worker pool and
// moves jobs into running.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mothclassifier/coordinator/internal/bus"
	"github.com/mothclassifier/coordinator/internal/jobs"
	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
)

// Status messages recorded on jobs that terminate during dispatch.
const (
	MsgServiceUnavailable = "Machine Learning service is unavailable."
	MsgUnsupportedJobType = "Job is not supported yet"
	MsgNoModelAvailable   = "No classification model is available."
)

// Coordinator dispatches jobs: it probes worker availability, selects the
// model, records it against the job, and publishes the request.
//
// Dispatch is fire-and-forget. Once the request is published the only way a
// job leaves running is a result message on the result channel or an
// operator marking it failed; there is no timeout-based reclaim for a worker
// that dies mid-processing after the availability probe passed.
type Coordinator struct {
	store          store.Store
	bus            bus.Bus
	jobs           *jobs.Service
	requestChannel string
}

func NewCoordinator(st store.Store, b bus.Bus, jobService *jobs.Service, requestChannel string) *Coordinator {
	return &Coordinator{
		store:          st,
		bus:            b,
		jobs:           jobService,
		requestChannel: requestChannel,
	}
}

// Dispatch moves the job to running and publishes its classification request
// on the request channel. Conditions that terminate the job (no worker
// subscribed, unsupported job type, no classifier model) are recorded on the
// job itself and return nil; a non-nil error means dispatch could not run at
// all (unknown job, illegal transition, storage failure) and should be
// treated as a bug or an outage, not retried blindly.
//
// Dispatch is meant to be invoked exactly once per job, right after
// creation. A second invocation fails the run transition with a StateError.
func (c *Coordinator) Dispatch(ctx context.Context, jobID int64) error {
	job, err := c.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %d: %w", jobID, err)
	}

	if err := c.jobs.Run(ctx, job); err != nil {
		return err
	}

	// The bus is fire-and-forget: a publish with no subscriber is silently
	// dropped and the job would hang in running forever. Probe before
	// publishing.
	subscribers, err := c.bus.NumSubscribers(ctx, c.requestChannel)
	if err != nil {
		slog.Error("subscriber probe failed", "job_id", job.ID, "channel", c.requestChannel, "error", err)
		return c.failJob(ctx, job, MsgServiceUnavailable)
	}
	if subscribers == 0 {
		slog.Warn("no worker subscribed to request channel", "job_id", job.ID, "channel", c.requestChannel)
		return c.failJob(ctx, job, MsgServiceUnavailable)
	}

	if job.JobType != models.JobTypeClassify {
		slog.Warn("unsupported job type", "job_id", job.ID, "job_type", job.JobType)
		return c.failJob(ctx, job, MsgUnsupportedJobType)
	}

	model, err := c.store.BestClassifier(ctx)
	if errors.Is(err, store.ErrNotFound) {
		slog.Warn("no classifier model registered", "job_id", job.ID)
		return c.failJob(ctx, job, MsgNoModelAvailable)
	}
	if err != nil {
		return fmt.Errorf("select classifier for job %d: %w", job.ID, err)
	}

	if err := c.store.AddJobModel(ctx, job.ID, model.ID); err != nil {
		return fmt.Errorf("record model for job %d: %w", job.ID, err)
	}

	payload, err := json.Marshal(models.DispatchMessage{
		Job:       job.ID,
		ModelFile: model.FileName,
		Image:     job.ImageID,
	})
	if err != nil {
		return fmt.Errorf("encode request for job %d: %w", job.ID, err)
	}

	slog.Info("dispatching job",
		"job_id", job.ID, "image_id", job.ImageID, "model_file", model.FileName)

	if err := c.bus.Publish(ctx, c.requestChannel, payload); err != nil {
		slog.Error("publish request failed", "job_id", job.ID, "error", err)
		return c.failJob(ctx, job, MsgServiceUnavailable)
	}
	return nil
}

// failJob records a terminal dispatch condition on the job. The condition
// itself is not an error for the caller; failing to persist it is.
func (c *Coordinator) failJob(ctx context.Context, job *models.Job, msg string) error {
	if err := c.jobs.Fail(ctx, job, msg); err != nil {
		return fmt.Errorf("mark job %d failed: %w", job.ID, err)
	}
	return nil
}
