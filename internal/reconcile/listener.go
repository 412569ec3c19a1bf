// Package reconcile applies worker verdicts from the result channel back to
// jobs and classifications.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mothclassifier/coordinator/internal/bus"
	"github.com/mothclassifier/coordinator/internal/classify"
	"github.com/mothclassifier/coordinator/internal/jobs"
	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
)

// retryDelay is how long the loop waits after a transport-level receive
// failure before subscribing to messages again.
const retryDelay = time.Second

// Listener is the result reconciler: the single consumer bound to the
// result channel. Because there is exactly one consumer, the ordering of its
// side effects (classification update, asset move, job finish) is serialized
// by construction.
type Listener struct {
	bus           bus.Bus
	store         store.Store
	jobs          *jobs.Service
	classify      *classify.Service
	resultChannel string
	minAccuracy   float64
}

func NewListener(b bus.Bus, st store.Store, jobService *jobs.Service, classifyService *classify.Service, resultChannel string, minAccuracy float64) *Listener {
	return &Listener{
		bus:           b,
		store:         st,
		jobs:          jobService,
		classify:      classifyService,
		resultChannel: resultChannel,
		minAccuracy:   minAccuracy,
	}
}

// Run subscribes to the result channel and processes messages until ctx is
// done. Each message is isolated: a malformed payload, an unknown job, or a
// duplicate result is logged and dropped without terminating the loop.
func (l *Listener) Run(ctx context.Context) error {
	sub, err := l.bus.Subscribe(ctx, l.resultChannel)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", l.resultChannel, err)
	}
	defer sub.Close()

	slog.Info("listening for classification results", "channel", l.resultChannel)

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, bus.ErrSubscriptionClosed) {
				return err
			}
			slog.Error("receive result message", "error", err)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if err := l.handle(ctx, msg.Payload); err != nil {
			slog.Error("result message dropped", "error", err, "payload", string(msg.Payload))
		}
	}
}

// handle reconciles one result message: it resolves the job and its
// classification, applies the verdict with the review flag, and finishes the
// job. All failures are returned for logging; none are retried.
func (l *Listener) handle(ctx context.Context, payload []byte) error {
	var res models.ResultMessage
	if err := json.Unmarshal(payload, &res); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	job, err := l.store.GetJob(ctx, res.Job)
	if err != nil {
		return fmt.Errorf("load job %d: %w", res.Job, err)
	}

	// Two workers may both answer the same request; the protocol has no
	// claim step. A result for a job already out of running is a duplicate
	// (or an operator intervened) and is dropped.
	if job.Status != models.JobStatusRunning {
		slog.Warn("stale result dropped", "job_id", job.ID, "status", job.Status)
		return nil
	}

	classification, err := l.store.GetClassification(ctx, job.ImageID)
	if err != nil {
		return fmt.Errorf("load classification for image %d: %w", job.ImageID, err)
	}

	isAutomated := true
	needsReview := res.Accuracy <= l.minAccuracy
	fields := store.ClassificationFields{
		Species:     &res.Species,
		Accuracy:    &res.Accuracy,
		IsAutomated: &isAutomated,
		NeedsReview: &needsReview,
	}

	slog.Info("applying classification result",
		"job_id", job.ID, "species", res.Species,
		"accuracy", res.Accuracy, "needs_review", needsReview)

	if _, err := l.classify.Update(ctx, classification, fields); err != nil {
		var storageErr *classify.StorageError
		if !errors.As(err, &storageErr) {
			return fmt.Errorf("update classification for job %d: %w", job.ID, err)
		}
		// The verdict is recorded; only the asset stayed in its old
		// bucket. Finish the job and leave the move to operator cleanup.
		slog.Warn("image asset not relocated", "job_id", job.ID, "error", err)
	}

	if err := l.jobs.Finish(ctx, job); err != nil {
		var stateErr *models.StateError
		if errors.As(err, &stateErr) || errors.Is(err, store.ErrStateConflict) {
			slog.Warn("duplicate result dropped", "job_id", job.ID, "error", err)
			return nil
		}
		return fmt.Errorf("finish job %d: %w", job.ID, err)
	}
	return nil
}
