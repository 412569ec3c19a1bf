// Package jobs owns the job lifecycle: creating jobs and applying the
// status transitions together with their persisted state and notification
// side effects.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mothclassifier/coordinator/internal/notify"
	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
)

// Service applies job lifecycle transitions. The in-memory guard decides
// legality; the persisted write is a compare-and-set on the source status,
// so the record store stays the serialization point between concurrent
// actors. Notifications fire only after the state write commits and never
// roll it back.
type Service struct {
	store    store.Store
	notifier notify.Notifier
}

func NewService(st store.Store, n notify.Notifier) *Service {
	return &Service{store: st, notifier: n}
}

// Create records a new classify job for the image and returns it in issued.
func (s *Service) Create(ctx context.Context, imageID int64) (*models.Job, error) {
	if _, err := s.store.GetImage(ctx, imageID); err != nil {
		return nil, fmt.Errorf("load image %d: %w", imageID, err)
	}

	job := &models.Job{
		JobType: models.JobTypeClassify,
		Status:  models.JobStatusIssued,
		ImageID: imageID,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

// Get loads a job together with the ids of the models that processed it.
func (s *Service) Get(ctx context.Context, id int64) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.GetJobModelIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	job.ModelIDs = ids
	return job, nil
}

// Run moves the job from issued to running and persists the transition.
func (s *Service) Run(ctx context.Context, job *models.Job) error {
	from := job.Status
	if err := job.Run(); err != nil {
		return err
	}
	if err := s.store.UpdateJobStatus(ctx, job.ID, from, job.Status); err != nil {
		job.Status = from
		return fmt.Errorf("persist job %d running: %w", job.ID, err)
	}
	return nil
}

// Finish moves the job from running to done, persists it, and notifies the
// owner's devices that the job completed.
func (s *Service) Finish(ctx context.Context, job *models.Job) error {
	from := job.Status
	if err := job.Finish(); err != nil {
		return err
	}
	if err := s.store.UpdateJobStatus(ctx, job.ID, from, job.Status); err != nil {
		job.Status = from
		return fmt.Errorf("persist job %d done: %w", job.ID, err)
	}

	body := fmt.Sprintf("Your %s job with id #%d is complete.", job.JobType, job.ID)
	s.notifyOwner(ctx, job, "Job Completed", body)
	return nil
}

// Fail moves the job to error, persists the status message with it, and
// notifies the owner's devices that the job failed.
func (s *Service) Fail(ctx context.Context, job *models.Job, msg string) error {
	from := job.Status
	if err := job.Fail(msg); err != nil {
		return err
	}
	if err := s.store.UpdateJobStatus(ctx, job.ID, from, job.Status, store.WithStatusMessage(msg)); err != nil {
		job.Status = from
		job.StatusMessage = ""
		return fmt.Errorf("persist job %d error: %w", job.ID, err)
	}

	body := fmt.Sprintf("Your %s job with id #%d has failed.\nError: %s", job.JobType, job.ID, msg)
	s.notifyOwner(ctx, job, "Job Failed", body)
	return nil
}

// notifyOwner pushes to every active device registered by the image owner.
// Failures are logged and swallowed; the transition that triggered the
// notification has already committed.
func (s *Service) notifyOwner(ctx context.Context, job *models.Job, title, body string) {
	img, err := s.store.GetImage(ctx, job.ImageID)
	if err != nil {
		slog.Warn("skipping notification, image lookup failed",
			"job_id", job.ID, "image_id", job.ImageID, "error", err)
		return
	}

	devices, err := s.store.ListDevices(ctx, img.UserID)
	if err != nil {
		slog.Warn("skipping notification, device lookup failed",
			"job_id", job.ID, "user_id", img.UserID, "error", err)
		return
	}

	n := notify.Notification{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"click_action": "FLUTTER_NOTIFICATION_CLICK",
			"title":        title,
			"body":         body,
		},
	}

	for _, d := range devices {
		if err := s.notifier.Send(ctx, d.Token, n); err != nil {
			slog.Warn("push notification failed",
				"job_id", job.ID, "device_id", d.ID, "error", err)
		}
	}
}
