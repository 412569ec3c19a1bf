package store

import (
	"context"
	"errors"

	"github.com/mothclassifier/coordinator/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// ErrStateConflict is returned by UpdateJobStatus when the job's persisted
// status no longer matches the expected source state. The write is a
// compare-and-set, so a conflict means another actor moved the job first.
var ErrStateConflict = errors.New("job status changed concurrently")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id int64) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id int64, from, to models.JobStatus, opts ...JobUpdateOption) error
	AddJobModel(ctx context.Context, jobID, modelID int64) error
	GetJobModelIDs(ctx context.Context, jobID int64) ([]int64, error)

	BestClassifier(ctx context.Context) (*models.MLModel, error)

	GetImage(ctx context.Context, id int64) (*models.Image, error)

	GetClassification(ctx context.Context, imageID int64) (*models.Classification, error)
	ApplyClassificationUpdate(ctx context.Context, imageID int64, fields ClassificationFields, imagePath *string) (*models.Classification, error)

	ListDevices(ctx context.Context, userID int64) ([]*models.Device, error)
}

// ClassificationFields are the classification attributes an update may change.
// Nil pointers leave the stored value untouched.
type ClassificationFields struct {
	Species     *string
	Accuracy    *float64
	IsAutomated *bool
	NeedsReview *bool
}

// JobUpdateParams collects the optional column changes of UpdateJobStatus.
type JobUpdateParams struct {
	StatusMessage *string
}

type JobUpdateOption func(*JobUpdateParams)

func WithStatusMessage(msg string) JobUpdateOption {
	return func(p *JobUpdateParams) {
		p.StatusMessage = &msg
	}
}
