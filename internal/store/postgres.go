package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mothclassifier/coordinator/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	if job.JobType == "" {
		job.JobType = models.JobTypeClassify
	}
	if job.Status == "" {
		job.Status = models.JobStatusIssued
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (job_type, image_id, status)
		 VALUES ($1, $2, $3)
		 RETURNING id, date_issued, last_modified`,
		job.JobType, job.ImageID, job.Status,
	).Scan(&job.ID, &job.DateIssued, &job.LastModified)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id int64) (*models.Job, error) {
	var j models.Job
	err := s.pool.QueryRow(ctx,
		`SELECT id, job_type, status, status_message, image_id, date_issued, last_modified
		 FROM jobs WHERE id = $1`, id,
	).Scan(&j.ID, &j.JobType, &j.Status, &j.StatusMessage, &j.ImageID, &j.DateIssued, &j.LastModified)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	return &j, nil
}

// UpdateJobStatus moves a job from one status to another with a
// compare-and-set on the source status. It returns ErrStateConflict when the
// persisted status is no longer `from`, and ErrNotFound when the job does
// not exist.
func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id int64, from, to models.JobStatus, opts ...JobUpdateOption) error {
	var params JobUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = $3,
		     status_message = COALESCE($4, status_message),
		     last_modified = NOW()
		 WHERE id = $1 AND status = $2`,
		id, from, to, params.StatusMessage)
	if err != nil {
		return fmt.Errorf("update job %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id,
		).Scan(&exists); err != nil {
			return fmt.Errorf("update job %d status: %w", id, err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStateConflict
	}
	return nil
}

func (s *PostgresStore) AddJobModel(ctx context.Context, jobID, modelID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_models (job_id, model_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		jobID, modelID)
	if err != nil {
		return fmt.Errorf("add model %d to job %d: %w", modelID, jobID, err)
	}
	return nil
}

func (s *PostgresStore) GetJobModelIDs(ctx context.Context, jobID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT model_id FROM job_models WHERE job_id = $1 ORDER BY model_id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("get models for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan job model id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- ML models ---

// BestClassifier returns the highest-rated classifier model. Ties are broken
// by lowest id so repeated calls against an unchanged model set return the
// same row.
func (s *PostgresStore) BestClassifier(ctx context.Context) (*models.MLModel, error) {
	var m models.MLModel
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, file_name, model_type, rating, comments, date_created
		 FROM ml_models
		 WHERE model_type = $1
		 ORDER BY rating DESC, id ASC
		 LIMIT 1`, models.ModelTypeClassifier,
	).Scan(&m.ID, &m.Name, &m.FileName, &m.ModelType, &m.Rating, &m.Comments, &m.DateCreated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select best classifier: %w", err)
	}
	return &m, nil
}

// --- Images ---

func (s *PostgresStore) GetImage(ctx context.Context, id int64) (*models.Image, error) {
	var img models.Image
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, file_path, country, region, county, city, street,
		        zip_code, lat, lng, width, height, is_training, COALESCE(hash, ''), date_taken
		 FROM images WHERE id = $1`, id,
	).Scan(&img.ID, &img.UserID, &img.FilePath, &img.Country, &img.Region, &img.County,
		&img.City, &img.Street, &img.ZipCode, &img.Lat, &img.Lng, &img.Width, &img.Height,
		&img.IsTraining, &img.Hash, &img.DateTaken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image %d: %w", id, err)
	}
	return &img, nil
}

// --- Classifications ---

func (s *PostgresStore) GetClassification(ctx context.Context, imageID int64) (*models.Classification, error) {
	var c models.Classification
	err := s.pool.QueryRow(ctx,
		`SELECT image_id, species, accuracy, is_automated, needs_review
		 FROM classifications WHERE image_id = $1`, imageID,
	).Scan(&c.ImageID, &c.Species, &c.Accuracy, &c.IsAutomated, &c.NeedsReview)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get classification for image %d: %w", imageID, err)
	}
	return &c, nil
}

// ApplyClassificationUpdate changes classification fields and, when imagePath
// is non-nil, the image's file path, inside a single transaction. Either both
// writes persist or neither does.
func (s *PostgresStore) ApplyClassificationUpdate(ctx context.Context, imageID int64, fields ClassificationFields, imagePath *string) (*models.Classification, error) {
	sets := make([]string, 0, 4)
	args := []any{imageID}

	appendSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Species != nil {
		appendSet("species", *fields.Species)
	}
	if fields.Accuracy != nil {
		appendSet("accuracy", *fields.Accuracy)
	}
	if fields.IsAutomated != nil {
		appendSet("is_automated", *fields.IsAutomated)
	}
	if fields.NeedsReview != nil {
		appendSet("needs_review", *fields.NeedsReview)
	}
	if len(sets) == 0 && imagePath == nil {
		return s.GetClassification(ctx, imageID)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin classification update: %w", err)
	}
	defer tx.Rollback(ctx)

	var c models.Classification
	query := `UPDATE classifications SET ` + strings.Join(sets, ", ") +
		` WHERE image_id = $1 RETURNING image_id, species, accuracy, is_automated, needs_review`
	if len(sets) == 0 {
		query = `SELECT image_id, species, accuracy, is_automated, needs_review
		         FROM classifications WHERE image_id = $1`
	}
	err = tx.QueryRow(ctx, query, args...).
		Scan(&c.ImageID, &c.Species, &c.Accuracy, &c.IsAutomated, &c.NeedsReview)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update classification for image %d: %w", imageID, err)
	}

	if imagePath != nil {
		tag, err := tx.Exec(ctx,
			`UPDATE images SET file_path = $2 WHERE id = $1`, imageID, *imagePath)
		if err != nil {
			return nil, fmt.Errorf("update image %d path: %w", imageID, err)
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit classification update: %w", err)
	}
	return &c, nil
}

// --- Devices ---

func (s *PostgresStore) ListDevices(ctx context.Context, userID int64) ([]*models.Device, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, token, name, active, created_at
		 FROM devices WHERE user_id = $1 AND active ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list devices for user %d: %w", userID, err)
	}
	defer rows.Close()

	var devices []*models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.ID, &d.UserID, &d.Token, &d.Name, &d.Active, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan device: %w", err)
		}
		devices = append(devices, &d)
	}
	return devices, rows.Err()
}
