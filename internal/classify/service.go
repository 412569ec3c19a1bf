// Package classify applies classification updates. Changing a species also
// relocates the backing image asset into a bucket named after the species,
// so automated verdicts and manual edits both keep the media tree grouped
// for training exports.
package classify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mothclassifier/coordinator/internal/store"
	"github.com/mothclassifier/coordinator/pkg/models"
)

// StorageError reports a failed asset relocation. When Update returns it the
// classification field update has still been applied; the caller decides
// whether to flag the record for manual follow-up.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("relocate asset %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Service updates classifications and keeps the media tree in sync.
type Service struct {
	store     store.Store
	mediaRoot string
}

func NewService(st store.Store, mediaRoot string) *Service {
	return &Service{store: st, mediaRoot: mediaRoot}
}

// Update applies fields to the image's classification. When the species
// changes, the backing asset is moved into the species bucket (created if
// absent) and the image's stored path follows it in the same transaction as
// the field update. A failed move does not abort the update: the fields are
// written with the asset left in place, and the returned error is a
// *StorageError.
func (s *Service) Update(ctx context.Context, c *models.Classification, fields store.ClassificationFields) (*models.Classification, error) {
	img, err := s.store.GetImage(ctx, c.ImageID)
	if err != nil {
		return nil, fmt.Errorf("load image %d: %w", c.ImageID, err)
	}

	species := c.Species
	if fields.Species != nil {
		species = *fields.Species
	}

	var moveErr error
	var pathUpdate *string
	relocated := filepath.Join(species, filepath.Base(img.FilePath))
	if relocated != img.FilePath {
		if err := s.moveAsset(img.FilePath, relocated); err != nil {
			moveErr = err
		} else {
			pathUpdate = &relocated
		}
	}

	updated, err := s.store.ApplyClassificationUpdate(ctx, c.ImageID, fields, pathUpdate)
	if err != nil {
		return nil, fmt.Errorf("update classification for image %d: %w", c.ImageID, err)
	}
	if moveErr != nil {
		return updated, &StorageError{Path: img.FilePath, Err: moveErr}
	}
	return updated, nil
}

func (s *Service) moveAsset(oldRel, newRel string) error {
	if err := os.MkdirAll(filepath.Join(s.mediaRoot, filepath.Dir(newRel)), 0o755); err != nil {
		return err
	}
	return os.Rename(filepath.Join(s.mediaRoot, oldRel), filepath.Join(s.mediaRoot, newRel))
}
