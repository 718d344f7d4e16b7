package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
)

// BatchUploader bridges the staging store and archive into the uploader
// collaborator the dropzone control expects. Each submission claims the
// batch's temp files by their Ref and archives them under one batch ID.
type BatchUploader struct {
	store   Store
	archive Archive
	log     *slog.Logger

	// OnArchived, when set, is called after a batch lands in the
	// archive, with the batch ID and the archived files.
	OnArchived func(batchID string, files []*File)
}

// NewBatchUploader creates a BatchUploader. A nil logger falls back to
// slog.Default.
func NewBatchUploader(store Store, archive Archive, log *slog.Logger) *BatchUploader {
	if log == nil {
		log = slog.Default()
	}
	return &BatchUploader{store: store, archive: archive, log: log}
}

// Upload is a dropzone.UploadFunc. Progress covers the whole batch:
// after file i of n is archived, progress is (i+1)/n of 100.
func (u *BatchUploader) Upload(ctx context.Context, files []dropzone.File, progress func(float64)) error {
	if len(files) == 0 {
		return errors.New("no files to upload")
	}

	batchID := uuid.NewString()
	log := u.log.With("batch_id", batchID, "files", len(files))
	log.Info("upload started")

	archived := make([]*File, 0, len(files))
	for i, entry := range files {
		f, err := u.claimOne(ctx, entry)
		if err != nil {
			log.Warn("upload failed", "file", entry.Name, "error", err)
			return err
		}

		err = u.archive.Put(ctx, batchID, f)
		f.Close()
		if err != nil {
			log.Warn("upload failed", "file", entry.Name, "error", err)
			return fmt.Errorf("archiving %s: %w", entry.Name, err)
		}

		archived = append(archived, f)
		progress(float64(i+1) / float64(len(files)) * 100)
	}

	log.Info("upload complete")
	if u.OnArchived != nil {
		u.OnArchived(batchID, archived)
	}
	return nil
}

// claimOne resolves one staged entry, rejecting refs that are missing,
// expired, or not CSV. The control re-validates because the Ref comes
// from the client and could point at anything the store holds.
func (u *BatchUploader) claimOne(ctx context.Context, entry dropzone.File) (*File, error) {
	if entry.Ref == "" {
		return nil, fmt.Errorf("%s: missing upload reference", entry.Name)
	}

	f, err := u.store.Claim(ctx, entry.Ref)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("%s is no longer available, please select it again", entry.Name)
		case errors.Is(err, ErrExpired):
			return nil, fmt.Errorf("%s expired, please select it again", entry.Name)
		default:
			return nil, err
		}
	}

	if !IsCSV(f.Filename) {
		f.Close()
		return nil, ErrNotCSV
	}
	return f, nil
}
