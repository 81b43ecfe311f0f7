package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vaultfm/model"
)

// TrackRepository persists Track rows, including the accounting stage's
// per-track pending_blocks countdown.
type TrackRepository struct {
	db *gorm.DB
}

func NewTrackRepository(db *gorm.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// CreateMany inserts the planned tracks of a release in a single batch,
// each initialized to StatusImporting with its block countdown from the
// layout planner.
func (r *TrackRepository) CreateMany(ctx context.Context, tracks []*model.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&tracks).Error; err != nil {
		return fmt.Errorf("create %d tracks: %w", len(tracks), err)
	}
	return nil
}

func (r *TrackRepository) Get(ctx context.Context, id string) (*model.Track, error) {
	var t model.Track
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	return &t, nil
}

func (r *TrackRepository) ListByRelease(ctx context.Context, releaseID string) ([]*model.Track, error) {
	var tracks []*model.Track
	if err := r.db.WithContext(ctx).Where("release_id = ?", releaseID).Order("number asc").Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("list tracks for release %s: %w", releaseID, err)
	}
	return tracks, nil
}

// DecrementPending atomically decrements a track's pending_blocks counter
// by n and, if it reaches zero, flips the track to StatusComplete in the
// same transaction. It returns the counter's value after the decrement.
func (r *TrackRepository) DecrementPending(ctx context.Context, trackID string, n int) (int, error) {
	var remaining int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Track{}).
			Where("id = ?", trackID).
			UpdateColumn("pending_blocks", gorm.Expr("pending_blocks - ?", n))
		if res.Error != nil {
			return fmt.Errorf("decrement pending_blocks for track %s: %w", trackID, res.Error)
		}

		var t model.Track
		if err := tx.First(&t, "id = ?", trackID).Error; err != nil {
			return fmt.Errorf("reload track %s: %w", trackID, err)
		}
		remaining = t.PendingBlocks

		if remaining <= 0 && t.ImportStatus != model.StatusComplete {
			if err := tx.Model(&model.Track{}).Where("id = ?", trackID).
				Update("import_status", model.StatusComplete).Error; err != nil {
				return fmt.Errorf("mark track %s complete: %w", trackID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
