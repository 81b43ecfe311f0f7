package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vaultfm/model"
)

// TrackPositionRepository persists TrackPosition rows.
type TrackPositionRepository struct {
	db *gorm.DB
}

func NewTrackPositionRepository(db *gorm.DB) *TrackPositionRepository {
	return &TrackPositionRepository{db: db}
}

func (r *TrackPositionRepository) CreateMany(ctx context.Context, positions []*model.TrackPosition) error {
	if len(positions) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&positions).Error; err != nil {
		return fmt.Errorf("create %d track_positions: %w", len(positions), err)
	}
	return nil
}

func (r *TrackPositionRepository) GetByTrack(ctx context.Context, trackID string) (*model.TrackPosition, error) {
	var pos model.TrackPosition
	if err := r.db.WithContext(ctx).First(&pos, "track_id = ?", trackID).Error; err != nil {
		return nil, fmt.Errorf("get track_position for track %s: %w", trackID, err)
	}
	return &pos, nil
}
