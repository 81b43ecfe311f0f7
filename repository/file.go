package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vaultfm/model"
)

// FileRepository persists File rows.
type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) CreateMany(ctx context.Context, files []*model.File) error {
	if len(files) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&files).Error; err != nil {
		return fmt.Errorf("create %d files: %w", len(files), err)
	}
	return nil
}

func (r *FileRepository) Get(ctx context.Context, id string) (*model.File, error) {
	var f model.File
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get file %s: %w", id, err)
	}
	return &f, nil
}

func (r *FileRepository) ListByRelease(ctx context.Context, releaseID string) ([]*model.File, error) {
	var files []*model.File
	if err := r.db.WithContext(ctx).Where("release_id = ?", releaseID).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files for release %s: %w", releaseID, err)
	}
	return files, nil
}
