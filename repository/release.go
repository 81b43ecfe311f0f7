// Package repository is the metadata store: GORM-backed repositories over
// the entities in the model package, providing the compare-and-set and
// multi-row transaction primitives the import pipeline and reassembler
// require.
package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vaultfm/model"
)

// ReleaseRepository persists Release rows and enforces the single-writer
// import invariant via a compare-and-set status transition.
type ReleaseRepository struct {
	db *gorm.DB
}

func NewReleaseRepository(db *gorm.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// Create inserts a new release in StatusQueued.
func (r *ReleaseRepository) Create(ctx context.Context, release *model.Release) error {
	if release.ImportStatus == "" {
		release.ImportStatus = model.StatusQueued
	}
	if err := r.db.WithContext(ctx).Create(release).Error; err != nil {
		return fmt.Errorf("create release %s: %w", release.ID, err)
	}
	return nil
}

// Get loads a release by id.
func (r *ReleaseRepository) Get(ctx context.Context, id string) (*model.Release, error) {
	var rel model.Release
	if err := r.db.WithContext(ctx).First(&rel, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get release %s: %w", id, err)
	}
	return &rel, nil
}

// TransitionStatus performs a conditional UPDATE from `from` to `to` and
// reports whether it took effect. A false result with no error means
// another writer already moved the release out of `from` — the caller
// is expected to treat this as "import already in progress."
func (r *ReleaseRepository) TransitionStatus(ctx context.Context, id string, from, to model.ImportStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Release{}).
		Where("id = ? AND import_status = ?", id, from).
		Update("import_status", to)
	if res.Error != nil {
		return false, fmt.Errorf("transition release %s status %s->%s: %w", id, from, to, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkFailed moves a release to StatusFailed unconditionally (used on
// pipeline abort, where the prior status is already known to be importing).
func (r *ReleaseRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	err := r.db.WithContext(ctx).Model(&model.Release{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"import_status":  model.StatusFailed,
			"failure_reason": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("mark release %s failed: %w", id, err)
	}
	return nil
}

// MarkComplete moves a release to StatusComplete once its accounting
// stage has observed every track reach StatusComplete.
func (r *ReleaseRepository) MarkComplete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&model.Release{}).
		Where("id = ?", id).
		Update("import_status", model.StatusComplete).Error
	if err != nil {
		return fmt.Errorf("mark release %s complete: %w", id, err)
	}
	return nil
}
