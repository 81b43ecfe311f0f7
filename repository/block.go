package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"vaultfm/model"
)

// BlockRepository persists Block and FileBlock rows and satisfies
// block.Locator so the block engine can resolve a block-id to its
// remote key without importing this package's GORM dependency.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(db *gorm.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// RemoteKey implements block.Locator.
func (r *BlockRepository) RemoteKey(ctx context.Context, blockID string) (string, error) {
	var b model.Block
	if err := r.db.WithContext(ctx).Select("remote_key").First(&b, "id = ?", blockID).Error; err != nil {
		return "", fmt.Errorf("locate block %s: %w", blockID, err)
	}
	return b.RemoteKey, nil
}

// PersistBlockAndFileBlocks inserts a Block row and its owning FileBlock
// rows atomically, matching the invariant that a FileBlock can never be
// observed without its owning Block (§4 Import pipeline, stage 3).
func (r *BlockRepository) PersistBlockAndFileBlocks(ctx context.Context, blk *model.Block, fileBlocks []*model.FileBlock) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(blk).Error; err != nil {
			return fmt.Errorf("create block %s: %w", blk.ID, err)
		}
		if len(fileBlocks) > 0 {
			if err := tx.Create(&fileBlocks).Error; err != nil {
				return fmt.Errorf("create file_blocks for block %s: %w", blk.ID, err)
			}
		}
		return nil
	})
}

// ListFileBlocksForFileRange returns, in ascending block-index order,
// every FileBlock row for fileID whose block index falls in
// [startIndex, endIndex].
func (r *BlockRepository) ListFileBlocksForFileRange(ctx context.Context, fileID string, startIndex, endIndex int) ([]*model.FileBlock, error) {
	var rows []*model.FileBlock
	err := r.db.WithContext(ctx).
		Where("file_id = ? AND block_index >= ? AND block_index <= ?", fileID, startIndex, endIndex).
		Order("block_index asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list file_blocks for file %s range [%d,%d]: %w", fileID, startIndex, endIndex, err)
	}
	return rows, nil
}

// ListIDsByRelease returns every Block id belonging to a release, used
// by the seed/unseed CLI to pin or unpin a release's blocks in bulk.
func (r *BlockRepository) ListIDsByRelease(ctx context.Context, releaseID string) ([]string, error) {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("release_id = ?", releaseID).
		Order("`index` asc").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list block ids for release %s: %w", releaseID, err)
	}
	return ids, nil
}

// CountByRelease returns how many Block rows a release has persisted so
// far.
func (r *BlockRepository) CountByRelease(ctx context.Context, releaseID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Block{}).Where("release_id = ?", releaseID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count blocks for release %s: %w", releaseID, err)
	}
	return count, nil
}
