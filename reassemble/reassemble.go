// Package reassemble implements the track reassembler (§4.7, §4.8.1):
// resolving a track-id to the chunk range that holds its audio, fetching
// and decrypting those chunks through the block engine, splicing them
// into the track's exact byte range, and — for disc-image tracks —
// re-minting a standalone decodable container by rewriting frame
// headers and prepending the track's synthetic header.
package reassemble

import (
	"context"
	"fmt"

	"vaultfm/discimage"
	vaulterr "vaultfm/errors"
	"vaultfm/logger"
	"vaultfm/model"
)

// BlockEngine is the subset of block.Engine the reassembler depends on.
type BlockEngine interface {
	FetchPlaintext(ctx context.Context, blockID string) ([]byte, error)
}

// PositionStore resolves a track to its TrackPosition row.
type PositionStore interface {
	GetByTrack(ctx context.Context, trackID string) (*model.TrackPosition, error)
}

// FileStore resolves a file id to its File row.
type FileStore interface {
	Get(ctx context.Context, id string) (*model.File, error)
}

// FileBlockStore returns the FileBlock rows covering a byte range of a file.
type FileBlockStore interface {
	ListFileBlocksForFileRange(ctx context.Context, fileID string, startIndex, endIndex int) ([]*model.FileBlock, error)
}

// Reassembler is the public façade §4.7 describes: one operation,
// Reassemble, backed by the block engine and the metadata store's
// position/file/file-block lookups.
type Reassembler struct {
	engine     BlockEngine
	positions  PositionStore
	files      FileStore
	fileBlocks FileBlockStore
}

// New constructs a Reassembler over its collaborators.
func New(engine BlockEngine, positions PositionStore, files FileStore, fileBlocks FileBlockStore) *Reassembler {
	return &Reassembler{engine: engine, positions: positions, files: files, fileBlocks: fileBlocks}
}

// Reassemble returns the exact byte payload of a track: its original
// file bytes for a per-file-mode track, or a standalone decodable
// container for a disc-image-mode track.
func (r *Reassembler) Reassemble(ctx context.Context, trackID string) ([]byte, error) {
	pos, err := r.positions.GetByTrack(ctx, trackID)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.NotFound, "load track position for "+trackID, err)
	}

	file, err := r.files.Get(ctx, pos.FileID)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.NotFound, "load file "+pos.FileID, err)
	}

	logger.Debug("reassembling track",
		logger.String("track_id", trackID),
		logger.String("file", file.RelativePath),
		logger.Int("start_chunk", pos.StartChunkIndex),
		logger.Int("end_chunk", pos.EndChunkIndex))

	fileBlocks, err := r.fileBlocks.ListFileBlocksForFileRange(ctx, pos.FileID, pos.StartChunkIndex, pos.EndChunkIndex)
	if err != nil {
		return nil, err
	}
	if len(fileBlocks) == 0 {
		return nil, vaulterr.New(vaulterr.Internal, "no file_blocks rows cover track "+trackID+"'s position range")
	}

	var streamBuf []byte
	firstFileOffset := fileBlocks[0].FileOffset
	for _, fb := range fileBlocks {
		plaintext, err := r.engine.FetchPlaintext(ctx, fb.BlockID)
		if err != nil {
			logger.Warn("fetch failed while reassembling track",
				logger.String("track_id", trackID),
				logger.String("block_id", fb.BlockID),
				logger.ErrorField(err))
			return nil, err
		}
		if fb.StartInBlock < 0 || fb.StartInBlock > fb.EndInBlock || fb.EndInBlock > len(plaintext) {
			return nil, vaulterr.New(vaulterr.Internal,
				fmt.Sprintf("file_block slice [%d,%d) out of bounds of block %s plaintext len %d",
					fb.StartInBlock, fb.EndInBlock, fb.BlockID, len(plaintext)))
		}
		streamBuf = append(streamBuf, plaintext[fb.StartInBlock:fb.EndInBlock]...)
	}

	relLo := pos.StartByteOffset - firstFileOffset
	relHi := relLo + (pos.EndByteOffset - pos.StartByteOffset)
	if relLo < 0 || relHi > int64(len(streamBuf)) {
		return nil, vaulterr.New(vaulterr.Internal, "track "+trackID+"'s byte range falls outside its file_blocks coverage")
	}
	payload := streamBuf[relLo:relHi]

	if !pos.DiscImage {
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	}

	rewritten, err := discimage.RewriteFramePayload(payload, pos.StartSample)
	if err != nil {
		return nil, vaulterr.Wrap(vaulterr.CorruptBlock, "rewrite frame headers for track "+trackID, err)
	}

	out := make([]byte, 0, len(pos.SyntheticHeader)+len(rewritten))
	out = append(out, pos.SyntheticHeader...)
	out = append(out, rewritten...)
	return out, nil
}
