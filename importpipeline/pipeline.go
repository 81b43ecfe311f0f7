// Package importpipeline implements the bounded, three-stage streaming
// import pipeline (§4.6): a single reader produces block-size plaintext
// buffers, a pool of encryptors seals them, and a pool of
// uploader/persistor workers writes the encrypted bytes to the object
// store, mirrors them into the cache, and durably records the Block and
// FileBlock rows the layout planner precomputed, decrementing each
// touched track's pending-block counter as it goes.
package importpipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"vaultfm/block"
	vaulterr "vaultfm/errors"
	"vaultfm/layout"
	"vaultfm/logger"
	"vaultfm/model"
	"vaultfm/storage"
)

// KeyProvider supplies the active symmetric key new blocks are encrypted under.
type KeyProvider interface {
	ActiveKID() string
	KeyFor(kid string) ([]byte, error)
}

// BlockEngine is the subset of block.Engine the pipeline's upload stage needs.
type BlockEngine interface {
	StoreEncrypted(ctx context.Context, remoteKey, blockID string, encrypted []byte) error
}

// BlockPersister persists a Block row and its owning FileBlock rows atomically.
type BlockPersister interface {
	PersistBlockAndFileBlocks(ctx context.Context, blk *model.Block, fileBlocks []*model.FileBlock) error
}

// TrackAccountant decrements a track's pending-block countdown,
// flipping it to complete in the same transaction once it reaches zero.
type TrackAccountant interface {
	DecrementPending(ctx context.Context, trackID string, n int) (int, error)
}

// ReleaseStore drives the release state machine (§5's single-writer CAS).
type ReleaseStore interface {
	TransitionStatus(ctx context.Context, id string, from, to model.ImportStatus) (bool, error)
	MarkFailed(ctx context.Context, id string, reason string) error
	MarkComplete(ctx context.Context, id string) error
}

// FileStore, TrackStore, and PositionStore persist the layout planner's
// output ahead of the streaming stages.
type FileStore interface {
	CreateMany(ctx context.Context, files []*model.File) error
}
type TrackStore interface {
	CreateMany(ctx context.Context, tracks []*model.Track) error
}
type PositionStore interface {
	CreateMany(ctx context.Context, positions []*model.TrackPosition) error
}

// Config controls the pipeline's concurrency and backpressure knobs
// (§6's configuration table).
type Config struct {
	BlockSizeBytes        int64
	EncryptWorkers        int // 0 => 2 x NumCPU
	UploadWorkers         int
	ReaderChannelCapacity int
}

// ProgressKind classifies a ProgressEvent.
type ProgressKind int

const (
	ProgressTrackComplete ProgressKind = iota
	ProgressReleaseComplete
	ProgressFailed
)

// ProgressEvent is emitted as tracks complete and, on failure, exactly
// once with the terminal error.
type ProgressEvent struct {
	ReleaseID string
	TrackID   string
	Kind      ProgressKind
	Err       error
}

// ImportRequest bundles a pre-validated layout.Plan with the release it
// belongs to and the directory its source files can be read from.
type ImportRequest struct {
	ReleaseID string
	SourceDir string
	Plan      *layout.Plan
}

// Pipeline is the façade §4.6 describes. Run drives one release's
// import to completion or failure; only one Run per release may be
// in flight at a time (enforced by the release's CAS transition).
type Pipeline struct {
	cfg       Config
	keys      KeyProvider
	engine    BlockEngine
	blocks    BlockPersister
	tracks    TrackAccountant
	releases  ReleaseStore
	files     FileStore
	trackRows TrackStore
	positions PositionStore

	// Progress, if set, is sent a ProgressTrackComplete event per
	// completed track and one terminal event. Sends never block: an
	// event is dropped when the channel has no free buffer space or
	// waiting receiver.
	Progress chan<- ProgressEvent
}

// New constructs a Pipeline over its collaborators.
func New(cfg Config, keys KeyProvider, engine BlockEngine, blocks BlockPersister, tracks TrackAccountant,
	releases ReleaseStore, files FileStore, trackRows TrackStore, positions PositionStore) *Pipeline {
	return &Pipeline{
		cfg: cfg, keys: keys, engine: engine, blocks: blocks, tracks: tracks,
		releases: releases, files: files, trackRows: trackRows, positions: positions,
	}
}

// Run executes the full import for req.ReleaseID: validates the
// release's queued->importing CAS transition, persists the layout's
// files/tracks/positions, then streams the source bytes through the
// reader, encryptor, and uploader stages until every block lands or the
// pipeline fails.
func (p *Pipeline) Run(ctx context.Context, req ImportRequest) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ok, err := p.releases.TransitionStatus(ctx, req.ReleaseID, model.StatusQueued, model.StatusImporting)
	if err != nil {
		return err
	}
	if !ok {
		return vaulterr.New(vaulterr.Internal, "release "+req.ReleaseID+" is not queued for import")
	}

	if err := p.files.CreateMany(ctx, req.Plan.Files); err != nil {
		return p.abort(ctx, req.ReleaseID, vaulterr.Wrap(vaulterr.Internal, "persist file rows", err))
	}
	if err := p.trackRows.CreateMany(ctx, req.Plan.Tracks); err != nil {
		return p.abort(ctx, req.ReleaseID, vaulterr.Wrap(vaulterr.Internal, "persist track rows", err))
	}
	if err := p.positions.CreateMany(ctx, req.Plan.Positions); err != nil {
		return p.abort(ctx, req.ReleaseID, vaulterr.Wrap(vaulterr.Internal, "persist track_position rows", err))
	}

	logger.Info("import pipeline starting",
		logger.String("release_id", req.ReleaseID),
		logger.Int("file_count", len(req.Plan.Files)),
		logger.Int("track_count", len(req.Plan.Tracks)),
		logger.Int("block_count", req.Plan.BlockCount))

	readCh := make(chan readItem, p.cfg.ReaderChannelCapacity)
	encCh := make(chan encItem, p.cfg.UploadWorkers)

	var once sync.Once
	var firstErr error
	fail := func(err error) {
		if err == nil {
			return
		}
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	var readerWG sync.WaitGroup
	readerWG.Add(1)
	go func() {
		defer readerWG.Done()
		fail(runReader(ctx, req.SourceDir, req.Plan.Files, p.cfg.BlockSizeBytes, readCh))
	}()

	encWorkers := p.cfg.EncryptWorkers
	if encWorkers <= 0 {
		encWorkers = 2 * runtime.NumCPU()
	}
	var encWG sync.WaitGroup
	for i := 0; i < encWorkers; i++ {
		encWG.Add(1)
		go func() {
			defer encWG.Done()
			fail(p.runEncryptWorker(ctx, readCh, encCh))
		}()
	}
	go func() {
		encWG.Wait()
		close(encCh)
	}()

	var tracksRemaining int32 = int32(len(req.Plan.Tracks))
	var uploadWG sync.WaitGroup
	for i := 0; i < p.cfg.UploadWorkers; i++ {
		uploadWG.Add(1)
		go func() {
			defer uploadWG.Done()
			fail(p.runUploadWorker(ctx, req, encCh, &tracksRemaining))
		}()
	}

	readerWG.Wait()
	encWG.Wait()
	uploadWG.Wait()

	if firstErr != nil {
		return p.abort(context.Background(), req.ReleaseID, firstErr)
	}

	if err := p.releases.MarkComplete(context.Background(), req.ReleaseID); err != nil {
		return err
	}
	p.emit(ProgressEvent{ReleaseID: req.ReleaseID, Kind: ProgressReleaseComplete})
	logger.Info("import pipeline complete", logger.String("release_id", req.ReleaseID))
	return nil
}

// abort marks the release failed and emits the single terminal progress
// event §7 requires, then returns cause unchanged.
func (p *Pipeline) abort(ctx context.Context, releaseID string, cause error) error {
	logger.Error("import pipeline aborted",
		logger.String("release_id", releaseID),
		logger.ErrorField(cause))
	if err := p.releases.MarkFailed(ctx, releaseID, cause.Error()); err != nil {
		logger.Error("failed to mark release failed",
			logger.String("release_id", releaseID),
			logger.ErrorField(err))
	}
	p.emit(ProgressEvent{ReleaseID: releaseID, Kind: ProgressFailed, Err: cause})
	return cause
}

func (p *Pipeline) emit(evt ProgressEvent) {
	if p.Progress == nil {
		return
	}
	select {
	case p.Progress <- evt:
	default:
	}
}

// runEncryptWorker draws plaintext buffers off in, mints a fresh block
// id, encrypts on this goroutine (CPU-bound but not otherwise
// coordinated with I/O, matching §5's "dispatch to a blocking thread
// pool" contract loosely — Go's scheduler already parks I/O-bound
// goroutines, so a plain worker pool sized at 2xNumCPU achieves the same
// bound without a separate pool abstraction), and forwards the sealed
// block to out.
func (p *Pipeline) runEncryptWorker(ctx context.Context, in <-chan readItem, out chan<- encItem) error {
	kid := p.keys.ActiveKID()
	key, err := p.keys.KeyFor(kid)
	if err != nil {
		return vaulterr.Wrap(vaulterr.Internal, "resolve active key", err)
	}

	for {
		select {
		case item, ok := <-in:
			if !ok {
				return nil
			}
			encrypted, err := block.Encode(item.plaintext, key, kid)
			if err != nil {
				return err
			}
			select {
			case out <- encItem{index: item.index, blockID: uuid.NewString(), encrypted: encrypted}:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// runUploadWorker drains encCh, uploading and persisting each block and
// decrementing every track it touches. A persistence error is fatal
// (fail-fast per §4.6); a track reaching zero pending blocks flips it
// to complete. The release itself is marked complete by Run once every
// worker has returned without error.
func (p *Pipeline) runUploadWorker(ctx context.Context, req ImportRequest, in <-chan encItem, tracksRemaining *int32) error {
	for item := range in {
		remoteKey := storage.BlockKey(item.blockID)
		if err := p.engine.StoreEncrypted(ctx, remoteKey, item.blockID, item.encrypted); err != nil {
			return err
		}

		blk := &model.Block{
			ID:            item.blockID,
			ReleaseID:     req.ReleaseID,
			Index:         item.index,
			EncryptedSize: int64(len(item.encrypted)),
			RemoteKey:     remoteKey,
		}
		fileBlocks := req.Plan.FileBlocksByIndex[item.index]
		for _, fb := range fileBlocks {
			fb.BlockID = item.blockID
		}
		if err := p.blocks.PersistBlockAndFileBlocks(ctx, blk, fileBlocks); err != nil {
			return vaulterr.Wrap(vaulterr.TransientIO, "persist block "+item.blockID, err)
		}

		for _, trackID := range req.Plan.TrackIDsByBlockIndex[item.index] {
			remaining, err := p.tracks.DecrementPending(ctx, trackID, 1)
			if err != nil {
				return err
			}
			if remaining > 0 {
				continue
			}
			p.emit(ProgressEvent{ReleaseID: req.ReleaseID, TrackID: trackID, Kind: ProgressTrackComplete})
			if atomic.AddInt32(tracksRemaining, -1) == 0 {
				// Every track is complete; the release-level transition
				// happens once in Run after all workers finish, so this
				// branch only logs the milestone.
				logger.Info("all tracks complete", logger.String("release_id", req.ReleaseID))
			}
		}
	}
	return nil
}
