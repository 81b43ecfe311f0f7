package importpipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"vaultfm/block"
	"vaultfm/layout"
	"vaultfm/model"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

type fakeKeys struct{ key []byte }

func (f *fakeKeys) ActiveKID() string { return "kid-1" }
func (f *fakeKeys) KeyFor(kid string) ([]byte, error) {
	if kid != "kid-1" {
		return nil, errors.New("unknown kid")
	}
	return f.key, nil
}

type fakeBlockEngine struct {
	mu    sync.Mutex
	store map[string][]byte
}

func newFakeBlockEngine() *fakeBlockEngine {
	return &fakeBlockEngine{store: make(map[string][]byte)}
}

func (f *fakeBlockEngine) StoreEncrypted(ctx context.Context, remoteKey, blockID string, encrypted []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[blockID] = append([]byte{}, encrypted...)
	return nil
}

type fakeBlockPersister struct {
	mu         sync.Mutex
	blocks     map[string]*model.Block
	fileBlocks map[string][]*model.FileBlock // by fileID
}

func newFakeBlockPersister() *fakeBlockPersister {
	return &fakeBlockPersister{blocks: make(map[string]*model.Block), fileBlocks: make(map[string][]*model.FileBlock)}
}

func (f *fakeBlockPersister) PersistBlockAndFileBlocks(ctx context.Context, blk *model.Block, fileBlocks []*model.FileBlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[blk.ID] = blk
	for _, fb := range fileBlocks {
		f.fileBlocks[fb.FileID] = append(f.fileBlocks[fb.FileID], fb)
	}
	return nil
}

type fakeTrackAccountant struct {
	mu       sync.Mutex
	pending  map[string]int
	decrCall int
}

func newFakeTrackAccountant(tracks []*model.Track) *fakeTrackAccountant {
	pending := make(map[string]int, len(tracks))
	for _, tr := range tracks {
		pending[tr.ID] = tr.PendingBlocks
	}
	return &fakeTrackAccountant{pending: pending}
}

func (f *fakeTrackAccountant) DecrementPending(ctx context.Context, trackID string, n int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decrCall++
	f.pending[trackID] -= n
	return f.pending[trackID], nil
}

type fakeReleaseStore struct {
	mu     sync.Mutex
	status model.ImportStatus
	reason string
}

func newFakeReleaseStore() *fakeReleaseStore {
	return &fakeReleaseStore{status: model.StatusQueued}
}

func (f *fakeReleaseStore) TransitionStatus(ctx context.Context, id string, from, to model.ImportStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != from {
		return false, nil
	}
	f.status = to
	return true, nil
}

func (f *fakeReleaseStore) MarkFailed(ctx context.Context, id string, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = model.StatusFailed
	f.reason = reason
	return nil
}

func (f *fakeReleaseStore) MarkComplete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = model.StatusComplete
	return nil
}

type fakeFileStore struct{ created []*model.File }

func (f *fakeFileStore) CreateMany(ctx context.Context, files []*model.File) error {
	f.created = append(f.created, files...)
	return nil
}

type fakeTrackStore struct{ created []*model.Track }

func (f *fakeTrackStore) CreateMany(ctx context.Context, tracks []*model.Track) error {
	f.created = append(f.created, tracks...)
	return nil
}

type fakePositionStore struct{ created []*model.TrackPosition }

func (f *fakePositionStore) CreateMany(ctx context.Context, positions []*model.TrackPosition) error {
	f.created = append(f.created, positions...)
	return nil
}

// writeSourceFiles materializes files with the given contents under dir,
// returning layout.SourceFile descriptors sorted the way the discoverer
// would produce them.
func writeSourceFiles(t *testing.T, dir string, contents map[string][]byte) []layout.SourceFile {
	t.Helper()
	var files []layout.SourceFile
	for name, data := range contents {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write fixture %s: %v", name, err)
		}
		files = append(files, layout.SourceFile{RelativePath: name, SizeBytes: int64(len(data)), Format: model.FormatFLAC})
	}
	return files
}

func TestPipelineRunEncryptsAndPersistsEveryBlock(t *testing.T) {
	dir := t.TempDir()
	track1Data := bytes.Repeat([]byte("A"), 25)
	track2Data := bytes.Repeat([]byte("B"), 10)
	sourceFiles := writeSourceFiles(t, dir, map[string][]byte{
		"01 - one.flac": track1Data,
		"02 - two.flac": track2Data,
	})

	plan, err := layout.PlanPerFile("release-1", []layout.TrackSpec{
		{Number: 1, Title: "One", DurationMS: 1000},
		{Number: 2, Title: "Two", DurationMS: 2000},
	}, sourceFiles, 8)
	if err != nil {
		t.Fatalf("PlanPerFile: %v", err)
	}

	engine := newFakeBlockEngine()
	persister := newFakeBlockPersister()
	accountant := newFakeTrackAccountant(plan.Tracks)
	releases := newFakeReleaseStore()
	files := &fakeFileStore{}
	trackRows := &fakeTrackStore{}
	positions := &fakePositionStore{}

	pipeline := New(Config{
		BlockSizeBytes:        8,
		EncryptWorkers:        2,
		UploadWorkers:         2,
		ReaderChannelCapacity: 4,
	}, &fakeKeys{key: testKey()}, engine, persister, accountant, releases, files, trackRows, positions)

	progress := make(chan ProgressEvent, 16)
	pipeline.Progress = progress

	if err := pipeline.Run(context.Background(), ImportRequest{ReleaseID: "release-1", SourceDir: dir, Plan: plan}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if releases.status != model.StatusComplete {
		t.Fatalf("release status = %v, want complete", releases.status)
	}
	if len(persister.blocks) != plan.BlockCount {
		t.Fatalf("persisted %d blocks, want %d", len(persister.blocks), plan.BlockCount)
	}
	if len(files.created) != len(plan.Files) {
		t.Fatalf("created %d file rows, want %d", len(files.created), len(plan.Files))
	}
	if len(trackRows.created) != len(plan.Tracks) {
		t.Fatalf("created %d track rows, want %d", len(trackRows.created), len(plan.Tracks))
	}

	for _, tr := range plan.Tracks {
		if remaining := accountant.pending[tr.ID]; remaining != 0 {
			t.Fatalf("track %s pending = %d, want 0", tr.ID, remaining)
		}
	}

	// Decrypt every persisted block and confirm the concatenated plaintext
	// matches the original source bytes exactly.
	var reconstructed []byte
	for idx := 0; idx < plan.BlockCount; idx++ {
		var blockID string
		for id, blk := range persister.blocks {
			if blk.Index == idx {
				blockID = id
				break
			}
		}
		if blockID == "" {
			t.Fatalf("no persisted block found for index %d", idx)
		}
		envelope := engine.store[blockID]
		plaintext, err := block.Decode(envelope, func(kid string) ([]byte, error) { return testKey(), nil })
		if err != nil {
			t.Fatalf("decode block %d: %v", idx, err)
		}
		reconstructed = append(reconstructed, plaintext...)
	}

	want := append(append([]byte{}, track1Data...), track2Data...)
	if !bytes.Equal(reconstructed, want) {
		t.Fatalf("reconstructed stream does not match source bytes")
	}

	close(progress)
	sawReleaseComplete := false
	trackCompletes := 0
	for evt := range progress {
		switch evt.Kind {
		case ProgressReleaseComplete:
			sawReleaseComplete = true
		case ProgressTrackComplete:
			trackCompletes++
		}
	}
	if !sawReleaseComplete {
		t.Fatal("expected a terminal ProgressReleaseComplete event")
	}
	if trackCompletes != len(plan.Tracks) {
		t.Fatalf("saw %d track-complete events, want %d", trackCompletes, len(plan.Tracks))
	}
}

func TestPipelineRunRejectsReleaseNotQueued(t *testing.T) {
	dir := t.TempDir()
	sourceFiles := writeSourceFiles(t, dir, map[string][]byte{"01.flac": []byte("hello")})
	plan, err := layout.PlanPerFile("release-1", []layout.TrackSpec{{Number: 1, Title: "One"}}, sourceFiles, 8)
	if err != nil {
		t.Fatalf("PlanPerFile: %v", err)
	}

	releases := newFakeReleaseStore()
	releases.status = model.StatusImporting // already in flight

	pipeline := New(Config{BlockSizeBytes: 8, EncryptWorkers: 1, UploadWorkers: 1, ReaderChannelCapacity: 1},
		&fakeKeys{key: testKey()}, newFakeBlockEngine(), newFakeBlockPersister(), newFakeTrackAccountant(plan.Tracks),
		releases, &fakeFileStore{}, &fakeTrackStore{}, &fakePositionStore{})

	err = pipeline.Run(context.Background(), ImportRequest{ReleaseID: "release-1", SourceDir: dir, Plan: plan})
	if err == nil {
		t.Fatal("expected an error when the release is not queued")
	}
}

// failingPersister fails every persist attempt, exercising the
// fail-fast cancellation path.
type failingPersister struct{}

func (f *failingPersister) PersistBlockAndFileBlocks(ctx context.Context, blk *model.Block, fileBlocks []*model.FileBlock) error {
	return errors.New("simulated persistence failure")
}

func TestPipelineRunAbortsOnPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	sourceFiles := writeSourceFiles(t, dir, map[string][]byte{
		"01.flac": bytes.Repeat([]byte("Z"), 40),
	})
	plan, err := layout.PlanPerFile("release-1", []layout.TrackSpec{{Number: 1, Title: "One"}}, sourceFiles, 8)
	if err != nil {
		t.Fatalf("PlanPerFile: %v", err)
	}

	releases := newFakeReleaseStore()
	pipeline := New(Config{BlockSizeBytes: 8, EncryptWorkers: 2, UploadWorkers: 2, ReaderChannelCapacity: 2},
		&fakeKeys{key: testKey()}, newFakeBlockEngine(), &failingPersister{}, newFakeTrackAccountant(plan.Tracks),
		releases, &fakeFileStore{}, &fakeTrackStore{}, &fakePositionStore{})

	err = pipeline.Run(context.Background(), ImportRequest{ReleaseID: "release-1", SourceDir: dir, Plan: plan})
	if err == nil {
		t.Fatal("expected the pipeline to fail when persistence fails")
	}
	if releases.status != model.StatusFailed {
		t.Fatalf("release status = %v, want failed", releases.status)
	}
	if releases.reason == "" {
		t.Fatal("expected a failure reason to be recorded")
	}
}
