package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vaultfm/discimage"
	"vaultfm/importpipeline"
	"vaultfm/layout"
	"vaultfm/logger"
	"vaultfm/model"
	"vaultfm/sourcefs"
)

var (
	importSourceDir  string
	importDiscImage  bool
	importTracklist  string
	importReleaseRef string
)

// trackListEntry is the per-file-mode track listing an import is given
// ahead of time (§4.5 — the catalog metadata that supplies numbers,
// titles, and durations is out of this engine's scope, so the CLI reads
// it from a small JSON sidecar instead of a real catalog service).
type trackListEntry struct {
	Number     int    `json:"number"`
	Title      string `json:"title"`
	DurationMS int64  `json:"durationMs"`
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a release's source files into content-addressed encrypted blocks.",
	Long: "Discovers the audio and sidecar files in --source, plans the album layout " +
		"(per-file or disc-image, per --disc-image), and streams every block through " +
		"the encrypt/upload pipeline to completion.",
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importSourceDir, "source", "", "directory holding the release's source files (required)")
	importCmd.Flags().BoolVar(&importDiscImage, "disc-image", false, "treat the source directory as a single-container disc image with a .cue sheet")
	importCmd.Flags().StringVar(&importTracklist, "tracklist", "", "path to a JSON track listing (required for per-file mode; ignored for --disc-image)")
	importCmd.Flags().StringVar(&importReleaseRef, "catalog-ref", "", "optional external catalog identifier to store on the release")
	_ = importCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()
	releaseID := uuid.NewString()

	files, err := sourcefs.Discover(importSourceDir)
	if err != nil {
		return err
	}

	var plan *layout.Plan
	if importDiscImage {
		plan, err = planDiscImageImport(files, releaseID, a.cfg.BlockSizeBytes)
	} else {
		plan, err = planPerFileImport(files, releaseID, a.cfg.BlockSizeBytes)
	}
	if err != nil {
		return err
	}

	release := &model.Release{
		ID:             releaseID,
		CatalogRef:     importReleaseRef,
		ImportStatus:   model.StatusQueued,
		BlockSizeBytes: a.cfg.BlockSizeBytes,
	}
	if err := a.releases.Create(ctx, release); err != nil {
		return err
	}

	logger.Info("starting release import",
		logger.String("release_id", releaseID),
		logger.String("source", importSourceDir))

	err = a.pipeline.Run(ctx, importpipeline.ImportRequest{
		ReleaseID: releaseID,
		SourceDir: importSourceDir,
		Plan:      plan,
	})
	if err != nil {
		return fmt.Errorf("import failed for release %s: %w", releaseID, err)
	}

	fmt.Printf("release %s imported: %d file(s), %d track(s), %d block(s)\n",
		releaseID, len(plan.Files), len(plan.Tracks), plan.BlockCount)
	return nil
}

func planPerFileImport(files []layout.SourceFile, releaseID string, blockSize int64) (*layout.Plan, error) {
	if importTracklist == "" {
		return nil, fmt.Errorf("--tracklist is required for per-file mode")
	}
	raw, err := os.ReadFile(importTracklist)
	if err != nil {
		return nil, fmt.Errorf("read tracklist %s: %w", importTracklist, err)
	}
	var entries []trackListEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse tracklist %s: %w", importTracklist, err)
	}

	specs := make([]layout.TrackSpec, len(entries))
	for i, e := range entries {
		specs[i] = layout.TrackSpec{Number: e.Number, Title: e.Title, DurationMS: e.DurationMS}
	}
	return layout.PlanPerFile(releaseID, specs, files, blockSize)
}

func planDiscImageImport(files []layout.SourceFile, releaseID string, blockSize int64) (*layout.Plan, error) {
	cueFile, err := sourcefs.FindCueSheet(files)
	if err != nil {
		return nil, err
	}
	container, sidecars, err := sourcefs.SplitContainer(files)
	if err != nil {
		return nil, err
	}

	cueBytes, err := os.ReadFile(filepath.Join(importSourceDir, cueFile.RelativePath))
	if err != nil {
		return nil, fmt.Errorf("read cue sheet %s: %w", cueFile.RelativePath, err)
	}
	sheet, err := discimage.ParseCueSheet(cueBytes)
	if err != nil {
		return nil, err
	}

	containerBytes, err := os.ReadFile(filepath.Join(importSourceDir, container.RelativePath))
	if err != nil {
		return nil, fmt.Errorf("read container %s: %w", container.RelativePath, err)
	}

	return layout.PlanDiscImage(releaseID, container, containerBytes, sidecars, sheet, blockSize)
}
