// Package layout implements the album layout planner (§4.5): given a
// release, a planned track listing, and a discovered file set, it
// computes the file concatenation order, the byte-exact file→block
// mapping, and each track's position within its owning file, without
// touching the metadata store or the object store itself.
package layout

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"vaultfm/discimage"
	vaulterr "vaultfm/errors"
	"vaultfm/model"
)

// SourceFile describes one file the file-source collaborator (§6) found
// on disk: a relative path, its size, and its format tag.
type SourceFile struct {
	RelativePath string
	SizeBytes    int64
	Format       model.FileFormat
}

// TrackSpec is one entry of the planned track listing an import is
// given ahead of time (from the catalog metadata, out of scope here).
type TrackSpec struct {
	Number     int
	Title      string
	DurationMS int64
}

// Plan is the layout planner's output for one release: file records
// ready to persist, per-block-index FileBlock slices (BlockID left
// blank until the import pipeline mints the actual block), and the
// track/position rows including which tracks each block index touches.
type Plan struct {
	Files                []*model.File
	Tracks               []*model.Track
	Positions            []*model.TrackPosition
	FileBlocksByIndex    map[int][]*model.FileBlock
	TrackIDsByBlockIndex map[int][]string
	BlockCount           int
}

// PlanPerFile computes the per-file-mode layout (§4.5): track i maps
// 1:1 to the i-th audio file in natural-sorted path order. tracks must
// have exactly as many entries as discovered audio files.
func PlanPerFile(releaseID string, tracks []TrackSpec, files []SourceFile, blockSizeBytes int64) (*Plan, error) {
	if blockSizeBytes <= 0 {
		return nil, vaulterr.New(vaulterr.Internal, "block size must be positive")
	}

	var sidecars, audio []SourceFile
	for _, f := range files {
		if f.Format.IsAudio() {
			audio = append(audio, f)
		} else {
			sidecars = append(sidecars, f)
		}
	}
	if len(audio) == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "release has no audio files")
	}
	if len(audio) != len(tracks) {
		return nil, vaulterr.New(vaulterr.LayoutInvalid,
			fmt.Sprintf("planned track count %d does not match discovered audio file count %d", len(tracks), len(audio)))
	}

	sort.Slice(sidecars, func(i, j int) bool { return sidecars[i].RelativePath < sidecars[j].RelativePath })
	sort.Slice(audio, func(i, j int) bool { return naturalLess(audio[i].RelativePath, audio[j].RelativePath) })
	sortedTracks := append([]TrackSpec{}, tracks...)
	sort.Slice(sortedTracks, func(i, j int) bool { return sortedTracks[i].Number < sortedTracks[j].Number })

	ordered := make([]SourceFile, 0, len(sidecars)+len(audio))
	ordered = append(ordered, sidecars...)
	ordered = append(ordered, audio...)

	plan, fileRecords, fileOffsets, err := buildFileRecords(releaseID, ordered, blockSizeBytes)
	if err != nil {
		return nil, err
	}

	audioStart := len(sidecars)
	for i, spec := range sortedTracks {
		audioFile := fileRecords[audioStart+i]
		track := &model.Track{
			ID:           uuid.NewString(),
			ReleaseID:    releaseID,
			Number:       spec.Number,
			Title:        spec.Title,
			DurationMS:   spec.DurationMS,
			ImportStatus: model.StatusImporting,
		}

		startByte, endByte := int64(0), audioFile.SizeBytes
		startChunk, _ := chunkIndexFor(fileOffsets[audioStart+i]+startByte, blockSizeBytes)
		endChunk, _ := chunkIndexFor(fileOffsets[audioStart+i]+endByte-1, blockSizeBytes)

		pos := &model.TrackPosition{
			TrackID:         track.ID,
			FileID:          audioFile.ID,
			StartChunkIndex: startChunk,
			EndChunkIndex:   endChunk,
			StartByteOffset: startByte,
			EndByteOffset:   endByte,
		}
		track.PendingBlocks = endChunk - startChunk + 1

		plan.Tracks = append(plan.Tracks, track)
		plan.Positions = append(plan.Positions, pos)
		for idx := startChunk; idx <= endChunk; idx++ {
			plan.TrackIDsByBlockIndex[idx] = append(plan.TrackIDsByBlockIndex[idx], track.ID)
		}
	}

	return plan, nil
}

// PlanDiscImage computes the disc-image-mode layout (§4.5, §4.8): a
// single container is paired with sheet (already parsed by the
// discimage package) and any other sidecar files (cover art, rip log,
// the sheet file itself). containerBytes is the container's full
// content, needed for §4.8's frame-header analysis.
func PlanDiscImage(releaseID string, container SourceFile, containerBytes []byte, sidecars []SourceFile, sheet *discimage.CueSheet, blockSizeBytes int64) (*Plan, error) {
	if blockSizeBytes <= 0 {
		return nil, vaulterr.New(vaulterr.Internal, "block size must be positive")
	}
	if container.SizeBytes == 0 || len(containerBytes) == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "disc-image container is empty or unreadable")
	}

	analysis, err := discimage.Analyze(containerBytes, sheet)
	if err != nil {
		return nil, err
	}
	if len(analysis.Boundaries) == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "no tracks derived from track-boundary sheet")
	}
	if last := analysis.Boundaries[len(analysis.Boundaries)-1]; last.EndByteOffset != container.SizeBytes {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "track-boundary sheet does not tile the container to its end")
	}

	sortedSidecars := append([]SourceFile{}, sidecars...)
	sort.Slice(sortedSidecars, func(i, j int) bool { return sortedSidecars[i].RelativePath < sortedSidecars[j].RelativePath })

	ordered := append(append([]SourceFile{}, sortedSidecars...), container)

	plan, fileRecords, fileOffsets, err := buildFileRecords(releaseID, ordered, blockSizeBytes)
	if err != nil {
		return nil, err
	}
	containerFile := fileRecords[len(sortedSidecars)]
	containerFile.ContainerHeader = analysis.ContainerStreamInfoRaw
	containerOffset := fileOffsets[len(sortedSidecars)]

	for _, b := range analysis.Boundaries {
		track := &model.Track{
			ID:           uuid.NewString(),
			ReleaseID:    releaseID,
			Number:       b.Number,
			Title:        b.Title,
			DurationMS:   b.DurationMS,
			ImportStatus: model.StatusImporting,
		}

		startChunk, _ := chunkIndexFor(containerOffset+b.StartByteOffset, blockSizeBytes)
		endChunk, _ := chunkIndexFor(containerOffset+b.EndByteOffset-1, blockSizeBytes)

		pos := &model.TrackPosition{
			TrackID:         track.ID,
			FileID:          containerFile.ID,
			StartChunkIndex: startChunk,
			EndChunkIndex:   endChunk,
			StartByteOffset: b.StartByteOffset,
			EndByteOffset:   b.EndByteOffset,
			DiscImage:       true,
			SyntheticHeader: b.SyntheticHeader,
			StartSample:     b.StartSample,
		}
		track.PendingBlocks = endChunk - startChunk + 1

		plan.Tracks = append(plan.Tracks, track)
		plan.Positions = append(plan.Positions, pos)
		for idx := startChunk; idx <= endChunk; idx++ {
			plan.TrackIDsByBlockIndex[idx] = append(plan.TrackIDsByBlockIndex[idx], track.ID)
		}
	}

	return plan, nil
}

// buildFileRecords assigns ids and computes concatenated-stream offsets
// for ordered, then walks every file into its FileBlock slices.
func buildFileRecords(releaseID string, ordered []SourceFile, blockSizeBytes int64) (*Plan, []*model.File, []int64, error) {
	plan := &Plan{
		FileBlocksByIndex:    make(map[int][]*model.FileBlock),
		TrackIDsByBlockIndex: make(map[int][]string),
	}

	fileRecords := make([]*model.File, len(ordered))
	fileOffsets := make([]int64, len(ordered))
	var streamOffset int64
	for i, sf := range ordered {
		fileRecords[i] = &model.File{
			ID:           uuid.NewString(),
			ReleaseID:    releaseID,
			RelativePath: sf.RelativePath,
			SizeBytes:    sf.SizeBytes,
			Format:       sf.Format,
		}
		fileOffsets[i] = streamOffset
		streamOffset += sf.SizeBytes
	}
	if streamOffset == 0 {
		return nil, nil, nil, vaulterr.New(vaulterr.LayoutInvalid, "release is empty")
	}
	plan.Files = fileRecords
	plan.BlockCount = blockCountFor(streamOffset, blockSizeBytes)

	for i, f := range fileRecords {
		for _, fb := range fileBlocksFor(f.ID, fileOffsets[i], f.SizeBytes, blockSizeBytes) {
			plan.FileBlocksByIndex[fb.BlockIndex] = append(plan.FileBlocksByIndex[fb.BlockIndex], fb)
		}
	}

	return plan, fileRecords, fileOffsets, nil
}

// chunkIndexFor returns the block index and in-block offset of an
// absolute position in the release's concatenated byte stream.
func chunkIndexFor(streamOffset int64, blockSizeBytes int64) (index int, inBlock int) {
	return int(streamOffset / blockSizeBytes), int(streamOffset % blockSizeBytes)
}

func blockCountFor(totalSize, blockSizeBytes int64) int {
	if totalSize == 0 {
		return 0
	}
	return int((totalSize-1)/blockSizeBytes) + 1
}

// fileBlocksFor walks a file's byte range across the concatenated
// stream and returns, in ascending block-index order, one FileBlock per
// block the file touches (§4.5's byte-walking formula).
func fileBlocksFor(fileID string, fileStreamOffset, size, blockSizeBytes int64) []*model.FileBlock {
	if size == 0 {
		return nil
	}
	startBlock := int((fileStreamOffset) / blockSizeBytes)
	endBlock := int((fileStreamOffset + size - 1) / blockSizeBytes)

	out := make([]*model.FileBlock, 0, endBlock-startBlock+1)
	var fileOffset int64
	for idx := startBlock; idx <= endBlock; idx++ {
		blockStreamStart := int64(idx) * blockSizeBytes
		blockStreamEnd := blockStreamStart + blockSizeBytes

		sliceStreamStart := fileStreamOffset + fileOffset
		sliceStreamEnd := blockStreamEnd
		if fileStreamOffset+size < sliceStreamEnd {
			sliceStreamEnd = fileStreamOffset + size
		}

		startInBlock := int(sliceStreamStart - blockStreamStart)
		endInBlock := int(sliceStreamEnd - blockStreamStart)

		out = append(out, &model.FileBlock{
			FileID:       fileID,
			BlockIndex:   idx,
			StartInBlock: startInBlock,
			EndInBlock:   endInBlock,
			FileOffset:   fileOffset,
		})
		fileOffset += int64(endInBlock - startInBlock)
	}
	return out
}
