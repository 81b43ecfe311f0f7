package discimage

import (
	vaulterr "vaultfm/errors"
)

// TrackBoundary is one track's derived byte range within a disc-image
// container, plus the standalone header (§4.8 step 4) the reassembler
// prepends to that track's spliced audio.
type TrackBoundary struct {
	Number          int
	Title           string
	Performer       string
	DurationMS      int64
	StartByteOffset int64
	EndByteOffset   int64
	// StartSample is the frame's own encoded number (a sample number on
	// variable-block-size streams, a frame index on fixed-block-size
	// streams) at the track's first frame — exactly what
	// RewriteFramePayload rebases every subsequent frame number against.
	StartSample     uint64
	SyntheticHeader []byte
}

// AnalyzeResult is the disc-image analyzer's output for one container.
type AnalyzeResult struct {
	ContainerStreamInfoRaw []byte
	SampleRate              uint32
	Boundaries              []TrackBoundary
}

// Analyze parses the container's STREAMINFO block, builds its
// frame-header seek table, and derives, for every track in sheet, its
// byte range within the container and a standalone synthetic header.
// It never decodes audio payload (§4.8).
func Analyze(containerBytes []byte, sheet *CueSheet) (*AnalyzeResult, error) {
	streamInfoRaw, audioStart, err := FindAudioStart(containerBytes)
	if err != nil {
		return nil, err
	}
	si, err := ParseStreamInfo(streamInfoRaw)
	if err != nil {
		return nil, err
	}
	if si.SampleRate == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "container STREAMINFO reports zero sample rate")
	}

	seekTable, err := BuildSeekTable(containerBytes, audioStart)
	if err != nil {
		return nil, err
	}

	// Fixed-block-size streams number frames by frame index, so a cue
	// point's sample position is converted to a frame index (using the
	// STREAMINFO block size) before the seek-table lookup.
	fixedBlockSize := frameHeadersAreFrameIndexed(containerBytes, audioStart)
	blockSize := uint64(si.MaxBlockSize)
	if fixedBlockSize && blockSize == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "container STREAMINFO reports zero block size")
	}

	type resolved struct {
		cue        CueTrack
		byteOffset int64
		number     uint64
	}
	resolvedTracks := make([]resolved, 0, len(sheet.Tracks))
	for _, t := range sheet.Tracks {
		startSample := uint64(t.StartMS) * uint64(si.SampleRate) / 1000
		lookup := startSample
		if fixedBlockSize {
			lookup = startSample / blockSize
		}
		byteOffset, number, ok := seekTable.ByteOffsetForSample(lookup)
		if !ok {
			return nil, vaulterr.New(vaulterr.LayoutInvalid, "no frame found at or before track boundary")
		}
		resolvedTracks = append(resolvedTracks, resolved{cue: t, byteOffset: byteOffset, number: number})
	}

	boundaries := make([]TrackBoundary, len(resolvedTracks))
	for i, r := range resolvedTracks {
		end := int64(len(containerBytes))
		hasNext := i+1 < len(resolvedTracks)
		if hasNext {
			end = resolvedTracks[i+1].byteOffset
		}

		var sampleCount uint64
		switch {
		case hasNext && !fixedBlockSize:
			sampleCount = resolvedTracks[i+1].number - r.number
		case hasNext:
			// Fixed-block-size streams encode a frame index, not a
			// sample number, in the header; fall back to the sheet's
			// own timestamps to estimate the track's sample count.
			nextStartMS := resolvedTracks[i+1].cue.StartMS
			sampleCount = uint64(nextStartMS-r.cue.StartMS) * uint64(si.SampleRate) / 1000
		default:
			firstSample := r.number
			if fixedBlockSize {
				firstSample = r.number * blockSize
			}
			sampleCount = si.TotalSamples - firstSample
		}

		boundaries[i] = TrackBoundary{
			Number:          r.cue.Number,
			Title:           r.cue.Title,
			Performer:       r.cue.Performer,
			StartByteOffset: r.byteOffset,
			EndByteOffset:   end,
			StartSample:     r.number,
			SyntheticHeader: SynthesizeTrackHeader(si, sampleCount),
		}
	}

	totalDurationMS := int64(si.TotalSamples) * 1000 / int64(si.SampleRate)
	for i := range boundaries {
		if i+1 < len(boundaries) {
			boundaries[i].DurationMS = resolvedTracks[i+1].cue.StartMS - resolvedTracks[i].cue.StartMS
		} else {
			boundaries[i].DurationMS = totalDurationMS - resolvedTracks[i].cue.StartMS
		}
	}

	return &AnalyzeResult{
		ContainerStreamInfoRaw: streamInfoRaw,
		SampleRate:              si.SampleRate,
		Boundaries:              boundaries,
	}, nil
}

// frameHeadersAreFrameIndexed probes the first parseable frame after
// audioStart to tell fixed-block-size streams (frame-indexed headers)
// apart from variable-block-size streams (sample-indexed headers).
func frameHeadersAreFrameIndexed(data []byte, audioStart int64) bool {
	offset := audioStart
	for offset < int64(len(data))-1 {
		if data[offset] == 0xFF && data[offset+1]&0xFC == 0xF8 {
			if hdr, err := ParseFrameHeader(data[offset:]); err == nil {
				return !hdr.VariableBlockSize
			}
		}
		offset++
	}
	return false
}
