package discimage

import "testing"

func TestAnalyzeDerivesTrackBoundaries(t *testing.T) {
	sampleRate := uint32(44100)
	streamInfo := buildStreamInfo(sampleRate, 2, 16, 88200) // 2 seconds total

	frame1 := buildFrame(0, true, 30)     // sample-indexed, starts at sample 0
	frame2 := buildFrame(44100, true, 30) // starts exactly at 1 second in

	var frames []byte
	frames = append(frames, frame1...)
	frames = append(frames, frame2...)
	container := buildContainer(streamInfo, frames)

	sheet := &CueSheet{
		Tracks: []CueTrack{
			{Number: 1, Title: "Side A", StartMS: 0},
			{Number: 2, Title: "Side B", StartMS: 1000},
		},
	}

	result, err := Analyze(container, sheet)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Boundaries) != 2 {
		t.Fatalf("expected 2 boundaries, got %d", len(result.Boundaries))
	}

	audioStart := len(container) - len(frames)
	b0, b1 := result.Boundaries[0], result.Boundaries[1]

	if b0.StartByteOffset != int64(audioStart) {
		t.Fatalf("track 1 StartByteOffset = %d, want %d", b0.StartByteOffset, audioStart)
	}
	if b1.StartByteOffset != int64(audioStart+len(frame1)) {
		t.Fatalf("track 2 StartByteOffset = %d, want %d", b1.StartByteOffset, audioStart+len(frame1))
	}
	if b0.EndByteOffset != b1.StartByteOffset {
		t.Fatalf("track 1 EndByteOffset %d should equal track 2 StartByteOffset %d", b0.EndByteOffset, b1.StartByteOffset)
	}
	if b1.EndByteOffset != int64(len(container)) {
		t.Fatalf("last track EndByteOffset = %d, want container length %d", b1.EndByteOffset, len(container))
	}
	if b0.StartSample != 0 || b1.StartSample != 44100 {
		t.Fatalf("StartSample mismatch: track1=%d track2=%d", b0.StartSample, b1.StartSample)
	}
	if len(b0.SyntheticHeader) == 0 || len(b1.SyntheticHeader) == 0 {
		t.Fatal("expected every track to get a synthesized standalone header")
	}
}

func TestAnalyzeRejectsMissingStreamInfo(t *testing.T) {
	sheet := &CueSheet{Tracks: []CueTrack{{Number: 1, StartMS: 0}}}
	if _, err := Analyze([]byte("not a flac file"), sheet); err == nil {
		t.Fatal("expected an error for a container with no STREAMINFO")
	}
}
