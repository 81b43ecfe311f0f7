package layout

import (
	"encoding/binary"
	"testing"

	"vaultfm/discimage"
	"vaultfm/model"
)

func buildStreamInfoPayload(sampleRate uint32, totalSamples uint64) []byte {
	raw := make([]byte, 34)
	binary.BigEndian.PutUint16(raw[0:2], 4096)
	binary.BigEndian.PutUint16(raw[2:4], 4096)
	var packed uint64
	packed |= uint64(sampleRate&0xFFFFF) << 44
	packed |= uint64(1&0x7) << 41  // channels - 1 => 2 channels
	packed |= uint64(15&0x1F) << 36 // bits - 1 => 16 bits
	packed |= totalSamples & 0xFFFFFFFFF
	binary.BigEndian.PutUint64(raw[10:18], packed)
	return raw
}

func buildFlacFrame(sampleNumber uint64) []byte {
	header := []byte{0xFF, 0xF9, 0x19, 0x00} // variable block size, arbitrary block/rate codes with no extra bytes
	numBytes := encodeVarintForTest(sampleNumber)
	header = append(header, numBytes...)
	header = append(header, crc8ForTest(header))
	header = append(header, 0x42, 0x42, 0x42, 0x42) // filler payload
	return header
}

// encodeVarintForTest and crc8ForTest re-implement just enough of the
// discimage package's private wire format to build fixtures without
// exporting internals purely for tests.
func encodeVarintForTest(v uint64) []byte {
	if v < 0x80 {
		return []byte{byte(v)}
	}
	if v < 0x800 {
		return []byte{0xC0 | byte(v>>6), 0x80 | byte(v&0x3F)}
	}
	return []byte{0xE0 | byte(v>>12), 0x80 | byte((v>>6)&0x3F), 0x80 | byte(v&0x3F)}
}

func crc8ForTest(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func buildFlacContainer(streamInfo, frames []byte) []byte {
	var out []byte
	out = append(out, "fLaC"...)
	out = append(out, 0x80) // is_last, type=0 (STREAMINFO)
	length := len(streamInfo)
	out = append(out, byte(length>>16), byte(length>>8), byte(length))
	out = append(out, streamInfo...)
	out = append(out, frames...)
	return out
}

func TestPlanDiscImageTilesContainerAndDerivesTracks(t *testing.T) {
	streamInfo := buildStreamInfoPayload(44100, 88200)
	frame1 := buildFlacFrame(0)
	frame2 := buildFlacFrame(44100)
	frames := append(append([]byte{}, frame1...), frame2...)
	container := buildFlacContainer(streamInfo, frames)

	sheet := &discimage.CueSheet{
		Tracks: []discimage.CueTrack{
			{Number: 1, Title: "Side A", StartMS: 0},
			{Number: 2, Title: "Side B", StartMS: 1000},
		},
	}

	containerFile := SourceFile{RelativePath: "album.flac", SizeBytes: int64(len(container)), Format: model.FormatFLAC}
	sidecars := []SourceFile{
		{RelativePath: "album.cue", SizeBytes: 100, Format: model.FormatCueSheet},
	}

	plan, err := PlanDiscImage("rel-1", containerFile, container, sidecars, sheet, 4096)
	if err != nil {
		t.Fatalf("PlanDiscImage: %v", err)
	}

	if len(plan.Tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(plan.Tracks))
	}
	if len(plan.Files) != 2 {
		t.Fatalf("expected 2 files (sidecar + container), got %d", len(plan.Files))
	}

	var totalCovered int64
	for _, fbs := range plan.FileBlocksByIndex {
		for _, fb := range fbs {
			totalCovered += int64(fb.EndInBlock - fb.StartInBlock)
		}
	}
	wantTotal := int64(len(container)) + sidecars[0].SizeBytes
	if totalCovered != wantTotal {
		t.Fatalf("file_blocks cover %d bytes, want %d", totalCovered, wantTotal)
	}

	if !plan.Positions[0].DiscImage {
		t.Fatal("expected disc-image tracks to be flagged DiscImage")
	}
	if len(plan.Positions[0].SyntheticHeader) == 0 {
		t.Fatal("expected a synthesized standalone header per track")
	}
}

func TestPlanDiscImageRejectsMissingContainerBytes(t *testing.T) {
	sheet := &discimage.CueSheet{Tracks: []discimage.CueTrack{{Number: 1, StartMS: 0}}}
	containerFile := SourceFile{RelativePath: "album.flac", SizeBytes: 0, Format: model.FormatFLAC}
	if _, err := PlanDiscImage("rel-1", containerFile, nil, nil, sheet, 4096); err == nil {
		t.Fatal("expected an error for an empty container")
	}
}
