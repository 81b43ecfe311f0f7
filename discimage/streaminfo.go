package discimage

import (
	"encoding/binary"

	vaulterr "vaultfm/errors"
)

const flacMagic = "fLaC"

// streamInfoBlockType is the FLAC metadata block type for STREAMINFO,
// always the first metadata block in a conformant stream.
const streamInfoBlockType = 0

// StreamInfo is the decoded content of a FLAC STREAMINFO metadata block.
type StreamInfo struct {
	MinBlockSize  uint16
	MaxBlockSize  uint16
	MinFrameSize  uint32
	MaxFrameSize  uint32
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	TotalSamples  uint64
	MD5           [16]byte

	// raw holds the original 34-byte block payload so SynthesizeTrackHeader
	// can patch it in place rather than re-serialize field by field.
	raw [34]byte
}

// ParseStreamInfo decodes a 34-byte STREAMINFO block payload (the block
// header is not included).
func ParseStreamInfo(data []byte) (*StreamInfo, error) {
	if len(data) < 34 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "STREAMINFO block shorter than 34 bytes")
	}

	si := &StreamInfo{}
	copy(si.raw[:], data[:34])

	si.MinBlockSize = binary.BigEndian.Uint16(data[0:2])
	si.MaxBlockSize = binary.BigEndian.Uint16(data[2:4])
	si.MinFrameSize = be24(data[4:7])
	si.MaxFrameSize = be24(data[7:10])

	packed := binary.BigEndian.Uint64(data[10:18])
	si.SampleRate = uint32(packed >> 44 & 0xFFFFF)
	si.Channels = uint8(packed>>41&0x7) + 1
	si.BitsPerSample = uint8(packed>>36&0x1F) + 1
	si.TotalSamples = packed & 0xFFFFFFFFF // 36 bits

	copy(si.MD5[:], data[18:34])
	return si, nil
}

func be24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func putBE24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// metadataBlockHeader is the 4-byte header preceding every FLAC
// metadata block's payload.
type metadataBlockHeader struct {
	isLast    bool
	blockType byte
	length    uint32
}

func parseMetadataBlockHeader(b []byte) metadataBlockHeader {
	return metadataBlockHeader{
		isLast:    b[0]&0x80 != 0,
		blockType: b[0] & 0x7F,
		length:    be24(b[1:4]),
	}
}

// FindAudioStart scans a FLAC container's metadata-block chain (never
// decoding audio payload) and returns the raw STREAMINFO payload and the
// byte offset where the first audio frame begins.
func FindAudioStart(data []byte) (streamInfoRaw []byte, audioStart int64, err error) {
	if len(data) < 4 || string(data[0:4]) != flacMagic {
		return nil, 0, vaulterr.New(vaulterr.LayoutInvalid, "missing fLaC magic")
	}

	offset := int64(4)
	for {
		if offset+4 > int64(len(data)) {
			return nil, 0, vaulterr.New(vaulterr.LayoutInvalid, "truncated metadata block header")
		}
		hdr := parseMetadataBlockHeader(data[offset : offset+4])
		blockStart := offset + 4
		blockEnd := blockStart + int64(hdr.length)
		if blockEnd > int64(len(data)) {
			return nil, 0, vaulterr.New(vaulterr.LayoutInvalid, "truncated metadata block payload")
		}

		if hdr.blockType == streamInfoBlockType && streamInfoRaw == nil {
			streamInfoRaw = data[blockStart:blockEnd]
		}

		offset = blockEnd
		if hdr.isLast {
			break
		}
	}

	if streamInfoRaw == nil {
		return nil, 0, vaulterr.New(vaulterr.LayoutInvalid, "container has no STREAMINFO block")
	}
	return streamInfoRaw, offset, nil
}

// SynthesizeTrackHeader builds a standalone FLAC header (magic +
// single STREAMINFO metadata block, marked last) for one track of a
// disc image: totalSamples is rewritten, the MD5 signature and
// min/max frame size fields are zeroed (they described the whole
// container, not this track), and every other metadata block
// (seek table, Vorbis comment, picture, padding) is dropped.
func SynthesizeTrackHeader(container *StreamInfo, totalSamples uint64) []byte {
	raw := container.raw // copy

	// Zero min/max frame size (bytes 4-9) — no longer valid per-track.
	putBE24(raw[4:7], 0)
	putBE24(raw[7:10], 0)

	// Rewrite total_samples (low 36 bits of the 64-bit packed field at
	// bytes 10..18), preserving sample_rate/channels/bits_per_sample.
	packed := binary.BigEndian.Uint64(raw[10:18])
	packed = (packed &^ 0xFFFFFFFFF) | (totalSamples & 0xFFFFFFFFF)
	binary.BigEndian.PutUint64(raw[10:18], packed)

	// Zero the MD5 signature — it described the whole container.
	for i := 18; i < 34; i++ {
		raw[i] = 0
	}

	out := make([]byte, 0, 4+4+34)
	out = append(out, flacMagic...)
	// Metadata block header: is_last=1, type=STREAMINFO(0), length=34.
	out = append(out, 0x80|streamInfoBlockType)
	lenBuf := [3]byte{}
	putBE24(lenBuf[:], 34)
	out = append(out, lenBuf[:]...)
	out = append(out, raw[:]...)
	return out
}
