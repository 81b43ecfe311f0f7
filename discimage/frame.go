package discimage

import (
	vaulterr "vaultfm/errors"
)

// FrameHeader is a parsed FLAC audio-frame header.
type FrameHeader struct {
	// Number is either a frame number (fixed block size streams) or an
	// absolute sample number (variable block size streams), per
	// VariableBlockSize.
	Number            uint64
	VariableBlockSize bool
	HeaderLen         int // bytes from sync word through the CRC-8 byte, inclusive
}

// blockSizeExtraBytes reports how many trailing bytes (beyond the
// frame/sample number) the block-size code borrows from the header.
func blockSizeExtraBytes(code byte) int {
	switch code {
	case 0x6:
		return 1
	case 0x7:
		return 2
	default:
		return 0
	}
}

// sampleRateExtraBytes reports how many trailing bytes the sample-rate
// code borrows from the header.
func sampleRateExtraBytes(code byte) int {
	switch code {
	case 0xC:
		return 1
	case 0xD, 0xE:
		return 2
	default:
		return 0
	}
}

// ParseFrameHeader attempts to parse a FLAC frame header starting at
// data[0]. It returns an error if data is too short or the header fails
// CRC-8 validation — the latter is how the scanner below rejects
// sync-word false positives inside an audio payload.
func ParseFrameHeader(data []byte) (*FrameHeader, error) {
	if len(data) < 6 {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "frame header too short to parse")
	}
	if data[0] != 0xFF || data[1]&0xFC != 0xF8 {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "not a frame sync word")
	}

	variable := data[1]&0x01 != 0
	blockSizeCode := data[2] >> 4
	sampleRateCode := data[2] & 0x0F

	pos := 4 // past the two fixed bytes (sync+flags, blocksize/samplerate) plus byte3 (channel/sample size)
	number, n, err := decodeUTF8Like(data[pos:])
	if err != nil {
		return nil, err
	}
	pos += n

	pos += blockSizeExtraBytes(blockSizeCode)
	pos += sampleRateExtraBytes(sampleRateCode)

	if pos >= len(data) {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "truncated frame header")
	}
	headerLen := pos + 1 // include the CRC-8 byte
	if headerLen > len(data) {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "truncated frame header")
	}

	gotCRC := data[pos]
	wantCRC := crc8(data[:pos])
	if gotCRC != wantCRC {
		return nil, vaulterr.New(vaulterr.CorruptBlock, "frame header CRC-8 mismatch")
	}

	return &FrameHeader{Number: number, VariableBlockSize: variable, HeaderLen: headerLen}, nil
}

// SeekTable maps each frame's encoded number (a sample number on
// variable-block-size streams, a frame index on fixed-block-size
// streams) to the byte offset, relative to the container start, at
// which that frame begins.
type SeekTable struct {
	SampleAt []uint64
	ByteAt   []int64
}

// ByteOffsetForSample returns the byte offset of the last seek-table
// entry whose sample number is <= target, i.e. the nearest frame
// boundary at or before target.
func (t *SeekTable) ByteOffsetForSample(target uint64) (byteOffset int64, sample uint64, ok bool) {
	best := -1
	for i, s := range t.SampleAt {
		if s <= target {
			best = i
		} else {
			break
		}
	}
	if best < 0 {
		return 0, 0, false
	}
	return t.ByteAt[best], t.SampleAt[best], true
}

// BuildSeekTable scans a FLAC container's audio region (audioStart to
// end of data), decoding only frame headers, and records every frame's
// absolute sample number and byte offset. Never decodes audio payload.
func BuildSeekTable(data []byte, audioStart int64) (*SeekTable, error) {
	table := &SeekTable{}

	offset := audioStart
	for offset < int64(len(data))-1 {
		if data[offset] != 0xFF || data[offset+1]&0xFC != 0xF8 {
			offset++
			continue
		}

		hdr, err := ParseFrameHeader(data[offset:])
		if err != nil {
			// Sync-word false positive inside audio payload; keep scanning.
			offset++
			continue
		}

		// hdr.Number is a sample number on variable-block-size streams
		// and a frame number on fixed-block-size streams; either way it
		// is monotonically increasing and is recorded as is. Analyze
		// converts a cue point to the same unit before looking it up.
		sampleNumber := hdr.Number

		table.SampleAt = append(table.SampleAt, sampleNumber)
		table.ByteAt = append(table.ByteAt, offset)

		offset += int64(hdr.HeaderLen)
	}

	if len(table.SampleAt) == 0 {
		return nil, vaulterr.New(vaulterr.LayoutInvalid, "no frames found while building seek table")
	}
	return table, nil
}

// RewriteFramePayload rewrites every frame header in payload so its
// frame/sample number is rebased relative to startNumber (the
// container-absolute number of the track's first frame), recomputing
// each header's CRC-8 over the rewritten bytes. Frame bodies and
// footers are copied through untouched.
func RewriteFramePayload(payload []byte, startNumber uint64) ([]byte, error) {
	out := make([]byte, 0, len(payload))
	offset := 0

	for offset < len(payload) {
		if offset+1 >= len(payload) || payload[offset] != 0xFF || payload[offset+1]&0xFC != 0xF8 {
			out = append(out, payload[offset])
			offset++
			continue
		}

		hdr, err := ParseFrameHeader(payload[offset:])
		if err != nil {
			out = append(out, payload[offset])
			offset++
			continue
		}

		newNumber := hdr.Number - startNumber
		rewritten, err := rebuildFrameHeader(payload[offset:offset+hdr.HeaderLen], hdr, newNumber)
		if err != nil {
			return nil, err
		}
		out = append(out, rewritten...)
		offset += hdr.HeaderLen
	}

	return out, nil
}

// rebuildFrameHeader re-encodes a parsed header with a new frame/sample
// number and recomputes its trailing CRC-8. The fixed prefix (sync byte,
// flags byte, block-size/sample-rate byte, channel/sample-size byte) is
// copied verbatim; only the variable-length number field and anything
// after it shift.
func rebuildFrameHeader(original []byte, hdr *FrameHeader, newNumber uint64) ([]byte, error) {
	const fixedPrefixLen = 4
	if len(original) < fixedPrefixLen {
		return nil, vaulterr.New(vaulterr.Internal, "frame header shorter than fixed prefix")
	}

	_, oldNumberLen, err := decodeUTF8Like(original[fixedPrefixLen:])
	if err != nil {
		return nil, err
	}

	trailer := original[fixedPrefixLen+oldNumberLen : len(original)-1] // extra block-size/sample-rate bytes, excludes CRC

	out := make([]byte, 0, len(original)+2)
	out = append(out, original[:fixedPrefixLen]...)
	out = append(out, encodeUTF8Like(newNumber)...)
	out = append(out, trailer...)
	out = append(out, crc8(out))
	return out, nil
}
