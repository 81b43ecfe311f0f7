package discimage

import vaulterr "vaultfm/errors"

// decodeUTF8Like decodes FLAC's UTF-8-inspired variable-length integer
// coding (used for a frame header's frame or sample number) starting at
// data[0]. It returns the decoded value and the number of bytes consumed.
func decodeUTF8Like(data []byte) (uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, vaulterr.New(vaulterr.CorruptBlock, "empty frame number field")
	}

	first := data[0]
	var extra int
	var value uint64

	switch {
	case first&0x80 == 0x00: // 0xxxxxxx
		return uint64(first), 1, nil
	case first&0xE0 == 0xC0: // 110xxxxx
		extra = 1
		value = uint64(first & 0x1F)
	case first&0xF0 == 0xE0: // 1110xxxx
		extra = 2
		value = uint64(first & 0x0F)
	case first&0xF8 == 0xF0: // 11110xxx
		extra = 3
		value = uint64(first & 0x07)
	case first&0xFC == 0xF8: // 111110xx
		extra = 4
		value = uint64(first & 0x03)
	case first&0xFE == 0xFC: // 1111110x
		extra = 5
		value = uint64(first & 0x01)
	case first == 0xFE: // 11111110
		extra = 6
		value = 0
	default:
		return 0, 0, vaulterr.New(vaulterr.CorruptBlock, "invalid UTF-8-like lead byte")
	}

	if len(data) < 1+extra {
		return 0, 0, vaulterr.New(vaulterr.CorruptBlock, "truncated UTF-8-like number")
	}
	for i := 0; i < extra; i++ {
		b := data[1+i]
		if b&0xC0 != 0x80 {
			return 0, 0, vaulterr.New(vaulterr.CorruptBlock, "invalid UTF-8-like continuation byte")
		}
		value = (value << 6) | uint64(b&0x3F)
	}
	return value, 1 + extra, nil
}

// encodeUTF8Like encodes value using the minimal number of bytes the
// same scheme allows. It is used to re-mint a frame or sample number
// after rebasing it to be track-relative, where the new (smaller) value
// very often needs fewer bytes than the original.
func encodeUTF8Like(value uint64) []byte {
	switch {
	case value < 0x80:
		return []byte{byte(value)}
	case value < 0x800:
		return []byte{
			0xC0 | byte(value>>6),
			0x80 | byte(value&0x3F),
		}
	case value < 0x10000:
		return []byte{
			0xE0 | byte(value>>12),
			0x80 | byte((value>>6)&0x3F),
			0x80 | byte(value&0x3F),
		}
	case value < 0x200000:
		return []byte{
			0xF0 | byte(value>>18),
			0x80 | byte((value>>12)&0x3F),
			0x80 | byte((value>>6)&0x3F),
			0x80 | byte(value&0x3F),
		}
	case value < 0x4000000:
		return []byte{
			0xF8 | byte(value>>24),
			0x80 | byte((value>>18)&0x3F),
			0x80 | byte((value>>12)&0x3F),
			0x80 | byte((value>>6)&0x3F),
			0x80 | byte(value&0x3F),
		}
	case value < 0x80000000:
		return []byte{
			0xFC | byte(value>>30),
			0x80 | byte((value>>24)&0x3F),
			0x80 | byte((value>>18)&0x3F),
			0x80 | byte((value>>12)&0x3F),
			0x80 | byte((value>>6)&0x3F),
			0x80 | byte(value&0x3F),
		}
	default:
		return []byte{
			0xFE,
			0x80 | byte((value>>30)&0x3F),
			0x80 | byte((value>>24)&0x3F),
			0x80 | byte((value>>18)&0x3F),
			0x80 | byte((value>>12)&0x3F),
			0x80 | byte((value>>6)&0x3F),
			0x80 | byte(value&0x3F),
		}
	}
}
