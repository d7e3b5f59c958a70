package emit

import (
	"io"
	"math"

	"github.com/wippyai/cfisynth/errors"
)

// maxLEB128Len is the longest encoding of a 32-bit value.
const maxLEB128Len = 5

// errOverflow is returned when a LEB128 value does not fit in 32 bits.
var errOverflow = errors.New(errors.PhaseEmit, errors.KindInvalidInput).Detail("leb128: overflow").Build()

func appendULEB128(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

func appendSLEB128(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

// readLEB128 collects the payload bits of one value and reports how many
// bits were read and the final byte, which carries the sign.
func readLEB128(r io.ByteReader) (v uint64, shift uint, last byte, err error) {
	for n := 0; ; n++ {
		if n == maxLEB128Len {
			return 0, 0, 0, errOverflow
		}
		if last, err = r.ReadByte(); err != nil {
			return 0, 0, 0, err
		}
		v |= uint64(last&0x7f) << shift
		shift += 7
		if last&0x80 == 0 {
			return v, shift, last, nil
		}
	}
}

func readULEB128(r io.ByteReader) (uint32, error) {
	v, _, _, err := readLEB128(r)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errOverflow
	}
	return uint32(v), nil
}

func readSLEB128(r io.ByteReader) (int32, error) {
	v, shift, last, err := readLEB128(r)
	if err != nil {
		return 0, err
	}
	if last&0x40 != 0 {
		v |= ^uint64(0) << shift
	}
	s := int64(v)
	if s < math.MinInt32 || s > math.MaxInt32 {
		return 0, errOverflow
	}
	return int32(s), nil
}
