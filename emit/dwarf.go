package emit

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
)

// DW_CFA opcodes beyond the ones the synthesizer produces directly.
const (
	dwCFANop             = 0x00
	dwCFAAdvanceLoc1     = 0x02
	dwCFAAdvanceLoc2     = 0x03
	dwCFAAdvanceLoc4     = 0x04
	dwCFAOffsetExtended  = 0x05
	dwCFARestoreExtended = 0x06
	dwCFAOffsetExtSf     = 0x11
	dwCFADefCfaSf        = 0x12
	dwCFADefCfaOffsetSf  = 0x13

	dwCFAAdvanceLoc = 0x40
	primaryMask     = 0xc0
	operandMask     = 0x3f
)

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseEmit, errors.KindInvalidInput).Detail(format, args...).Build()
}

// EncodeProgram encodes dirs as DWARF call frame instructions. start is the
// address the FDE's initial location covers; directives must be sorted by
// address and not precede it.
func EncodeProgram(a *arch.Arch, dirs []Directive, start uint64) ([]byte, error) {
	var out []byte
	loc := start
	for _, d := range dirs {
		if d.Addr < loc {
			return nil, invalid("directive at %#x precedes location %#x", d.Addr, loc)
		}
		var err error
		if out, err = advance(out, a, d.Addr-loc); err != nil {
			return nil, err
		}
		loc = d.Addr
		if out, err = encodeOne(out, a, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// advance appends the shortest advance_loc form covering delta bytes.
func advance(dst []byte, a *arch.Arch, delta uint64) ([]byte, error) {
	if delta == 0 {
		return dst, nil
	}
	if delta%uint64(a.CodeAlign) != 0 {
		return nil, invalid("address delta %d not a multiple of code alignment %d", delta, a.CodeAlign)
	}
	n := delta / uint64(a.CodeAlign)
	switch {
	case n <= operandMask:
		return append(dst, dwCFAAdvanceLoc|byte(n)), nil
	case n <= math.MaxUint8:
		return append(dst, dwCFAAdvanceLoc1, byte(n)), nil
	case n <= math.MaxUint16:
		return binary.LittleEndian.AppendUint16(append(dst, dwCFAAdvanceLoc2), uint16(n)), nil
	case n <= math.MaxUint32:
		return binary.LittleEndian.AppendUint32(append(dst, dwCFAAdvanceLoc4), uint32(n)), nil
	default:
		return nil, invalid("address delta %d too large", delta)
	}
}

func factor(a *arch.Arch, off int32) (int64, error) {
	if off%a.DataAlign != 0 {
		return 0, invalid("offset %d not a multiple of data alignment %d", off, a.DataAlign)
	}
	return int64(off / a.DataAlign), nil
}

func encodeOne(dst []byte, a *arch.Arch, d Directive) ([]byte, error) {
	reg := uint64(d.Reg)
	switch d.Opcode {
	case cfi.OpDefCfa:
		if d.Offset >= 0 {
			dst = appendULEB128(append(dst, byte(cfi.OpDefCfa)), reg)
			return appendULEB128(dst, uint64(d.Offset)), nil
		}
		f, err := factor(a, d.Offset)
		if err != nil {
			return nil, err
		}
		dst = appendULEB128(append(dst, dwCFADefCfaSf), reg)
		return appendSLEB128(dst, f), nil
	case cfi.OpDefCfaRegister:
		return appendULEB128(append(dst, byte(cfi.OpDefCfaRegister)), reg), nil
	case cfi.OpDefCfaOffset:
		if d.Offset >= 0 {
			return appendULEB128(append(dst, byte(cfi.OpDefCfaOffset)), uint64(d.Offset)), nil
		}
		f, err := factor(a, d.Offset)
		if err != nil {
			return nil, err
		}
		return appendSLEB128(append(dst, dwCFADefCfaOffsetSf), f), nil
	case cfi.OpOffset:
		f, err := factor(a, d.Offset)
		if err != nil {
			return nil, err
		}
		switch {
		case f >= 0 && reg <= operandMask:
			return appendULEB128(append(dst, byte(cfi.OpOffset)|byte(reg)), uint64(f)), nil
		case f >= 0:
			dst = appendULEB128(append(dst, dwCFAOffsetExtended), reg)
			return appendULEB128(dst, uint64(f)), nil
		default:
			dst = appendULEB128(append(dst, dwCFAOffsetExtSf), reg)
			return appendSLEB128(dst, f), nil
		}
	case cfi.OpRestore:
		if reg <= operandMask {
			return append(dst, byte(cfi.OpRestore)|byte(reg)), nil
		}
		return appendULEB128(append(dst, dwCFARestoreExtended), reg), nil
	case cfi.OpRememberState, cfi.OpRestoreState:
		return append(dst, byte(d.Opcode)), nil
	default:
		return nil, invalid("unknown unwind opcode %s", d.Opcode)
	}
}

// DecodeProgram decodes call frame instructions produced by EncodeProgram.
// Offsets are unfactored and addresses absolute from start. DW_CFA_nop
// padding is skipped.
func DecodeProgram(a *arch.Arch, data []byte, start uint64) ([]Directive, error) {
	r := bytes.NewReader(data)
	loc := start
	var out []Directive

	for r.Len() > 0 {
		pos := len(data) - r.Len()
		op, _ := r.ReadByte()
		d := Directive{Addr: loc}
		var err error

		switch {
		case op&primaryMask == dwCFAAdvanceLoc:
			loc += uint64(op&operandMask) * uint64(a.CodeAlign)
			continue
		case op&primaryMask == byte(cfi.OpOffset):
			var f uint32
			f, err = readULEB128(r)
			d.Opcode, d.Reg, d.Offset = cfi.OpOffset, cfi.Reg(op&operandMask), int32(f)*a.DataAlign
		case op&primaryMask == byte(cfi.OpRestore):
			d.Opcode, d.Reg = cfi.OpRestore, cfi.Reg(op&operandMask)
		default:
			var skip bool
			skip, err = decodeExtended(r, a, op, &d, &loc)
			if err == nil && skip {
				continue
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil, invalid("truncated instruction at byte %d", pos)
			}
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// decodeExtended decodes opcodes without an operand in the low six bits.
// skip is set for instructions that only move the location.
func decodeExtended(r *bytes.Reader, a *arch.Arch, op byte, d *Directive, loc *uint64) (skip bool, err error) {
	uleb := func() uint32 {
		var v uint32
		if err == nil {
			v, err = readULEB128(r)
		}
		return v
	}
	sleb := func() int32 {
		var v int32
		if err == nil {
			v, err = readSLEB128(r)
		}
		return v
	}
	fixed := func(n int) uint64 {
		if err != nil {
			return 0
		}
		var b [8]byte
		if _, err = io.ReadFull(r, b[:n]); err != nil {
			err = io.EOF
			return 0
		}
		return binary.LittleEndian.Uint64(b[:])
	}

	switch op {
	case dwCFANop:
		return true, nil
	case dwCFAAdvanceLoc1:
		*loc += fixed(1) * uint64(a.CodeAlign)
		return true, err
	case dwCFAAdvanceLoc2:
		*loc += fixed(2) * uint64(a.CodeAlign)
		return true, err
	case dwCFAAdvanceLoc4:
		*loc += fixed(4) * uint64(a.CodeAlign)
		return true, err
	case byte(cfi.OpDefCfa):
		d.Opcode = cfi.OpDefCfa
		d.Reg = cfi.Reg(uleb())
		d.Offset = int32(uleb())
	case dwCFADefCfaSf:
		d.Opcode = cfi.OpDefCfa
		d.Reg = cfi.Reg(uleb())
		d.Offset = sleb() * a.DataAlign
	case byte(cfi.OpDefCfaRegister):
		d.Opcode = cfi.OpDefCfaRegister
		d.Reg = cfi.Reg(uleb())
	case byte(cfi.OpDefCfaOffset):
		d.Opcode = cfi.OpDefCfaOffset
		d.Offset = int32(uleb())
	case dwCFADefCfaOffsetSf:
		d.Opcode = cfi.OpDefCfaOffset
		d.Offset = sleb() * a.DataAlign
	case dwCFAOffsetExtended:
		d.Opcode = cfi.OpOffset
		d.Reg = cfi.Reg(uleb())
		d.Offset = int32(uleb()) * a.DataAlign
	case dwCFAOffsetExtSf:
		d.Opcode = cfi.OpOffset
		d.Reg = cfi.Reg(uleb())
		d.Offset = sleb() * a.DataAlign
	case dwCFARestoreExtended:
		d.Opcode = cfi.OpRestore
		d.Reg = cfi.Reg(uleb())
	case byte(cfi.OpRememberState), byte(cfi.OpRestoreState):
		d.Opcode = cfi.Opcode(op)
	default:
		return false, invalid("unsupported call frame instruction %#x", op)
	}
	return false, err
}
