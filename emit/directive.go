package emit

import (
	"fmt"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

// Directive is one unwind operation placed at a code address. Reg and
// Offset are unfactored; which of them is meaningful depends on Opcode.
type Directive struct {
	Addr   uint64
	Offset int32
	Reg    cfi.Reg
	Opcode cfi.Opcode
}

// Format renders d as a GAS directive using a's register names.
func (d Directive) Format(a *arch.Arch) string {
	switch d.Opcode {
	case cfi.OpDefCfa:
		return fmt.Sprintf(".cfi_def_cfa %s, %d", a.AsmName(d.Reg), d.Offset)
	case cfi.OpDefCfaRegister:
		return ".cfi_def_cfa_register " + a.AsmName(d.Reg)
	case cfi.OpDefCfaOffset:
		return fmt.Sprintf(".cfi_def_cfa_offset %d", d.Offset)
	case cfi.OpOffset:
		return fmt.Sprintf(".cfi_offset %s, %d", a.AsmName(d.Reg), d.Offset)
	case cfi.OpRestore:
		return ".cfi_restore " + a.AsmName(d.Reg)
	case cfi.OpRememberState:
		return ".cfi_remember_state"
	case cfi.OpRestoreState:
		return ".cfi_restore_state"
	default:
		return fmt.Sprintf(".cfi_escape /* %s */", d.Opcode)
	}
}

// FromOp converts a synthesized op to a directive at addr.
func FromOp(op cfi.Op, addr uint64) (Directive, error) {
	d, ok := fromOp(op, addr)
	if !ok {
		return d, unknownOpcode("", nil, op)
	}
	return d, nil
}

func fromOp(op cfi.Op, addr uint64) (Directive, bool) {
	d := Directive{Addr: addr, Opcode: op.Opcode}
	switch op.Opcode {
	case cfi.OpDefCfa:
		d.Reg, d.Offset = op.Loc.Base, op.Loc.Offset
	case cfi.OpDefCfaRegister:
		d.Reg = op.Loc.Base
	case cfi.OpDefCfaOffset:
		d.Offset = op.Loc.Offset
	case cfi.OpOffset:
		d.Reg, d.Offset = op.Reg, op.Loc.Offset
	case cfi.OpRestore:
		d.Reg = op.Reg
	case cfi.OpRememberState, cfi.OpRestoreState:
	default:
		return d, false
	}
	return d, true
}

func unknownOpcode(fn string, insn *ginsn.Insn, op cfi.Op) error {
	b := errors.New(errors.PhaseEmit, errors.KindInvalidInput).
		Func(fn).
		Value(op.Opcode).
		Detail("unknown unwind opcode %s", op.Opcode)
	if insn != nil {
		b.At(insn.File, insn.Line)
	}
	return b.Build()
}

// Directives lists the operations of fn in program order. restore_state
// takes effect at the start of its instruction, every other op after it.
func Directives(fn *ginsn.Function) ([]Directive, error) {
	var out []Directive
	for _, insn := range fn.CFG.Insns() {
		for _, op := range insn.Ops {
			addr := insn.End()
			if op.Opcode == cfi.OpRestoreState {
				addr = insn.Addr
			}
			d, ok := fromOp(op, addr)
			if !ok {
				return nil, unknownOpcode(fn.Name, insn, op)
			}
			out = append(out, d)
		}
	}
	return out, nil
}
