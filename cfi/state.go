package cfi

import (
	"slices"

	"github.com/wippyai/cfisynth/errors"
)

// State is the accumulated unwind information at a program point.
//
// Regs covers every architecture register plus the CFA. Scratch has the same
// shape and records registers that hold a copy of the stack pointer; it does
// not take part in equality because it never shows up in emitted unwind rows.
//
// StackSize is the number of bytes pushed since function entry (including
// the return address slot). It is meaningful only while Traceable is true.
type State struct {
	Regs      []RegLoc
	Scratch   []RegLoc
	StackSize int32
	Traceable bool
}

// NewState creates the function-entry state for an architecture with
// numRegs registers: everything undefined, stack traceable.
func NewState(numRegs int) *State {
	return &State{
		Regs:      make([]RegLoc, numRegs+1),
		Scratch:   make([]RegLoc, numRegs+1),
		Traceable: true,
	}
}

// CFA returns the register number used for the canonical frame address.
func (s *State) CFA() Reg {
	return Reg(len(s.Regs) - 1)
}

// CFALoc returns the current CFA rule.
func (s *State) CFALoc() RegLoc {
	return s.Regs[s.CFA()]
}

// CFABase returns the register the CFA is currently computed from.
func (s *State) CFABase() Reg {
	return s.Regs[s.CFA()].Base
}

// Has reports whether reg is within the tracked register table.
func (s *State) Has(reg Reg) bool {
	return int(reg) < len(s.Regs)
}

// Loc returns the location of reg, or an undefined location if reg is not
// tracked.
func (s *State) Loc(reg Reg) RegLoc {
	if !s.Has(reg) {
		return RegLoc{}
	}
	return s.Regs[reg]
}

// Clone returns a deep copy. Snapshots never share storage with the live
// state.
func (s *State) Clone() *State {
	return &State{
		Regs:      slices.Clone(s.Regs),
		Scratch:   slices.Clone(s.Scratch),
		StackSize: s.StackSize,
		Traceable: s.Traceable,
	}
}

// Equal compares the observable unwind information of two states.
// The scratch table is ignored.
func (s *State) Equal(o *State) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.StackSize == o.StackSize &&
		s.Traceable == o.Traceable &&
		slices.Equal(s.Regs, o.Regs)
}

// Save records reg as saved at offset from base, which must be the CFA.
func (s *State) Save(reg, base Reg, offset int32) error {
	if !s.Has(reg) {
		return errors.Internal(errors.PhaseState, "save of untracked register r%d", reg)
	}
	if base != s.CFA() {
		return errors.Internal(errors.PhaseState, "save of r%d relative to r%d, want CFA", reg, base)
	}
	s.Regs[reg] = RegLoc{Base: base, Offset: offset, State: OnStack}
	return nil
}

// Restore marks reg as live in its home register again. The register must
// currently be saved relative to the CFA. Its old value may still sit in the
// stack slot; only the unwind view changes.
func (s *State) Restore(reg Reg) error {
	if !s.Has(reg) {
		return errors.Internal(errors.PhaseState, "restore of untracked register r%d", reg)
	}
	loc := s.Regs[reg]
	if loc.State != OnStack || loc.Base != s.CFA() {
		return errors.Internal(errors.PhaseState, "restore of r%d which is %s, not saved on stack", reg, loc.State)
	}
	s.Regs[reg] = RegLoc{Base: reg, State: InReg}
	return nil
}

// DefCfa anchors the CFA at base+offset.
func (s *State) DefCfa(base Reg, offset int32) Op {
	cfa := s.CFA()
	s.Regs[cfa] = RegLoc{Base: base, Offset: offset, State: InReg}
	return Op{Reg: cfa, Loc: s.Regs[cfa], Opcode: OpDefCfa}
}

// DefCfaRegister switches the register the CFA is computed from, keeping the
// offset.
func (s *State) DefCfaRegister(base Reg) Op {
	cfa := s.CFA()
	s.Regs[cfa].Base = base
	return Op{Reg: cfa, Loc: s.Regs[cfa], Opcode: OpDefCfaRegister}
}

// AdjustCfaOffset moves the CFA offset by delta bytes.
func (s *State) AdjustCfaOffset(delta int32) Op {
	cfa := s.CFA()
	s.Regs[cfa].Offset += delta
	return Op{Reg: cfa, Loc: s.Regs[cfa], Opcode: OpDefCfaOffset}
}

// OffsetOp describes reg's current save slot.
func (s *State) OffsetOp(reg Reg) Op {
	return Op{Reg: reg, Loc: s.Regs[reg], Opcode: OpOffset}
}

// RestoreOp describes reg's return to its home register.
func (s *State) RestoreOp(reg Reg) Op {
	return Op{Reg: reg, Loc: s.Regs[reg], Opcode: OpRestore}
}
