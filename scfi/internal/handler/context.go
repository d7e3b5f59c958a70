package handler

import (
	"fmt"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

// Warning is a non-fatal diagnostic: a restore whose stack offset does not
// match the recorded save slot. The register stays marked as saved.
type Warning struct {
	Func     string
	File     string
	Message  string
	Line     int
	Reg      cfi.Reg
	Expected int32
	Recorded int32
}

func (w Warning) String() string {
	loc := w.File
	if w.Line > 0 {
		loc = fmt.Sprintf("%s:%d", w.File, w.Line)
	}
	if loc != "" {
		loc += ": "
	}
	return fmt.Sprintf("%s%s for r%d in %s (expected %d, recorded %d)",
		loc, w.Message, w.Reg, w.Func, w.Expected, w.Recorded)
}

// Context carries the mutable analysis state through the handlers.
type Context struct {
	State    *cfi.State
	Arch     *arch.Arch
	Func     string
	Warnings []Warning
	Block    int64
}

// NewContext creates a Context for analyzing fn on a.
func NewContext(a *arch.Arch, fn string, st *cfi.State) *Context {
	return &Context{State: st, Arch: a, Func: fn}
}

func (c *Context) sp() cfi.Reg { return c.Arch.SP }
func (c *Context) fp() cfi.Reg { return c.Arch.FP }

func (c *Context) cfaOnSP() bool { return c.State.CFABase() == c.Arch.SP }
func (c *Context) cfaOnFP() bool { return c.State.CFABase() == c.Arch.FP }

// saveable reports whether reg is a tracked register whose save slot is
// recorded. SP itself is described by the CFA rule.
func (c *Context) saveable(reg cfi.Reg) bool {
	return reg != c.Arch.SP && c.Arch.Tracked(reg) && c.State.Has(reg)
}

func (c *Context) unsupported(insn *ginsn.Insn, what string) error {
	err := errors.Unsupported(errors.PhaseForward, insn.File, insn.Line, what)
	err.Func, err.Block = c.Func, c.Block
	err.Value = insn.Format(c.Arch.RegName)
	return err
}

func (c *Context) warn(insn *ginsn.Insn, reg cfi.Reg, expected, recorded int32) {
	c.Warnings = append(c.Warnings, Warning{
		Func:     c.Func,
		File:     insn.File,
		Line:     insn.Line,
		Message:  "asymmetrical register restore",
		Reg:      reg,
		Expected: expected,
		Recorded: recorded,
	})
}

// save records reg at offset from the CFA and emits the matching Offset op.
func (c *Context) save(insn *ginsn.Insn, reg cfi.Reg, offset int32) error {
	st := c.State
	if err := st.Save(reg, st.CFA(), offset); err != nil {
		return err
	}
	insn.AppendOp(st.OffsetOp(reg))
	return nil
}

// restore marks reg restored when expected matches its save slot. Registers
// that are not on the stack are left alone. Only the offset is compared: a
// slot overwritten since the save still counts as holding reg.
func (c *Context) restore(insn *ginsn.Insn, reg cfi.Reg, expected int32) error {
	st := c.State
	loc := st.Regs[reg]
	if loc.State != cfi.OnStack {
		return nil
	}
	if loc.Offset != expected {
		c.warn(insn, reg, expected, loc.Offset)
		return nil
	}
	if err := st.Restore(reg); err != nil {
		return err
	}
	insn.AppendOp(st.RestoreOp(reg))
	return nil
}

// slotOffset returns the CFA-relative offset of disp(base), or false when
// base is neither SP nor the frame pointer anchoring the CFA.
func (c *Context) slotOffset(base cfi.Reg, disp int32) (int32, bool) {
	switch {
	case base == c.sp():
		return -c.State.StackSize + disp, true
	case base == c.fp() && c.cfaOnFP():
		return -c.State.CFALoc().Offset + disp, true
	default:
		return 0, false
	}
}
