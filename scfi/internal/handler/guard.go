package handler

import (
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/ginsn"
)

// checkStackManipulation rejects changes to SP by an unknown amount while
// the CFA is SP-based. Under an FP-based CFA the same change makes the stack
// untraceable, after which saves and restores addressed through SP are
// rejected.
func checkStackManipulation(ctx *Context, insn *ginsn.Insn) error {
	st := ctx.State
	if untraceableSPWrite(ctx, insn) {
		if ctx.cfaOnSP() {
			return ctx.unsupported(insn, "unsupported stack manipulation pattern")
		}
		st.Traceable = false
		return nil
	}
	if !st.Traceable && (savesViaSP(ctx, insn) || restoresViaSP(ctx, insn)) {
		return ctx.unsupported(insn, "unestimated stack size for register save/restore")
	}
	return nil
}

// untraceableSPWrite reports whether insn writes SP in a way the executor
// cannot follow.
func untraceableSPWrite(ctx *Context, insn *ginsn.Insn) bool {
	if insn.Dst.Type != ginsn.DstReg || insn.Dst.Reg != ctx.sp() {
		return false
	}
	src1, src2 := insn.Src1(), insn.Src2()
	switch insn.Type {
	case ginsn.TypeAdd, ginsn.TypeSub:
		if src2.Type != ginsn.SrcImm || src1.Type != ginsn.SrcReg {
			return true
		}
		if src1.Reg == ctx.sp() {
			return false
		}
		return src1.Reg != ctx.fp() || !ctx.cfaOnFP()
	case ginsn.TypeMov:
		if src1.Type != ginsn.SrcReg {
			return true
		}
		if src1.Reg == ctx.fp() && ctx.cfaOnFP() {
			return false
		}
		return !hasScratch(ctx.State, src1.Reg)
	case ginsn.TypeAnd, ginsn.TypeOther, ginsn.TypeLoad:
		return true
	default:
		return false
	}
}

func hasScratch(s *cfi.State, reg cfi.Reg) bool {
	return int(reg) < len(s.Scratch) && s.Scratch[reg].State == cfi.OnStack
}

func savesViaSP(ctx *Context, insn *ginsn.Insn) bool {
	src1 := insn.Src1()
	if src1.Type != ginsn.SrcReg || !ctx.saveable(src1.Reg) {
		return false
	}
	switch insn.Type {
	case ginsn.TypeStore:
		return true
	case ginsn.TypeMov:
		return insn.Dst.Type == ginsn.DstIndirect && insn.Dst.Reg == ctx.sp()
	default:
		return false
	}
}

func restoresViaSP(ctx *Context, insn *ginsn.Insn) bool {
	if insn.Dst.Type != ginsn.DstReg || !ctx.saveable(insn.Dst.Reg) {
		return false
	}
	switch insn.Type {
	case ginsn.TypeLoad:
		return true
	case ginsn.TypeMov:
		src1 := insn.Src1()
		return src1.Type == ginsn.SrcIndirect && src1.Reg == ctx.sp()
	default:
		return false
	}
}

// checkFramePointer rejects writes that turn the frame pointer into a
// scratch register while it anchors the CFA. Accepted shapes: FP adjusted
// by an immediate, and a load restoring FP from the stack.
func checkFramePointer(ctx *Context, insn *ginsn.Insn) error {
	if !ctx.cfaOnFP() || insn.Dst.Type != ginsn.DstReg || insn.Dst.Reg != ctx.fp() {
		return nil
	}
	src1, src2 := insn.Src1(), insn.Src2()
	switch insn.Type {
	case ginsn.TypeAdd, ginsn.TypeSub:
		if src1.Type == ginsn.SrcReg && src1.Reg == ctx.fp() && src2.Type == ginsn.SrcImm {
			return nil
		}
	case ginsn.TypeLoad:
		return nil
	}
	return ctx.unsupported(insn, "usage of frame pointer as scratch not supported")
}
