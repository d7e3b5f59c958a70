package handler

import "github.com/wippyai/cfisynth/ginsn"

// ArithHandler handles add and sub with an immediate second operand.
type ArithHandler struct{}

func (ArithHandler) Handle(ctx *Context, insn *ginsn.Insn) error {
	src1, src2 := insn.Src1(), insn.Src2()
	if insn.Dst.Type != ginsn.DstReg || src1.Type != ginsn.SrcReg || src2.Type != ginsn.SrcImm {
		return nil
	}

	// Growth in bytes: sub grows the stack, add shrinks it.
	imm := src2.ImmDisp
	if insn.Type == ginsn.TypeAdd {
		imm = -imm
	}

	st := ctx.State
	sp, fp := ctx.sp(), ctx.fp()
	dst := insn.Dst.Reg

	switch {
	case dst == sp && src1.Reg == sp:
		st.StackSize += imm
		if ctx.cfaOnSP() {
			insn.AppendOp(st.AdjustCfaOffset(imm))
		}
	case dst == sp && src1.Reg == fp && ctx.cfaOnFP():
		// SP = FP + n, and FP sits CFA.offset bytes below the CFA.
		st.StackSize = st.CFALoc().Offset + imm
		st.Traceable = true
	case dst == fp && src1.Reg == fp && ctx.cfaOnFP():
		insn.AppendOp(st.AdjustCfaOffset(imm))
	}
	return nil
}
