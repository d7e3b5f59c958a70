package handler

import (
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/ginsn"
)

// MovHandler handles register copies, indirect saves and indirect restores.
type MovHandler struct{}

func (MovHandler) Handle(ctx *Context, insn *ginsn.Insn) error {
	switch insn.Dst.Type {
	case ginsn.DstReg:
		return movToReg(ctx, insn)
	case ginsn.DstIndirect:
		return movToMem(ctx, insn)
	default:
		return nil
	}
}

func movToReg(ctx *Context, insn *ginsn.Insn) error {
	st := ctx.State
	src, dst := insn.Src1(), insn.Dst.Reg
	sp, fp := ctx.sp(), ctx.fp()

	switch src.Type {
	case ginsn.SrcReg:
		switch {
		case src.Reg == sp && dst == fp && ctx.cfaOnSP():
			insn.AppendOp(st.DefCfaRegister(fp))
		case src.Reg == fp && dst == sp && ctx.cfaOnFP():
			st.StackSize = st.CFALoc().Offset
			insn.AppendOp(st.DefCfaRegister(sp))
			st.Traceable = true
		case src.Reg == sp:
			if int(dst) >= len(st.Scratch) {
				return nil
			}
			if st.Traceable {
				st.Scratch[dst] = cfi.RegLoc{Base: st.CFA(), Offset: -st.StackSize, State: cfi.OnStack}
			} else {
				st.Scratch[dst] = cfi.RegLoc{}
			}
		case dst == sp:
			// The guard only lets SP copies from scratch-tracked registers through.
			restoreSPFromScratch(ctx, insn, src.Reg)
		}
	case ginsn.SrcIndirect:
		if !ctx.saveable(dst) {
			return nil
		}
		expected, ok := ctx.slotOffset(src.Reg, src.ImmDisp)
		if !ok {
			return nil
		}
		return ctx.restore(insn, dst, expected)
	}
	return nil
}

func restoreSPFromScratch(ctx *Context, insn *ginsn.Insn, reg cfi.Reg) {
	st := ctx.State
	if !hasScratch(st, reg) {
		return
	}
	st.StackSize = -st.Scratch[reg].Offset
	st.Traceable = true
	if ctx.cfaOnSP() {
		if delta := st.StackSize - st.CFALoc().Offset; delta != 0 {
			insn.AppendOp(st.AdjustCfaOffset(delta))
		}
	}
}

func movToMem(ctx *Context, insn *ginsn.Insn) error {
	src := insn.Src1()
	if src.Type != ginsn.SrcReg || !ctx.saveable(src.Reg) {
		return nil
	}
	if ctx.State.Regs[src.Reg].State == cfi.OnStack {
		return nil
	}
	offset, ok := ctx.slotOffset(insn.Dst.Reg, insn.Dst.Disp)
	if !ok {
		return nil
	}
	return ctx.save(insn, src.Reg, offset)
}
