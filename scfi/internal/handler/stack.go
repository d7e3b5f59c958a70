package handler

import (
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/ginsn"
)

// StoreHandler handles the store half of a push.
type StoreHandler struct{}

func (StoreHandler) Handle(ctx *Context, insn *ginsn.Insn) error {
	src := insn.Src1()
	if insn.Dst.Type != ginsn.DstStack || src.Type != ginsn.SrcReg || !ctx.saveable(src.Reg) {
		return nil
	}
	if ctx.State.Regs[src.Reg].State == cfi.OnStack {
		return nil
	}
	return ctx.save(insn, src.Reg, -ctx.State.StackSize+insn.Dst.Disp)
}

// LoadHandler handles the load half of a pop.
type LoadHandler struct{}

func (LoadHandler) Handle(ctx *Context, insn *ginsn.Insn) error {
	if insn.Dst.Type != ginsn.DstReg {
		return nil
	}
	st := ctx.State
	dst := insn.Dst.Reg

	if dst == ctx.fp() && ctx.cfaOnFP() {
		if st.CFALoc().Offset == st.StackSize {
			insn.AppendOp(st.DefCfaRegister(ctx.sp()))
		} else {
			insn.AppendOp(st.DefCfa(ctx.sp(), st.StackSize))
		}
	}

	if !ctx.saveable(dst) {
		return nil
	}
	return ctx.restore(insn, dst, -st.StackSize)
}
