package handler

import "github.com/wippyai/cfisynth/ginsn"

// MarkerHandler handles symbols. The function begin marker anchors the CFA
// at SP plus the architecture's initial offset; labels and the end marker
// are no-ops.
type MarkerHandler struct{}

func (MarkerHandler) Handle(ctx *Context, insn *ginsn.Insn) error {
	if !insn.IsFuncBegin() {
		return nil
	}
	st := ctx.State
	insn.AppendOp(st.DefCfa(ctx.sp(), ctx.Arch.InitCFAOffset))
	st.StackSize += ctx.Arch.InitCFAOffset
	return nil
}
