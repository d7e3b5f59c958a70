package handler

import (
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

// Executor applies instructions to the unwind state in a Context.
type Executor struct {
	registry *Registry
}

// NewExecutor creates an executor dispatching through r. A nil registry
// selects Default. Every instruction type must have a handler.
func NewExecutor(r *Registry) (*Executor, error) {
	if r == nil {
		r = Default()
	}
	if missing := r.MissingHandlers(AllTypes()); len(missing) > 0 {
		return nil, errors.New(errors.PhaseConfig, errors.KindInternal).
			Value(missing).
			Detail("no handler registered for %v", missing).
			Build()
	}
	return &Executor{registry: r}, nil
}

// Registry returns the registry the executor dispatches through.
func (x *Executor) Registry() *Registry {
	return x.registry
}

// Execute runs insn against ctx.State, appending unwind operations to insn.
// On error no further instruction of the function should be executed.
func (x *Executor) Execute(ctx *Context, insn *ginsn.Insn) error {
	if insn.Type != ginsn.TypeSymbol {
		if err := checkStackManipulation(ctx, insn); err != nil {
			return err
		}
		if err := checkFramePointer(ctx, insn); err != nil {
			return err
		}
	}

	h := x.registry.Get(insn.Type)
	if h == nil {
		return errors.Internal(errors.PhaseForward, "no handler for %s instruction", insn.Type)
	}
	if err := h.Handle(ctx, insn); err != nil {
		return err
	}

	if insn.Dst.Type == ginsn.DstReg && !copiesSP(ctx, insn) {
		clearScratch(ctx.State, insn.Dst.Reg)
	}
	return nil
}

func copiesSP(ctx *Context, insn *ginsn.Insn) bool {
	src1 := insn.Src1()
	return insn.Type == ginsn.TypeMov && src1.Type == ginsn.SrcReg && src1.Reg == ctx.sp()
}

// clearScratch drops the SP copy recorded for reg once reg is overwritten.
func clearScratch(s *cfi.State, reg cfi.Reg) {
	if int(reg) < len(s.Scratch) {
		s.Scratch[reg] = cfi.RegLoc{}
	}
}
