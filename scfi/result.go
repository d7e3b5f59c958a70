package scfi

import (
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/ginsn"
	"github.com/wippyai/cfisynth/scfi/internal/engine"
	"github.com/wippyai/cfisynth/scfi/internal/handler"
)

// Stage is the synthesis progress of one function.
type Stage = engine.Stage

const (
	StageNotStarted         = engine.StageNotStarted
	StageForwardInProgress  = engine.StageForwardInProgress
	StageForwardDone        = engine.StageForwardDone
	StageBackwardInProgress = engine.StageBackwardInProgress
	StageComplete           = engine.StageComplete
	StageFailed             = engine.StageFailed
)

// Warning is a non-fatal asymmetric restore diagnostic.
type Warning = handler.Warning

// Result describes the synthesis of one function. The unwind operations
// themselves live on the instructions of CFG.
type Result struct {
	CFG      *ginsn.CFG
	Err      error
	Func     string
	Warnings []Warning
	Stage    Stage
	FailedIn Stage
}

// OK reports whether synthesis completed.
func (r *Result) OK() bool {
	return r.Stage == StageComplete
}

// InsnOps pairs an instruction with its synthesized operations.
type InsnOps struct {
	Insn *ginsn.Insn
	Ops  []cfi.Op
}

// Ops lists, in program order, every instruction that carries operations.
func (r *Result) Ops() []InsnOps {
	if r.CFG == nil {
		return nil
	}
	var out []InsnOps
	for _, insn := range r.CFG.Insns() {
		if len(insn.Ops) > 0 {
			out = append(out, InsnOps{Insn: insn, Ops: insn.Ops})
		}
	}
	return out
}
