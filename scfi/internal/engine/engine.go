package engine

import (
	"go.uber.org/zap"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
	"github.com/wippyai/cfisynth/scfi/internal/handler"
)

// Stage is the progress of synthesis for one function.
type Stage uint8

const (
	StageNotStarted Stage = iota
	StageForwardInProgress
	StageForwardDone
	StageBackwardInProgress
	StageComplete
	StageFailed
)

var stageNames = [...]string{
	StageNotStarted:         "not started",
	StageForwardInProgress:  "forward in progress",
	StageForwardDone:        "forward done",
	StageBackwardInProgress: "backward in progress",
	StageComplete:           "complete",
	StageFailed:             "failed",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// Outcome is what a run leaves behind besides the ops on the instructions.
type Outcome struct {
	Warnings []handler.Warning
	// FailedIn is the stage that was in progress when the run failed.
	FailedIn Stage
	Stage    Stage
}

// Config configures an Engine.
type Config struct {
	Arch     *arch.Arch
	Registry *handler.Registry
	Logger   *zap.Logger
}

// Engine synthesizes unwind operations for functions of one architecture.
//
// The engine holds no per-function state; one Engine may analyze many
// functions concurrently as long as their graphs are not shared.
type Engine struct {
	arch *arch.Arch
	exec *handler.Executor
	log  *zap.Logger
}

// New creates an engine. A nil registry selects the default handlers and a
// nil logger discards output.
func New(cfg Config) (*Engine, error) {
	exec, err := handler.NewExecutor(cfg.Registry)
	if err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		arch: cfg.Arch,
		exec: exec,
		log:  log,
	}, nil
}

// Arch returns the architecture the engine analyzes.
func (e *Engine) Arch() *arch.Arch {
	return e.arch
}

// Synthesize runs both passes over g starting at entry (the root block when
// nil). Ops are attached to the instructions of g, replacing those of any
// earlier run. When the forward pass fails the backward pass is skipped; the
// ops produced so far stay in place.
func (e *Engine) Synthesize(fn string, g *ginsn.CFG, entry *ginsn.Block) (Outcome, error) {
	out := Outcome{Stage: StageNotStarted}
	g.Reset()
	if entry == nil {
		entry = g.Root()
	}
	if entry == nil {
		out.Stage, out.FailedIn = StageFailed, StageNotStarted
		return out, errors.New(errors.PhaseForward, errors.KindInvalidInput).
			Func(fn).
			Detail("function has no blocks").
			Build()
	}

	log := e.log.With(zap.String("func", fn))
	ctx := handler.NewContext(e.arch, fn, e.arch.NewState())

	out.advance(log, StageForwardInProgress)
	err := e.forward(ctx, log, entry)
	out.Warnings = ctx.Warnings
	for _, w := range ctx.Warnings {
		log.Warn(w.Message,
			zap.String("file", w.File),
			zap.Int("line", w.Line),
			zap.String("reg", e.arch.RegName(w.Reg)),
			zap.Int32("expected", w.Expected),
			zap.Int32("recorded", w.Recorded),
		)
	}
	if err != nil {
		log.Warn("forward pass failed for func", zap.Error(err))
		out.Stage, out.FailedIn = StageFailed, StageForwardInProgress
		return out, err
	}
	out.advance(log, StageForwardDone)

	out.advance(log, StageBackwardInProgress)
	if err := e.backward(fn, log, g); err != nil {
		log.Warn("backward pass failed for func", zap.Error(err))
		out.Stage, out.FailedIn = StageFailed, StageBackwardInProgress
		return out, err
	}
	out.advance(log, StageComplete)
	return out, nil
}

func (o *Outcome) advance(log *zap.Logger, s Stage) {
	o.Stage = s
	log.Debug("stage", zap.Stringer("stage", s))
}
