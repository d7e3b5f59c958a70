package scfi

import (
	"context"
	"runtime"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
	"github.com/wippyai/cfisynth/scfi/internal/engine"
)

// Config configures a Synthesizer.
type Config struct {
	// Arch is required.
	Arch *arch.Arch
	// Logger overrides the package logger.
	Logger *zap.Logger
	// Workers bounds SynthesizeAll parallelism; <= 0 means GOMAXPROCS.
	Workers int
}

// Synthesizer produces unwind operations for functions of one architecture.
// It is safe for concurrent use on functions that do not share graphs.
type Synthesizer struct {
	eng     *engine.Engine
	log     *zap.Logger
	workers int
}

// New validates cfg and creates a Synthesizer.
func New(cfg Config) (*Synthesizer, error) {
	if cfg.Arch == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, []string{"Arch"}, "architecture is required")
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	eng, err := engine.New(engine.Config{Arch: cfg.Arch, Logger: log})
	if err != nil {
		return nil, err
	}
	return &Synthesizer{
		eng:     eng,
		log:     log,
		workers: workers,
	}, nil
}

// Arch returns the architecture the synthesizer was configured with.
func (s *Synthesizer) Arch() *arch.Arch {
	return s.eng.Arch()
}

// Synthesize analyzes the function name whose graph is g, starting at entry
// (the root block when nil). The returned Result is never nil; on failure
// its Err equals the returned error.
func (s *Synthesizer) Synthesize(name string, g *ginsn.CFG, entry *ginsn.Block) (*Result, error) {
	res := &Result{Func: name, CFG: g}
	if g == nil {
		res.Stage, res.FailedIn = StageFailed, StageNotStarted
		res.Err = errors.InvalidInput(errors.PhaseConfig, []string{name}, "nil control flow graph")
		return res, res.Err
	}

	out, err := s.eng.Synthesize(name, g, entry)
	res.Stage, res.FailedIn, res.Warnings, res.Err = out.Stage, out.FailedIn, out.Warnings, err
	return res, err
}

// SynthesizeFunc analyzes fn from its root block.
func (s *Synthesizer) SynthesizeFunc(fn *ginsn.Function) (*Result, error) {
	return s.Synthesize(fn.Name, fn.CFG, nil)
}

// SynthesizeAll analyzes independent functions in parallel. Results are
// returned in input order, one per function. Failures of individual
// functions are combined into the returned error and do not stop the
// others; cancelling ctx stops functions that have not started yet.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, fns []*ginsn.Function) ([]*Result, error) {
	results := make([]*Result, len(fns))
	errs := make([]error, len(fns))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, fn := range fns {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = &Result{Func: fn.Name, CFG: fn.CFG, Err: err}
				return err
			}
			results[i], errs[i] = s.SynthesizeFunc(fn)
			return nil
		})
	}
	cancelled := g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.log.Warn("synthesis failed",
			zap.Int("funcs", len(fns)),
			zap.Int("failed", failed),
		)
	}
	return results, multierr.Append(multierr.Combine(errs...), cancelled)
}
