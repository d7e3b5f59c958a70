package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
	"github.com/wippyai/cfisynth/scfi/internal/handler"
)

// frame is one level of the depth-first walk: a block and the index of the
// next outgoing edge to follow.
type frame struct {
	block *ginsn.Block
	next  int
}

// forward walks the graph depth first from entry. An explicit stack replaces
// recursion so graph depth is bounded by memory, not the goroutine stack.
// Sibling edges are followed in declaration order.
func (e *Engine) forward(ctx *handler.Context, log *zap.Logger, entry *ginsn.Block) error {
	if entry.Visited {
		return e.merge(ctx, entry, ctx.State)
	}
	if err := e.runBlock(ctx, log, entry, ctx.State); err != nil {
		return err
	}

	stack := []frame{{block: entry}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.block.Out) {
			stack = stack[:len(stack)-1]
			continue
		}
		src := top.block
		edge := src.Out[top.next]
		top.next++

		if edge.Visited {
			continue
		}
		edge.Visited = true

		dst := edge.Dst
		if dst.Visited {
			if err := e.merge(ctx, dst, src.Exit); err != nil {
				return err
			}
			continue
		}
		if err := e.runBlock(ctx, log, dst, src.Exit.Clone()); err != nil {
			return err
		}
		stack = append(stack, frame{block: dst})
	}
	return nil
}

// runBlock executes b with incoming state st and records its snapshots.
func (e *Engine) runBlock(ctx *handler.Context, log *zap.Logger, b *ginsn.Block, st *cfi.State) error {
	b.Visited = true
	b.Entry = st.Clone()
	ctx.State = st
	ctx.Block = b.ID

	log.Debug("visit block",
		zap.Int64("block", b.ID),
		zap.String("label", b.Label),
		zap.Int("insns", len(b.Insns)),
	)

	reg := e.exec.Registry()
	for _, insn := range b.Insns {
		if ce := log.Check(zap.DebugLevel, "execute"); ce != nil {
			ce.Write(
				zap.Uint64("insn", insn.ID),
				zap.String("handler", reg.Name(insn.Type)),
				zap.Stringer("type", insn.Type),
			)
		}
		if err := e.exec.Execute(ctx, insn); err != nil {
			return err
		}
	}
	b.Exit = st.Clone()
	return nil
}

// merge checks that a block reached again sees the state it was entered with.
func (e *Engine) merge(ctx *handler.Context, b *ginsn.Block, incoming *cfi.State) error {
	if b.Entry.Equal(incoming) {
		return nil
	}
	err := errors.Inconsistent(errors.PhaseForward, fmt.Sprintf(
		"inconsistent CFI propagation: entry cfa %s, incoming cfa %s",
		b.Entry.CFALoc(), incoming.CFALoc()))
	err.Func, err.Block, err.Value = ctx.Func, b.ID, b.Label
	if first := b.First(); first != nil {
		err.File, err.Line = first.File, first.Line
	}
	return err
}
