package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

// backward walks blocks in reverse program order. A block whose entry
// differs from its layout predecessor's exit gets restore_state on its first
// instruction; the block branching to it gets remember_state on its last.
func (e *Engine) backward(fn string, log *zap.Logger, g *ginsn.CFG) error {
	blocks := g.ProgramOrder()
	pending := make(map[*ginsn.Block]struct{})

	for i := len(blocks) - 1; i >= 0; i-- {
		b := blocks[i]

		for _, edge := range b.Out {
			// Blocks the forward pass never reached carry no state to remember.
			if b.Exit == nil {
				break
			}
			if _, ok := pending[edge.Dst]; !ok {
				continue
			}
			last := b.Last()
			if last == nil {
				return errors.New(errors.PhaseBackward, errors.KindInternal).
					Func(fn).Block(b.ID).Detail("empty block cannot remember state").Build()
			}
			last.AppendOp(cfi.RememberState())
			delete(pending, edge.Dst)
			log.Debug("remember state",
				zap.Int64("block", b.ID),
				zap.Int64("for", edge.Dst.ID),
			)
		}

		if i == 0 {
			break
		}
		prev := blocks[i-1]
		if prev.Exit == nil || b.Entry == nil || prev.Exit.Equal(b.Entry) {
			continue
		}
		first := b.First()
		if first == nil {
			return errors.New(errors.PhaseBackward, errors.KindInternal).
				Func(fn).Block(b.ID).Detail("empty block cannot restore state").Build()
		}
		first.PrependOp(cfi.RestoreState())
		pending[b] = struct{}{}
		log.Debug("restore state", zap.Int64("block", b.ID))
	}

	if len(pending) == 0 {
		return nil
	}
	var (
		id    int64
		found bool
	)
	for b := range pending {
		if !found || b.ID < id {
			id, found = b.ID, true
		}
	}
	err := errors.Unbalanced(errors.PhaseBackward, fmt.Sprintf(
		"restore_state without matching remember_state (%d pending)", len(pending)))
	err.Func, err.Block = fn, id
	return err
}
