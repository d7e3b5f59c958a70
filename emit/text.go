package emit

import (
	"bufio"
	"io"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/errors"
	"github.com/wippyai/cfisynth/ginsn"
)

// TextMode selects how much Text prints besides directives.
type TextMode uint8

const (
	// ModeDirectives prints only the .cfi_* directives.
	ModeDirectives TextMode = iota
	// ModeListing interleaves each instruction as a comment.
	ModeListing
)

// Text writes the directives of fn between .cfi_startproc and .cfi_endproc.
func Text(w io.Writer, a *arch.Arch, fn *ginsn.Function, mode TextMode) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(fn.Name + ":\n")
	bw.WriteString("\t.cfi_startproc\n")
	for _, insn := range fn.CFG.Insns() {
		if mode == ModeListing {
			bw.WriteString("\t# " + insn.Format(a.RegName) + "\n")
		}
		for _, op := range insn.Ops {
			d, ok := fromOp(op, insn.End())
			if !ok {
				return unknownOpcode(fn.Name, insn, op)
			}
			bw.WriteString("\t" + d.Format(a) + "\n")
		}
	}
	bw.WriteString("\t.cfi_endproc\n")

	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.PhaseEmit, errors.KindInternal, err, "write directives")
	}
	return nil
}
