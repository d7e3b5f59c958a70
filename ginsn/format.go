package ginsn

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/cfisynth/cfi"
)

// RegNamer maps a register number to its assembler name.
type RegNamer func(cfi.Reg) string

func defaultNamer(r cfi.Reg) string {
	return "r" + strconv.FormatUint(uint64(r), 10)
}

// Format renders the instruction in the loader's input syntax, e.g.
// "sub %rsp, $8 -> %rsp" or "store %rbp -> stack".
func (i *Insn) Format(name RegNamer) string {
	if name == nil {
		name = defaultNamer
	}

	switch {
	case i.IsFuncBegin():
		return "begin " + i.Sym
	case i.IsFuncEnd():
		return "end " + i.Sym
	case i.Type == TypeSymbol:
		return i.Sym + ":"
	}

	var srcs []string
	for _, s := range i.Src {
		if s.Type == SrcUnknown {
			continue
		}
		srcs = append(srcs, formatSrc(s, name))
	}

	var b strings.Builder
	b.WriteString(i.Type.String())
	if len(srcs) > 0 {
		b.WriteByte(' ')
		b.WriteString(strings.Join(srcs, ", "))
	}
	if i.Dst.Type != DstUnknown {
		b.WriteString(" -> ")
		b.WriteString(formatDst(i.Dst, name))
	}
	return b.String()
}

// String renders the instruction with numeric register names.
func (i *Insn) String() string {
	return i.Format(nil)
}

func formatSrc(s Src, name RegNamer) string {
	switch s.Type {
	case SrcReg:
		return "%" + name(s.Reg)
	case SrcImm:
		return "$" + strconv.FormatInt(int64(s.ImmDisp), 10)
	case SrcIndirect:
		return indirect(s.ImmDisp, s.Reg, name)
	case SrcStack:
		return "stack"
	case SrcSymbol:
		return s.Sym
	case SrcMem:
		return "mem"
	default:
		return "?"
	}
}

func formatDst(d Dst, name RegNamer) string {
	switch d.Type {
	case DstReg:
		return "%" + name(d.Reg)
	case DstIndirect:
		return indirect(d.Disp, d.Reg, name)
	case DstStack:
		if d.Disp != 0 {
			return fmt.Sprintf("stack%+d", d.Disp)
		}
		return "stack"
	case DstMem:
		return "mem"
	default:
		return "?"
	}
}

func indirect(disp int32, r cfi.Reg, name RegNamer) string {
	if disp == 0 {
		return "(%" + name(r) + ")"
	}
	return strconv.FormatInt(int64(disp), 10) + "(%" + name(r) + ")"
}
