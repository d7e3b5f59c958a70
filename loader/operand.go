package loader

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/cfisynth/arch"
	"github.com/wippyai/cfisynth/cfi"
	"github.com/wippyai/cfisynth/ginsn"
)

// Operands accepts either a single operand or a list of them.
type Operands []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Operands) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*o = Operands{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*o = list
		return nil
	default:
		return &yaml.TypeError{Errors: []string{"operands must be a string or a list of strings"}}
	}
}

type operandError string

func (e operandError) Error() string { return string(e) }

func parseReg(a *arch.Arch, s string) (cfi.Reg, error) {
	if !strings.HasPrefix(s, "%") {
		return 0, operandError("register operand must start with %: " + s)
	}
	r, ok := a.Reg(s)
	if !ok {
		return 0, operandError("unknown " + a.Name + " register " + s)
	}
	return r, nil
}

func parseImm(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, operandError("bad immediate " + s)
	}
	return int32(v), nil
}

// parseIndirect parses disp(%reg) and (%reg).
func parseIndirect(a *arch.Arch, s string) (cfi.Reg, int32, bool, error) {
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, 0, false, nil
	}
	r, err := parseReg(a, s[open+1:len(s)-1])
	if err != nil {
		return 0, 0, true, err
	}
	var disp int32
	if open > 0 {
		if disp, err = parseImm(s[:open]); err != nil {
			return 0, 0, true, err
		}
	}
	return r, disp, true, nil
}

func parseSrc(a *arch.Arch, s string) (ginsn.Src, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "?":
		return ginsn.Src{}, nil
	case s == "stack":
		return ginsn.Src{Type: ginsn.SrcStack}, nil
	case s == "mem":
		return ginsn.Src{Type: ginsn.SrcMem}, nil
	case strings.HasPrefix(s, "%"):
		r, err := parseReg(a, s)
		return ginsn.Reg(r), err
	case strings.HasPrefix(s, "$"):
		v, err := parseImm(s[1:])
		return ginsn.Imm(v), err
	}
	r, disp, ok, err := parseIndirect(a, s)
	if ok {
		return ginsn.Indirect(r, disp), err
	}
	if s == "" {
		return ginsn.Src{}, operandError("empty operand")
	}
	return ginsn.Src{Type: ginsn.SrcSymbol, Sym: s}, nil
}

func parseDst(a *arch.Arch, s string) (ginsn.Dst, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "?":
		return ginsn.Dst{}, nil
	case s == "mem":
		return ginsn.Dst{Type: ginsn.DstMem}, nil
	case strings.HasPrefix(s, "stack"):
		d := ginsn.Dst{Type: ginsn.DstStack}
		if rest := s[len("stack"):]; rest != "" {
			v, err := parseImm(strings.TrimPrefix(rest, "+"))
			if err != nil {
				return d, err
			}
			d.Disp = v
		}
		return d, nil
	case strings.HasPrefix(s, "%"):
		r, err := parseReg(a, s)
		return ginsn.DstRegister(r), err
	}
	r, disp, ok, err := parseIndirect(a, s)
	if ok {
		return ginsn.DstIndirectAt(r, disp), err
	}
	return ginsn.Dst{}, operandError("bad destination operand " + s)
}
