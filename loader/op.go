package loader

import (
	"fmt"

	"github.com/wippyai/cfisynth/ginsn"
)

// Op is an instruction mnemonic of the input format.
type Op uint8

const (
	OpNone Op = iota
	OpBegin
	OpEnd
	OpLabel
	OpAdd
	OpAnd
	OpCall
	OpJmp
	OpJcc
	OpMov
	OpLoad
	OpStore
	OpRet
	OpSub
	OpOther
	OpPush
	OpPop
)

var opNames = map[Op]string{
	OpBegin: "begin",
	OpEnd:   "end",
	OpLabel: "label",
	OpAdd:   "add",
	OpAnd:   "and",
	OpCall:  "call",
	OpJmp:   "jmp",
	OpJcc:   "jcc",
	OpMov:   "mov",
	OpLoad:  "load",
	OpStore: "store",
	OpRet:   "ret",
	OpSub:   "sub",
	OpOther: "other",
	OpPush:  "push",
	OpPop:   "pop",
}

var opTypes = map[Op]ginsn.Type{
	OpAdd:  ginsn.TypeAdd,
	OpAnd:  ginsn.TypeAnd,
	OpCall: ginsn.TypeCall,
	OpJmp:  ginsn.TypeJump,
	OpJcc:  ginsn.TypeJumpCond,
	OpSub:  ginsn.TypeSub,
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "none"
}

// UnmarshalText for decoding mnemonics from YAML.
func (o *Op) UnmarshalText(text []byte) error {
	s := string(text)
	for k, v := range opNames {
		if v == s {
			*o = k
			return nil
		}
	}
	return fmt.Errorf("unknown op %q", s)
}

func (o Op) isSymbol() bool {
	return o == OpBegin || o == OpEnd || o == OpLabel
}

func (o Op) insnType() ginsn.Type {
	return opTypes[o]
}
