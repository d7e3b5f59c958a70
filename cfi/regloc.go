package cfi

import "fmt"

// Reg is a DWARF register number.
type Reg uint32

// LocState describes where a register's caller value currently lives.
type LocState uint8

const (
	Undefined LocState = iota
	InReg
	OnStack
)

func (s LocState) String() string {
	switch s {
	case Undefined:
		return "undefined"
	case InReg:
		return "in-reg"
	case OnStack:
		return "on-stack"
	default:
		return fmt.Sprintf("LocState(%d)", uint8(s))
	}
}

// RegLoc is the location of one tracked register.
//
// For the CFA itself Base is the stack or frame pointer and Offset is the
// distance from that base to the CFA. For every other register in the
// OnStack state Base is the CFA and Offset is the (negative) slot offset.
type RegLoc struct {
	Base   Reg
	Offset int32
	State  LocState
}

func (l RegLoc) String() string {
	switch l.State {
	case Undefined:
		return "undefined"
	case InReg:
		return fmt.Sprintf("r%d%+d", l.Base, l.Offset)
	default:
		return fmt.Sprintf("[r%d%+d]", l.Base, l.Offset)
	}
}
