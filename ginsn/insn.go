package ginsn

import (
	"fmt"

	"github.com/wippyai/cfisynth/cfi"
)

// Type is the kind of a generic instruction.
type Type uint8

const (
	TypeSymbol Type = iota
	TypeAdd
	TypeAnd
	TypeCall
	TypeJump
	TypeJumpCond
	TypeMov
	TypeLoad  // load from stack (pop)
	TypeStore // store to stack (push)
	TypeReturn
	TypeSub
	TypeOther

	NumTypes
)

var typeNames = [NumTypes]string{
	TypeSymbol:   "symbol",
	TypeAdd:      "add",
	TypeAnd:      "and",
	TypeCall:     "call",
	TypeJump:     "jmp",
	TypeJumpCond: "jcc",
	TypeMov:      "mov",
	TypeLoad:     "load",
	TypeStore:    "store",
	TypeReturn:   "ret",
	TypeSub:      "sub",
	TypeOther:    "other",
}

func (t Type) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// SrcType is the kind of a source operand.
type SrcType uint8

const (
	SrcUnknown SrcType = iota
	SrcReg
	SrcImm
	SrcIndirect
	SrcStack
	SrcSymbol
	SrcMem
)

// DstType is the kind of the destination operand.
type DstType uint8

const (
	DstUnknown DstType = iota
	DstReg
	DstIndirect
	DstStack
	DstMem
)

// Src is a source operand. ImmDisp is the immediate for SrcImm and the
// displacement for SrcIndirect.
type Src struct {
	Sym     string
	Reg     cfi.Reg
	ImmDisp int32
	Type    SrcType
}

// Dst is the destination operand. Disp applies to DstIndirect and DstStack.
type Dst struct {
	Reg  cfi.Reg
	Disp int32
	Type DstType
}

// Flags carry additional per-instruction information.
type Flags uint32

const (
	// FlagFuncMarker marks the function begin symbol.
	FlagFuncMarker Flags = 1 << iota
	// FlagReal marks instructions that come from a user-written machine
	// instruction rather than an implicit expansion.
	FlagReal
	// FlagUserLabel marks symbols created for user-defined labels.
	FlagUserLabel
)

// Insn is a generic instruction: at most two sources and one destination.
//
// Ops is the list of unwind operations synthesized for the instruction, in
// emission order. It is owned by the synthesizer and is empty until the
// forward pass reaches the instruction.
type Insn struct {
	Sym   string
	File  string
	Ops   []cfi.Op
	Src   [2]Src
	Dst   Dst
	ID    uint64
	Addr  uint64
	Line  int
	Size  uint32
	Flags Flags
	Type  Type
}

// Src1 returns the first source operand.
func (i *Insn) Src1() *Src { return &i.Src[0] }

// Src2 returns the second source operand.
func (i *Insn) Src2() *Src { return &i.Src[1] }

// IsFuncBegin reports whether i is the function begin marker.
func (i *Insn) IsFuncBegin() bool {
	return i != nil && i.Type == TypeSymbol && i.Flags&FlagFuncMarker != 0
}

// IsFuncEnd reports whether i is the function end marker.
func (i *Insn) IsFuncEnd() bool {
	return i != nil && i.Type == TypeSymbol && i.Flags&(FlagFuncMarker|FlagUserLabel) == 0
}

// IsUserLabel reports whether i stands for a user-defined label.
func (i *Insn) IsUserLabel() bool {
	return i != nil && i.Flags&FlagUserLabel != 0
}

// End returns the address just past the instruction; unwind operations
// attached to i take effect there.
func (i *Insn) End() uint64 {
	return i.Addr + uint64(i.Size)
}

// AppendOp adds op after the instruction's existing operations.
func (i *Insn) AppendOp(op cfi.Op) {
	i.Ops = append(i.Ops, op)
}

// PrependOp adds op before the instruction's existing operations.
func (i *Insn) PrependOp(op cfi.Op) {
	i.Ops = append([]cfi.Op{op}, i.Ops...)
}

// Constructors in the style of the assembler front ends. Every constructed
// instruction is flagged real.

// NewFuncBegin creates the function begin marker.
func NewFuncBegin(sym string) *Insn {
	return &Insn{Type: TypeSymbol, Sym: sym, Flags: FlagFuncMarker}
}

// NewFuncEnd creates the function end marker.
func NewFuncEnd(sym string) *Insn {
	return &Insn{Type: TypeSymbol, Sym: sym}
}

// NewLabel creates the marker for a user-defined label.
func NewLabel(sym string) *Insn {
	return &Insn{Type: TypeSymbol, Sym: sym, Flags: FlagUserLabel}
}

// NewArith creates an add/sub/and style instruction dst = src1 op src2.
func NewArith(typ Type, src1, src2 Src, dst Dst) *Insn {
	return &Insn{Type: typ, Src: [2]Src{src1, src2}, Dst: dst, Flags: FlagReal}
}

// NewMov creates a move from src to dst.
func NewMov(src Src, dst Dst) *Insn {
	return &Insn{Type: TypeMov, Src: [2]Src{src}, Dst: dst, Flags: FlagReal}
}

// NewStore creates a store of reg to the stack top (the second half of a push).
func NewStore(reg cfi.Reg) *Insn {
	return &Insn{
		Type:  TypeStore,
		Src:   [2]Src{Reg(reg)},
		Dst:   Dst{Type: DstStack},
		Flags: FlagReal,
	}
}

// NewLoad creates a load of reg from the stack top (the first half of a pop).
func NewLoad(reg cfi.Reg) *Insn {
	return &Insn{
		Type:  TypeLoad,
		Src:   [2]Src{{Type: SrcStack}},
		Dst:   DstRegister(reg),
		Flags: FlagReal,
	}
}

// NewBranch creates a jump, conditional jump or call to sym.
func NewBranch(typ Type, sym string) *Insn {
	return &Insn{Type: typ, Src: [2]Src{{Type: SrcSymbol, Sym: sym}}, Flags: FlagReal}
}

// NewReturn creates a return instruction.
func NewReturn() *Insn {
	return &Insn{Type: TypeReturn, Flags: FlagReal}
}

// NewOther creates an instruction with no specific meaning to the analysis.
func NewOther(src1, src2 Src, dst Dst) *Insn {
	return &Insn{Type: TypeOther, Src: [2]Src{src1, src2}, Dst: dst, Flags: FlagReal}
}

// Reg is a register source operand.
func Reg(r cfi.Reg) Src { return Src{Type: SrcReg, Reg: r} }

// Imm is an immediate source operand.
func Imm(v int32) Src { return Src{Type: SrcImm, ImmDisp: v} }

// Indirect is a disp(reg) memory source operand.
func Indirect(r cfi.Reg, disp int32) Src { return Src{Type: SrcIndirect, Reg: r, ImmDisp: disp} }

// DstRegister is a register destination.
func DstRegister(r cfi.Reg) Dst { return Dst{Type: DstReg, Reg: r} }

// DstIndirectAt is a disp(reg) memory destination.
func DstIndirectAt(r cfi.Reg, disp int32) Dst { return Dst{Type: DstIndirect, Reg: r, Disp: disp} }
