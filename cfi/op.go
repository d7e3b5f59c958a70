package cfi

import "fmt"

// Opcode is a DWARF call frame instruction opcode.
type Opcode uint8

const (
	OpRememberState  Opcode = 0x0a
	OpRestoreState   Opcode = 0x0b
	OpDefCfa         Opcode = 0x0c
	OpDefCfaRegister Opcode = 0x0d
	OpDefCfaOffset   Opcode = 0x0e
	OpOffset         Opcode = 0x80
	OpRestore        Opcode = 0xc0
)

var opcodeNames = map[Opcode]string{
	OpRememberState:  "remember_state",
	OpRestoreState:   "restore_state",
	OpDefCfa:         "def_cfa",
	OpDefCfaRegister: "def_cfa_register",
	OpDefCfaOffset:   "def_cfa_offset",
	OpOffset:         "offset",
	OpRestore:        "restore",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return fmt.Sprintf("Opcode(%#x)", uint8(o))
}

// Valid reports whether o is one of the opcodes the synthesizer produces.
func (o Opcode) Valid() bool {
	_, ok := opcodeNames[o]
	return ok
}

// Op is a single synthesized unwind operation. Ops are immutable once
// appended to an instruction.
//
// For CFA operations Reg is the CFA register and Loc is the new CFA rule.
// For Offset, Loc is the save slot; for Restore, Loc is the register's new
// in-register location. Remember/restore state ops carry no location.
type Op struct {
	Reg    Reg
	Loc    RegLoc
	Opcode Opcode
}

func (o Op) String() string {
	switch o.Opcode {
	case OpDefCfa:
		return fmt.Sprintf("def_cfa r%d, %d", o.Loc.Base, o.Loc.Offset)
	case OpDefCfaRegister:
		return fmt.Sprintf("def_cfa_register r%d", o.Loc.Base)
	case OpDefCfaOffset:
		return fmt.Sprintf("def_cfa_offset %d", o.Loc.Offset)
	case OpOffset:
		return fmt.Sprintf("offset r%d, %d", o.Reg, o.Loc.Offset)
	case OpRestore:
		return fmt.Sprintf("restore r%d", o.Reg)
	default:
		return o.Opcode.String()
	}
}

// RememberState returns the op that pushes the current unwind row.
func RememberState() Op {
	return Op{Opcode: OpRememberState}
}

// RestoreState returns the op that pops the last remembered unwind row.
func RestoreState() Op {
	return Op{Opcode: OpRestoreState}
}
