// Package cfi models the unwind state tracked while synthesizing call frame
// information.
//
// A State holds one RegLoc per tracked register plus a synthetic register
// for the canonical frame address (CFA). Register numbers are DWARF register
// numbers; the CFA occupies the slot right after the last architecture
// register.
//
// Invariant: a RegLoc in the OnStack state always has the CFA as its base.
// Any other base would go stale as soon as the stack pointer moves.
//
// Op is one atomic change to the state, later emitted as a DWARF CFA
// instruction. Opcode values are the DWARF DW_CFA_* encodings.
package cfi
