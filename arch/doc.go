// Package arch describes the architectures the synthesizer supports: which
// DWARF registers play the stack pointer and frame pointer roles, where the
// CFA sits at function entry, and which registers are tracked for unwinding
// (stack pointer, frame pointer, return address and callee-saved registers).
package arch
