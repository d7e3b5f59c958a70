// Package ginsn provides the generic instruction representation and the
// control flow graph consumed by the CFI synthesizer.
//
// Generic instructions abstract machine instructions into a handful of
// shapes: arithmetic on registers and immediates, moves between registers and
// memory, explicit stack stores and loads, and control flow. A single machine
// instruction may expand into several generic ones; x86 "push %rbp" becomes
//
//	sub %rsp, $8 -> %rsp
//	store %rbp -> stack
//
// Register numbers are DWARF register numbers.
//
// Translating machine code into generic instructions and discovering basic
// blocks is the job of an assembler front end. The loader package builds
// graphs from a YAML description for tools and tests.
package ginsn
