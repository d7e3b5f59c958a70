// Package scfi synthesizes DWARF call frame information for functions given
// as graphs of generic instructions.
//
// The synthesizer symbolically executes each function, tracking where the
// canonical frame address (CFA) and every callee-saved register live, and
// attaches the resulting unwind operations to the instructions:
//
//	s, err := scfi.New(scfi.Config{Arch: arch.AMD64()})
//	if err != nil {
//	    return err
//	}
//	res, err := s.SynthesizeFunc(fn)
//	if err != nil {
//	    return err // unsupported stack pattern or inconsistent control flow
//	}
//	for _, w := range res.Warnings {
//	    log.Println(w)
//	}
//
// Synthesis rejects code whose stack depth cannot be proven, such as stack
// realignment while the CFA is computed from the stack pointer, or a frame
// pointer reused as a scratch register. Restores whose stack slot does not
// match the save are reported as warnings and leave the register saved.
//
// The emit package turns the synthesized operations into assembler
// directives or DWARF bytecode.
package scfi
