// Package emit renders synthesized unwind operations.
//
// Text produces GAS-style .cfi_* directives. EncodeProgram produces the
// DWARF call frame instruction stream that would follow a CIE/FDE header;
// DecodeProgram reads the same subset back for dumps and tests.
package emit
