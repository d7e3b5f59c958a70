// Package loader builds generic instruction graphs from YAML descriptions.
//
// A description lists functions as basic blocks of generic instructions:
//
//	arch: amd64
//	file: foo.s
//	functions:
//	  - name: foo
//	    blocks:
//	      - label: foo
//	        insns:
//	          - {op: begin}
//	          - {op: push, src: "%rbp", size: 1, line: 2}
//	          - {op: mov, src: "%rsp", dst: "%rbp", size: 3}
//	          - {op: jcc, sym: .L2, size: 2}
//	      - insns:
//	          - {op: pop, dst: "%rbp", size: 1}
//	          - {op: ret, size: 1}
//	      - label: .L2
//	        insns:
//	          - {op: label}
//	          - {op: pop, dst: "%rbp", size: 1}
//	          - {op: ret, size: 1}
//
// Operands are written as %reg, $imm, disp(%reg), stack, stack+N, mem, ?
// or a bare symbol name. push and pop expand into the two generic
// instructions an assembler front end produces for them.
//
// Successors default to the fall-through block and the branch target of a
// trailing jmp or jcc when that target names a block of the function; ret
// and jmp end the fall-through. An explicit succ list replaces the inferred
// edges.
//
// Addresses run from 0 across the whole file, advanced by each
// instruction's size (0 for symbols, 1 otherwise) unless addr is given.
package loader
