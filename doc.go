// Package cfisynth synthesizes DWARF call frame information for hand-written
// assembly by symbolically executing each function's instructions.
//
// An assembler front end abstracts machine instructions into generic
// instructions (ginsn) grouped into basic blocks. The synthesizer walks the
// control flow graph, tracks where the canonical frame address and each
// callee-saved register live, and attaches unwind operations to the
// instructions that change them. A second pass pairs remember_state and
// restore_state so the linear directive stream is correct on every path.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	cfisynth/            Root package (documentation only)
//	├── scfi/            High-level API: Synthesizer, Result, parallel runs
//	│   └── internal/
//	│       ├── engine/  Forward and backward passes over the graph
//	│       └── handler/ Per-instruction-type state transitions and guards
//	├── cfi/             Unwind state, register locations and operations
//	├── ginsn/           Generic instructions and control flow graphs
//	├── arch/            Register maps for amd64 and arm64
//	├── emit/            GAS .cfi_* text and DWARF CFA bytecode
//	├── loader/          YAML program descriptions for tools and tests
//	├── errors/          Structured error types for debugging
//	└── cmd/scfi/        Command line and interactive front end
//
// # Quick Start
//
// Synthesize a function and print its directives:
//
//	s, err := scfi.New(scfi.Config{Arch: arch.AMD64()})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	prog, err := loader.LoadFile("prog.yaml", loader.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fn := prog.Func("foo")
//	if _, err := s.SynthesizeFunc(fn); err != nil {
//	    log.Fatal(err)
//	}
//	emit.Text(os.Stdout, s.Arch(), fn, emit.ModeDirectives)
//
// # Supported Patterns
//
// The analysis is heuristic. It understands the usual prologue and epilogue
// shapes:
//
//   - Stack pointer adjustment by constants and push/pop sequences
//   - Frame pointer setup and teardown, including leave-style restores
//   - Register saves via push or stack/frame pointer relative stores
//   - Stack realignment once the CFA is tracked through the frame pointer
//   - Stack pointer save and restore through a scratch register
//
// Anything else that writes the stack pointer, or uses the frame pointer as
// a scratch register while it defines the CFA, is reported as an
// unsupported pattern rather than silently producing wrong unwind data.
//
// # Thread Safety
//
// A Synthesizer is safe for concurrent use. Each call mutates the graph it
// analyzes, so a graph must not be shared between concurrent calls.
// SynthesizeAll analyzes independent functions in parallel.
package cfisynth
