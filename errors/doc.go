// Package errors provides structured error types for the cfisynth module.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the function name, source location, basic block and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseForward, errors.KindUnsupported).
//		Func("memcpy").
//		At("memcpy.s", 42).
//		Detail("unsupported stack manipulation pattern").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Unsupported(errors.PhaseForward, "memcpy.s", 42, "usage of frame pointer as scratch")
//	err := errors.Unbalanced(errors.PhaseBackward, "restore state without remember state")
//
// All errors implement the standard error interface and support errors.Is/As.
// The ErrUnsupported, ErrInconsistent, ErrUnbalanced, ErrInternal and ErrInvalidInput
// sentinels match any Error of the same Kind regardless of Phase.
package errors
