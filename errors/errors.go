package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseState    Phase = "state"    // unwind state bookkeeping
	PhaseForward  Phase = "forward"  // forward flow / symbolic execution
	PhaseBackward Phase = "backward" // remember/restore pairing
	PhaseEmit     Phase = "emit"     // directive and bytecode emission
	PhaseLoad     Phase = "load"     // input description loading
	PhaseConfig   Phase = "config"   // synthesizer configuration
)

// Kind categorizes the error
type Kind string

const (
	KindUnsupported  Kind = "unsupported_pattern"
	KindInconsistent Kind = "inconsistent_state"
	KindUnbalanced   Kind = "unbalanced_state"
	KindInternal     Kind = "internal"
	KindInvalidInput Kind = "invalid_input"
	KindNotFound     Kind = "not_found"
)

// Sentinels for errors.Is checks that only care about the Kind.
var (
	ErrUnsupported  = &Error{Kind: KindUnsupported}
	ErrInconsistent = &Error{Kind: KindInconsistent}
	ErrUnbalanced   = &Error{Kind: KindUnbalanced}
	ErrInternal     = &Error{Kind: KindInternal}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Func   string
	File   string
	Detail string
	Path   []string
	Line   int
	Block  int64
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(e.Line))
		}
		b.WriteString(": ")
	}

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Func != "" {
		b.WriteString(" in func '")
		b.WriteString(e.Func)
		b.WriteByte('\'')
	}

	if e.Block > 0 {
		b.WriteString(" at block ")
		b.WriteString(strconv.FormatInt(e.Block, 10))
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Func sets the function being analyzed
func (b *Builder) Func(name string) *Builder {
	b.err.Func = name
	return b
}

// At sets the source location
func (b *Builder) At(file string, line int) *Builder {
	b.err.File = file
	b.err.Line = line
	return b
}

// Block sets the basic block id
func (b *Builder) Block(id int64) *Builder {
	b.err.Block = id
	return b
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Unsupported creates an unsupported-pattern error at a source location
func Unsupported(phase Phase, file string, line int, what string) *Error {
	return New(phase, KindUnsupported).At(file, line).Detail("%s", what).Build()
}

// Inconsistent creates a propagation-inconsistency error
func Inconsistent(phase Phase, detail string) *Error {
	return New(phase, KindInconsistent).Detail("%s", detail).Build()
}

// Unbalanced creates a remember/restore pairing error
func Unbalanced(phase Phase, detail string) *Error {
	return New(phase, KindUnbalanced).Detail("%s", detail).Build()
}

// Internal creates a logic error that indicates a bug upstream of the caller
func Internal(phase Phase, format string, args ...any) *Error {
	return New(phase, KindInternal).Detail(format, args...).Build()
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, path []string, detail string) *Error {
	return New(phase, KindInvalidInput).Path(path...).Detail("%s", detail).Build()
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return New(phase, KindNotFound).Value(name).Detail("%s %q not found", what, name).Build()
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return New(phase, kind).Cause(cause).Detail("%s", detail).Build()
}
