package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Phase indicates where in the host lifecycle the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // capability registration
	PhaseLinking  Phase = "linking"  // host module wiring
	PhaseConfig   Phase = "config"   // host configuration
	PhaseLoad     Phase = "load"     // application loading
	PhaseStore    Phase = "store"    // per-instance store setup
	PhaseRuntime  Phase = "runtime"  // guest execution
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicate        Kind = "duplicate"
	KindConsumed         Kind = "consumed"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindRegistration     Kind = "registration"
	KindInstantiation    Kind = "instantiation"
	KindUnknownComponent Kind = "unknown_component"
	KindIO               Kind = "io"
	KindOutOfBounds      Kind = "out_of_bounds"
)

// Error is the structured error type used throughout the host
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
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

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
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

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
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

// Duplicate creates a duplicate registration error for a Go type
func Duplicate(phase Phase, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicate,
		GoType: goType,
		Detail: "already registered",
	}
}

// Consumed creates an error for use of a builder after it was built
func Consumed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindConsumed,
		Detail: fmt.Sprintf("%s already built", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, namespace, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s#%s", namespace, name),
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseRuntime,
		Kind:   KindInstantiation,
		Detail: fmt.Sprintf("instantiate %s", what),
		Cause:  cause,
	}
}

// IO creates an I/O error for a path-bearing operation
func IO(phase Phase, op, path string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIO,
		Detail: fmt.Sprintf("%s %s", op, path),
		Cause:  cause,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// UnknownComponentsError is returned when a follow selection names components
// the application does not declare
type UnknownComponentsError struct {
	Unknown []string
	Valid   []string
}

// NewUnknownComponentsError sorts both lists so the message is stable
func NewUnknownComponentsError(unknown, valid []string) *UnknownComponentsError {
	u := append([]string(nil), unknown...)
	v := append([]string(nil), valid...)
	sort.Strings(u)
	sort.Strings(v)
	return &UnknownComponentsError{Unknown: u, Valid: v}
}

func (e *UnknownComponentsError) Error() string {
	var b strings.Builder
	b.WriteString("the following component(s) specified in --follow do not exist in the application:\n")
	b.WriteString(BulletList(e.Unknown))
	b.WriteString("\nthe following components exist:\n")
	b.WriteString(BulletList(e.Valid))
	return b.String()
}

// Is reports whether target matches this error type
func (e *UnknownComponentsError) Is(target error) bool {
	if _, ok := target.(*UnknownComponentsError); ok {
		return true
	}
	if t, ok := target.(*Error); ok {
		return t.Phase == PhaseLoad && t.Kind == KindUnknownComponent
	}
	return false
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// BulletList renders one "  - item" line per item
func BulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "  - " + item
	}
	return strings.Join(lines, "\n")
}
