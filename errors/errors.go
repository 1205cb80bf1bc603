package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // module fetch and compile
	PhaseSchedule Phase = "schedule" // render phase transitions
	PhaseManifest Phase = "manifest" // manifest build and install
	PhaseDecode   Phase = "decode"   // snapshot, registry and manifest decoding
	PhaseRender   Phase = "render"   // placeholder and content decisions
	PhaseConfig   Phase = "config"   // boot and CLI configuration
)

// Kind categorizes the error
type Kind string

const (
	KindFetchFailure       Kind = "fetch_failure"
	KindPhaseRegression    Kind = "phase_regression"
	KindInvalidData        Kind = "invalid_data"
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindAlreadyInitialized Kind = "already_initialized"
	KindNotInitialized     Kind = "not_initialized"
	KindUnsupported        Kind = "unsupported"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Unit   string
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

	if e.Unit != "" {
		b.WriteString(" unit ")
		b.WriteString(e.Unit)
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

// Unit sets the lazy unit the error belongs to
func (b *Builder) Unit(id string) *Builder {
	b.err.Unit = id
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

// Sentinels for errors.Is matching on Phase and Kind.
var (
	ErrFetchFailure       = &Error{Phase: PhaseLoad, Kind: KindFetchFailure}
	ErrPhaseRegression    = &Error{Phase: PhaseSchedule, Kind: KindPhaseRegression}
	ErrAlreadyInitialized = &Error{Phase: PhaseConfig, Kind: KindAlreadyInitialized}
	ErrNotInitialized     = &Error{Phase: PhaseConfig, Kind: KindNotInitialized}
)

// FetchFailure wraps a rejected or panicking import function
func FetchFailure(unit string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindFetchFailure,
		Unit:   unit,
		Detail: "import failed",
		Cause:  cause,
	}
}

// PhaseRegression reports an attempt to move a render phase backwards
func PhaseRegression(from, to fmt.Stringer) *Error {
	return &Error{
		Phase:  PhaseSchedule,
		Kind:   KindPhaseRegression,
		Detail: fmt.Sprintf("cannot move from %s back to %s", from, to),
		Value:  to,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
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

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// AlreadyInitialized reports a second install of process-wide state
func AlreadyInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindAlreadyInitialized,
		Detail: fmt.Sprintf("%s already initialized", component),
	}
}

// NotInitialized reports use of process-wide state before install
func NotInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
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

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a decoding error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
