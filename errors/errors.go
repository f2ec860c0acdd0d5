package errors

import (
	"fmt"
	"strings"
)

// Phase names the stage of the bridge that failed
type Phase string

const (
	PhaseDescribe Phase = "describe" // type description validation
	PhaseCompile  Phase = "compile"  // procedure pair construction
	PhaseGenerate Phase = "generate" // source generation
	PhaseEncode   Phase = "encode"   // Go to foreign
	PhaseDecode   Phase = "decode"   // foreign to Go
	PhaseHeap     Phase = "heap"     // allocation and block access
	PhaseRoot     Phase = "root"     // rooting protocol
	PhaseExport   Phase = "export"   // export adapter
	PhaseCallout  Phase = "callout"  // calls into the foreign runtime
	PhaseRuntime  Phase = "runtime"  // runtime operations
	PhaseLoad     Phase = "load"     // module loading
)

// Kind classifies what went wrong
type Kind string

const (
	KindTypeMismatch       Kind = "type_mismatch"
	KindOutOfBounds        Kind = "out_of_bounds"
	KindInvalidData        Kind = "invalid_data"
	KindUnsupported        Kind = "unsupported"
	KindAllocation         Kind = "allocation"
	KindFieldMissing       Kind = "field_missing"
	KindOverflow           Kind = "overflow"
	KindNilPointer         Kind = "nil_pointer"
	KindInvalidVariant     Kind = "invalid_variant"
	KindInvalidDescription Kind = "invalid_description"
	KindShape              Kind = "shape"
	KindStale              Kind = "stale_value"
	KindRootOrder          Kind = "root_order"
	KindArity              Kind = "arity"
	KindNotFound           Kind = "not_found"
	KindNotInitialized     Kind = "not_initialized"
	KindInvalidInput       Kind = "invalid_input"
	KindRegistration       Kind = "registration"
	KindReadOnly           Kind = "read_only"
)

// Error is the structured error type used throughout camlbridge
type Error struct {
	Value       any
	Cause       error
	Phase       Phase
	Kind        Kind
	GoType      string
	ForeignType string
	Location    string
	Detail      string
	Path        []string
}

// Error renders phase, kind, path, types, detail, location and cause
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

	if e.GoType != "" || e.ForeignType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ForeignType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", foreign type ")
			b.WriteString(e.ForeignType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("foreign type ")
			b.WriteString(e.ForeignType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ForeignType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Location != "" {
		b.WriteString(" (")
		b.WriteString(e.Location)
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap exposes Cause to errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same phase and kind
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder assembles an Error field by field
type Builder struct {
	err Error
}

// New starts a builder for phase and kind
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path records the field path from the outermost value
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType records the Go side of the conversion
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ForeignType sets the foreign type name
func (b *Builder) ForeignType(t string) *Builder {
	b.err.ForeignType = t
	return b
}

// Location sets the source location of the offending description
func (b *Builder) Location(loc string) *Builder {
	b.err.Location = loc
	return b
}

// Value records the raw word or Go value at fault
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause chains the error that triggered this one
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the message; args are applied with fmt.Sprintf
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the error
func (b *Builder) Build() *Error {
	return &b.err
}

// Shorthands for the errors raised most often

// TypeMismatch reports a Go type that cannot carry the foreign type
func TypeMismatch(phase Phase, path []string, goType, foreignType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindTypeMismatch,
		Path:        path,
		GoType:      goType,
		ForeignType: foreignType,
	}
}

// InvalidDescription creates a description error pinned to a source location
func InvalidDescription(location, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:    PhaseDescribe,
		Kind:     KindInvalidDescription,
		Location: location,
		Detail:   detail,
	}
}

// Shape creates a decode error for a raw value that does not have the
// shape expected for the target type
func Shape(path []string, foreignType, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:       PhaseDecode,
		Kind:        KindShape,
		Path:        path,
		ForeignType: foreignType,
		Detail:      detail,
	}
}

// AllocationFailed reports a heap request that could not be satisfied
func AllocationFailed(phase Phase, words int, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d words: %s", words, detail),
		Value:  words,
	}
}

// FieldMissing reports a record field absent from the Go struct
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// InvalidDiscriminant creates an error for an unknown constructor value or tag
func InvalidDiscriminant(phase Phase, path []string, foreignType string, disc int64, maxValid int) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindInvalidVariant,
		Path:        path,
		ForeignType: foreignType,
		Detail:      fmt.Sprintf("discriminant %d out of range (max %d)", disc, maxValid),
		Value:       disc,
	}
}

// Unsupported reports a type or operation the bridge does not handle
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds reports a field index outside a block
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer reports a nil Go value where one is required
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow reports an integer that does not fit its target
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:       phase,
		Kind:        KindOverflow,
		Path:        path,
		ForeignType: targetType,
		Detail:      fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:       value,
	}
}

// Arity creates an argument count mismatch error
func Arity(phase Phase, name string, expected, actual int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindArity,
		Detail: fmt.Sprintf("%s: expected %d arguments, got %d", name, expected, actual),
		Value:  actual,
	}
}

// RootOrder creates an error for a frame root released out of LIFO order
func RootOrder(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseRoot,
		Kind:   KindRootOrder,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Wrap attaches phase and kind to an error from another package
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized reports use of a component before setup or after close
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound reports a missing primitive, closure, export or type
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput reports a bad argument to a bridge API
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration reports a primitive or named value that could not be registered
func Registration(phase Phase, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Load reports a WebAssembly module that failed to load
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Recovered converts a value captured by recover() into an error. Values
// that already are errors are returned unchanged.
func Recovered(phase Phase, r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: fmt.Sprint(r),
		Value:  r,
	}
}
