package runtime

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/root"
	"github.com/wippyai/camlbridge/value"
)

// Names of the predefined exceptions.
const (
	Failure         = "Failure"
	InvalidArgument = "Invalid_argument"
	NotFound        = "Not_found"
	OutOfMemory     = "Out_of_memory"
	DivisionByZero  = "Division_by_zero"
)

var predefined = []string{Failure, InvalidArgument, NotFound, OutOfMemory, DivisionByZero}

// Exn identifies an exception constructor. Its value is an object block
// [name; id]. A constant exception is that block itself; an exception with
// arguments is a tag-0 block [constructor; args...].
type Exn struct {
	slot *root.Root
	name string
	id   int64
}

// Name returns the constructor name.
func (e *Exn) Name() string { return e.name }

// Value returns the constructor block at its current address.
func (e *Exn) Value() value.Raw { return e.slot.Get() }

// Exn looks up an exception constructor by name.
func (rt *Runtime) Exn(name string) (*Exn, bool) {
	rt.regMu.RLock()
	defer rt.regMu.RUnlock()
	e, ok := rt.exns[name]
	return e, ok
}

// DefineException creates the exception constructor name. Defining an
// existing name returns the existing constructor.
func (h *Handle) DefineException(name string) *Exn {
	if e, ok := h.rt.Exn(name); ok {
		return e
	}
	s := h.AllocString(name)
	f := h.Enter(1)
	defer f.Leave()
	slot := f.Push(s)

	h.rt.regMu.Lock()
	h.rt.nextExn++
	id := h.rt.nextExn
	h.rt.regMu.Unlock()

	b := h.Block(value.TagObject, f.Get(slot), value.OfInt(id))
	e := &Exn{slot: h.Root(b), name: name, id: id}

	h.rt.regMu.Lock()
	h.rt.exns[name] = e
	h.rt.regMu.Unlock()
	return e
}

// Raised is the panic value carrying a foreign exception through Go frames.
// The exception stays rooted until a Try takes it.
type Raised struct {
	exn  *root.Root
	name string
}

// Error implements error.
func (r *Raised) Error() string { return "foreign exception " + r.name }

// Name returns the constructor name of the exception.
func (r *Raised) Name() string { return r.name }

func (r *Raised) take() value.Raw {
	v := r.exn.Get()
	r.exn.Release()
	return v
}

// Raise throws exn, which must be an exception block. It does not return.
func (h *Handle) Raise(exn value.Raw) {
	if !exn.IsBlock() {
		panic(errors.New(errors.PhaseRuntime, errors.KindShape).
			Value(exn).
			Detail("raise of non-block value %v", exn).
			Build())
	}
	name := h.exceptionName(exn)
	h.rt.log.Debug("raise", zap.String("exception", name))
	panic(&Raised{exn: h.Root(exn), name: name})
}

// RaiseWith throws the exception e applied to args.
func (h *Handle) RaiseWith(e *Exn, args ...value.Raw) {
	if len(args) == 0 {
		h.Raise(e.Value())
		return
	}
	f := h.Enter(len(args))
	defer f.Leave()
	for _, a := range args {
		f.Push(a)
	}
	h.Raise(h.Tuple(append([]value.Raw{e.Value()}, f.Slots()...)...))
}

// Failwith raises Failure msg.
func (h *Handle) Failwith(msg string) {
	h.raiseString(Failure, msg)
}

// InvalidArg raises Invalid_argument msg.
func (h *Handle) InvalidArg(msg string) {
	h.raiseString(InvalidArgument, msg)
}

func (h *Handle) raiseString(name, msg string) {
	e, ok := h.rt.Exn(name)
	if !ok {
		panic(errors.NotFound(errors.PhaseRuntime, "exception", name))
	}
	h.RaiseWith(e, h.AllocString(msg))
}

// Is reports whether exn was built from the constructor e.
func (h *Handle) Is(exn value.Raw, e *Exn) bool {
	c, ok := h.constructor(exn)
	return ok && c == e.Value()
}

// Try runs fn and stops any foreign exception it raises. Frames opened below
// the call are closed. Other panics propagate.
func (h *Handle) Try(fn func() value.Raw) (res Result) {
	depth := h.rt.chain.Depth()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		raised, ok := r.(*Raised)
		if !ok {
			panic(r)
		}
		if h.rt.chain.Depth() > depth {
			h.rt.chain.Unwind(depth)
		}
		res = Exceptional(raised.take())
	}()
	return Ok(fn())
}

func (h *Handle) constructor(exn value.Raw) (value.Raw, bool) {
	if !exn.IsBlock() || !h.Contains(exn) {
		return 0, false
	}
	hd := h.Header(exn)
	switch {
	case hd.Tag() == value.TagObject:
		return exn, true
	case hd.Tag() == value.TagRecord && hd.Size() >= 1:
		c := h.Field(exn, 0)
		if c.IsBlock() && h.Contains(c) && h.Tag(c) == value.TagObject {
			return c, true
		}
	}
	return 0, false
}

func (h *Handle) exceptionName(exn value.Raw) string {
	c, ok := h.constructor(exn)
	if !ok || h.Size(c) < 1 {
		return "<unknown>"
	}
	name := h.Field(c, 0)
	if !name.IsBlock() || h.Tag(name) != value.TagString {
		return "<unknown>"
	}
	return h.StringOf(name)
}

// Exception is a decoded foreign exception.
type Exception struct {
	Name string
	Args []string
}

// Error implements error.
func (e *Exception) Error() string {
	switch len(e.Args) {
	case 0:
		return e.Name
	case 1:
		return e.Name + "(" + e.Args[0] + ")"
	}
	s := e.Name + "("
	for i, a := range e.Args {
		if i > 0 {
			s += ", "
		}
		s += a
	}
	return s + ")"
}

// Message returns the string argument of exceptions such as Failure, or "".
func (e *Exception) Message() string {
	if len(e.Args) != 1 {
		return ""
	}
	if s, err := strconv.Unquote(e.Args[0]); err == nil {
		return s
	}
	return ""
}

// DecodeException describes exn. Arguments are rendered as quoted strings,
// integers, floats or "_" for other blocks.
func (h *Handle) DecodeException(exn value.Raw) *Exception {
	e := &Exception{Name: h.exceptionName(exn)}
	if !exn.IsBlock() || !h.Contains(exn) || h.Tag(exn) != value.TagRecord {
		return e
	}
	for i := 1; i < h.Size(exn); i++ {
		e.Args = append(e.Args, h.describeArg(h.Field(exn, i)))
	}
	return e
}

func (h *Handle) describeArg(v value.Raw) string {
	if v.IsImmediate() {
		return strconv.FormatInt(v.Int(), 10)
	}
	if !h.Contains(v) {
		return "_"
	}
	switch h.Tag(v) {
	case value.TagString:
		return strconv.Quote(h.StringOf(v))
	case value.TagDouble:
		return strconv.FormatFloat(h.DoubleOf(v), 'g', -1, 64)
	}
	return "_"
}

// Result is the outcome of a call into foreign code: a value or an
// exception marker. A value must be rooted before the next allocation.
type Result struct {
	raw value.Raw
}

// Ok wraps a normal result.
func Ok(v value.Raw) Result { return Result{raw: v} }

// Exceptional wraps the exception exn.
func Exceptional(exn value.Raw) Result { return Result{raw: value.MakeException(exn)} }

// Raw returns the marked word.
func (r Result) Raw() value.Raw { return r.raw }

// IsException reports whether the call raised.
func (r Result) IsException() bool { return r.raw.IsException() }

// Value returns the normal result. It panics if the call raised.
func (r Result) Value() value.Raw {
	if r.IsException() {
		panic(errors.New(errors.PhaseCallout, errors.KindInvalidInput).
			Detail("Value of an exceptional result").
			Build())
	}
	return r.raw
}

// Exception returns the raised exception. It panics if the call returned.
func (r Result) Exception() value.Raw {
	if !r.IsException() {
		panic(errors.New(errors.PhaseCallout, errors.KindInvalidInput).
			Detail("Exception of a normal result").
			Build())
	}
	return value.ExtractException(r.raw)
}

func (r Result) String() string {
	if r.IsException() {
		return fmt.Sprintf("exception(%v)", r.Exception())
	}
	return fmt.Sprintf("value(%v)", r.raw)
}
