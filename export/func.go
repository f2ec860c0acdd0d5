package export

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/transcoder"
	"github.com/wippyai/camlbridge/value"
)

type options struct {
	noAlloc     bool
	transparent bool
	generic     bool
}

// Option adjusts how Wrap builds a function.
type Option func(*options)

// NoAlloc declares that the function never allocates on the foreign heap.
// It runs with a shared handle.
func NoAlloc() Option {
	return func(o *options) { o.noAlloc = true }
}

// PanicTransparent runs the body without the recover boundary. A panic
// leaves the call as a Go panic.
func PanicTransparent() Option {
	return func(o *options) { o.transparent = true }
}

// Generic also emits the generic entry for functions that fit the native
// convention.
func Generic() Option {
	return func(o *options) { o.generic = true }
}

// Func is a Go function prepared for calls from the foreign runtime.
type Func struct {
	fn         reflect.Value
	name       string
	params     []param
	result     param
	opts       options
	withHandle bool
	withError  bool
}

// Wrap prepares fn to be called as the primitive name.
func Wrap(c *transcoder.Compiler, name string, fn any, opts ...Option) (*Func, error) {
	if name == "" {
		return nil, errors.InvalidInput(errors.PhaseExport, "function name cannot be empty")
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseExport, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}
	if rv.IsNil() {
		return nil, errors.NilPointer(errors.PhaseExport, nil, rv.Type().String())
	}
	ft := rv.Type()
	if ft.IsVariadic() {
		return nil, invalid(name, "variadic functions cannot be exported")
	}

	f := &Func{fn: rv, name: name}
	for _, opt := range opts {
		opt(&f.opts)
	}

	first := 0
	if ft.NumIn() > 0 && ft.In(0) == handleType {
		f.withHandle = true
		first = 1
	}
	for i := first; i < ft.NumIn(); i++ {
		p, err := classify(c, ft.In(i))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseExport, errors.KindInvalidDescription, err,
				fmt.Sprintf("%s: parameter %d", name, i))
		}
		f.params = append(f.params, p)
	}
	if len(f.params) == 0 {
		f.params = []param{{class: classUnit}}
	}

	if err := f.bindResult(c, ft); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Func) bindResult(c *transcoder.Compiler, ft reflect.Type) error {
	outs := ft.NumOut()
	if outs > 0 && ft.Out(outs-1) == errorType {
		f.withError = true
		outs--
	}
	switch outs {
	case 0:
		f.result = param{class: classUnit}
		return nil
	case 1:
	default:
		return invalid(f.name, "at most one result besides error")
	}

	rt := ft.Out(0)
	if rt == rootType {
		return invalid(f.name, "a rooted value cannot be returned; its root ends with the call")
	}
	p, err := classify(c, rt)
	if err != nil {
		return errors.Wrap(errors.PhaseExport, errors.KindInvalidDescription, err, f.name+": result")
	}
	if f.opts.noAlloc && p.class == classValue && !p.ct.Kind.IsImmediate() {
		return invalid(f.name, "a noalloc function cannot return "+p.ct.Foreign())
	}
	f.result = p
	return nil
}

func invalid(name, detail string) *errors.Error {
	return errors.New(errors.PhaseExport, errors.KindInvalidDescription).
		Location(name).
		Detail("%s", detail).
		Build()
}

// Name returns the primitive name.
func (f *Func) Name() string { return f.name }

// Arity returns the number of foreign arguments.
func (f *Func) Arity() int { return len(f.params) }

// HasGeneric reports whether the generic entry is emitted.
func (f *Func) HasGeneric() bool {
	return f.opts.generic || f.Arity() > runtime.MaxNativeArgs
}

// GenericName returns the name the generic entry is known by.
func (f *Func) GenericName() string { return f.name + "_byte" }

// Primitive returns the primitive to register with a runtime.
func (f *Func) Primitive() *runtime.Primitive {
	p := &runtime.Primitive{
		Name:    f.name,
		Arity:   f.Arity(),
		NoAlloc: f.opts.noAlloc,
	}
	if f.Arity() <= runtime.MaxNativeArgs {
		p.Native = f.Native
	}
	if f.HasGeneric() {
		p.Generic = f.Generic
	}
	return p
}

// Native is the native entry: one word per argument.
func (f *Func) Native(rt *runtime.Runtime, args []uint64) uint64 {
	h := rt.Recover(f.opts.noAlloc)

	in := make([]reflect.Value, 0, len(f.params)+1)
	if f.withHandle {
		in = append(in, reflect.ValueOf(h))
	}
	for i, p := range f.params {
		if p.class == classUnit {
			continue
		}
		in = append(in, p.fromWord(h, args[i]))
	}

	if f.opts.transparent {
		w, err := f.finish(h, f.fn.Call(in))
		if err != nil {
			f.fail(rt, err)
		}
		return w
	}

	var (
		w       uint64
		err     error
		aborted any
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				if raised, ok := r.(*runtime.Raised); ok {
					panic(raised)
				}
				aborted = r
			}
		}()
		w, err = f.finish(h, f.fn.Call(in))
	}()
	switch {
	case aborted != nil:
		f.fail(rt, aborted)
	case err != nil:
		f.fail(rt, err)
	}
	return w
}

// finish converts the Go results of the body to the result word.
func (f *Func) finish(h *runtime.Handle, out []reflect.Value) (uint64, error) {
	if f.withError {
		if e := out[len(out)-1]; !e.IsNil() {
			return 0, e.Interface().(error)
		}
	}
	if f.result.class == classUnit {
		return uint64(value.Unit), nil
	}
	return f.result.toWord(h, out[0])
}

// fail raises Failure carrying the message of an abort or error. It does
// not return.
func (f *Func) fail(rt *runtime.Runtime, cause any) {
	msg := message(cause)
	Logger().Debug("export call failed", zap.String("func", f.name), zap.String("message", msg))
	rt.Recover(false).Failwith(msg)
}

func message(cause any) string {
	switch c := cause.(type) {
	case error:
		return c.Error()
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}

// Generic is the generic entry: argv holds boxed arguments, argn is the
// count the caller passed.
func (f *Func) Generic(rt *runtime.Runtime, argv []value.Raw, argn int) value.Raw {
	if rt.Debug() && argn != f.Arity() {
		panic(errors.Arity(errors.PhaseExport, f.name, f.Arity(), argn))
	}
	h := rt.Recover(true)
	words := make([]uint64, len(f.params))
	for i, p := range f.params {
		words[i] = p.unbox(h, argv[i])
	}
	w := f.Native(rt, words)
	return f.result.box(rt.Recover(false), w)
}

// Signature renders the foreign external declaration of the function.
func (f *Func) Signature() string {
	var b strings.Builder
	b.WriteString("external ")
	b.WriteString(f.name)
	b.WriteString(" : ")
	unboxed := false
	for _, p := range f.params {
		b.WriteString(p.foreign())
		b.WriteString(" -> ")
		unboxed = unboxed || p.scalar()
	}
	b.WriteString(f.result.foreign())
	unboxed = unboxed || f.result.scalar()

	b.WriteString(" = ")
	if f.HasGeneric() || unboxed {
		fmt.Fprintf(&b, "%q ", f.GenericName())
	}
	fmt.Fprintf(&b, "%q", f.name)
	if f.opts.noAlloc {
		b.WriteString(" [@@noalloc]")
	}
	return b.String()
}
