package callout

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/root"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/transcoder"
	"github.com/wippyai/camlbridge/value"
)

// Func is a named foreign closure.
type Func struct {
	rt       *runtime.Runtime
	compiler *transcoder.Compiler
	slot     atomic.Pointer[root.Root]
	name     string
	mu       sync.Mutex
}

// Option configures a Func.
type Option func(*Func)

// WithCompiler sets the compiler Invoke converts values with.
func WithCompiler(c *transcoder.Compiler) Option {
	return func(f *Func) { f.compiler = c }
}

// New returns the closure registered in rt under name. The name is not
// looked up until the first call.
func New(rt *runtime.Runtime, name string, opts ...Option) *Func {
	f := &Func{rt: rt, name: name}
	for _, opt := range opts {
		opt(f)
	}
	if f.compiler == nil {
		f.compiler = transcoder.NewCompiler()
	}
	return f
}

// Name returns the registered name.
func (f *Func) Name() string { return f.name }

// resolve returns the cached root. The name is looked up again when no
// lookup has succeeded yet or the cached root was released by Unregister.
func (f *Func) resolve() (*root.Root, error) {
	if r := f.slot.Load(); r.Valid() {
		return r, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.slot.Load(); r.Valid() {
		return r, nil
	}
	r, ok := f.rt.NamedRoot(f.name)
	if !ok || !r.Valid() {
		f.slot.Store(nil)
		return nil, errors.NotFound(errors.PhaseCallout, "closure", f.name)
	}
	f.slot.Store(r)
	return r, nil
}

// Closure returns the current value of the closure.
func (f *Func) Closure() (value.Raw, error) {
	r, err := f.resolve()
	if err != nil {
		return 0, err
	}
	return r.Get(), nil
}

// Call applies the closure to one argument.
func (f *Func) Call(h *runtime.Handle, arg value.Raw) (runtime.Result, error) {
	return f.CallN(h, arg)
}

// Call2 applies the closure to two arguments.
func (f *Func) Call2(h *runtime.Handle, arg1, arg2 value.Raw) (runtime.Result, error) {
	return f.CallN(h, arg1, arg2)
}

// Call3 applies the closure to three arguments.
func (f *Func) Call3(h *runtime.Handle, arg1, arg2, arg3 value.Raw) (runtime.Result, error) {
	return f.CallN(h, arg1, arg2, arg3)
}

// CallN applies the closure to args. A foreign exception is returned in the
// result, not as an error.
func (f *Func) CallN(h *runtime.Handle, args ...value.Raw) (runtime.Result, error) {
	if len(args) == 0 {
		return runtime.Result{}, errors.Arity(errors.PhaseCallout, f.name, 1, 0)
	}
	r, err := f.resolve()
	if err != nil {
		return runtime.Result{}, err
	}
	return h.Try(func() value.Raw {
		return h.Apply(r.Get(), args...)
	}), nil
}

// Invoke converts args to foreign values, applies the closure and decodes
// the result into out, which must be a non-nil pointer or nil to discard the
// result. A foreign exception is returned as a *runtime.Exception.
func (f *Func) Invoke(h *runtime.Handle, out any, args ...any) error {
	if len(args) == 0 {
		return errors.Arity(errors.PhaseCallout, f.name, 1, 0)
	}
	var dst reflect.Value
	var resultType *transcoder.CompiledType
	if out != nil {
		dst = reflect.ValueOf(out)
		if dst.Kind() != reflect.Pointer || dst.IsNil() {
			return errors.NilPointer(errors.PhaseCallout, nil, dst.Type().String())
		}
		ct, err := f.compiler.Compile(dst.Type().Elem())
		if err != nil {
			return err
		}
		resultType = ct
	}

	frame := h.Enter(len(args))
	defer frame.Leave()
	for i, arg := range args {
		if arg == nil {
			return errors.NilPointer(errors.PhaseCallout, []string{argName(i)}, "nil")
		}
		ct, err := f.compiler.Compile(reflect.TypeOf(arg))
		if err != nil {
			return err
		}
		raw, err := ct.EncodeValue(h, reflect.ValueOf(arg))
		if err != nil {
			return errors.New(errors.PhaseCallout, errors.KindTypeMismatch).
				Path(argName(i)).
				GoType(reflect.TypeOf(arg).String()).
				Cause(err).
				Build()
		}
		frame.Push(raw)
	}

	res, err := f.CallN(h, frame.Slots()...)
	if err != nil {
		return err
	}
	if res.IsException() {
		return h.DecodeException(res.Exception())
	}
	if resultType == nil {
		return nil
	}
	return resultType.DecodeInto(h, res.Value(), dst.Elem())
}

func argName(i int) string {
	return "arg" + strconv.Itoa(i)
}
