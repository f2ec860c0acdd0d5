package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// MaxNativeArgs is the largest arity the native calling convention passes
// one word per argument. Larger primitives are called through the generic
// entry only.
const MaxNativeArgs = 5

// NativeFunc is the native entry of a primitive: one word per argument, one
// word of result. Scalars travel unboxed.
type NativeFunc func(rt *Runtime, args []uint64) uint64

// GenericFunc is the generic entry of a primitive: every argument is a
// boxed value in argv, argn is the count the caller passed.
type GenericFunc func(rt *Runtime, argv []value.Raw, argn int) value.Raw

// Primitive is an external function the foreign side can call.
type Primitive struct {
	Native  NativeFunc
	Generic GenericFunc
	Name    string
	Arity   int
	NoAlloc bool
}

// RegisterPrimitive adds p to the primitive table.
func (rt *Runtime) RegisterPrimitive(p *Primitive) error {
	if p == nil || p.Name == "" {
		return errors.InvalidInput(errors.PhaseRuntime, "primitive name is required")
	}
	if p.Native == nil && p.Generic == nil {
		return errors.Registration(errors.PhaseRuntime, p.Name,
			errors.InvalidInput(errors.PhaseRuntime, "primitive has no entry point"))
	}
	if p.Arity > MaxNativeArgs && p.Generic == nil {
		return errors.Registration(errors.PhaseRuntime, p.Name,
			errors.Arity(errors.PhaseRuntime, p.Name, MaxNativeArgs, p.Arity))
	}

	rt.regMu.Lock()
	defer rt.regMu.Unlock()
	if _, exists := rt.prims[p.Name]; exists {
		return errors.Registration(errors.PhaseRuntime, p.Name,
			errors.InvalidInput(errors.PhaseRuntime, "primitive already registered"))
	}
	rt.prims[p.Name] = p
	rt.log.Debug("primitive registered",
		zap.String("name", p.Name),
		zap.Int("arity", p.Arity),
		zap.Bool("generic", p.Generic != nil),
	)
	return nil
}

// Primitive looks up a primitive by name.
func (rt *Runtime) Primitive(name string) (*Primitive, bool) {
	rt.regMu.RLock()
	defer rt.regMu.RUnlock()
	p, ok := rt.prims[name]
	return p, ok
}

// CallNative calls the native entry of the named primitive. Foreign
// exceptions raised by the primitive propagate as a *Raised panic.
func (h *Handle) CallNative(name string, args ...uint64) (uint64, error) {
	p, ok := h.rt.Primitive(name)
	if !ok {
		return 0, errors.NotFound(errors.PhaseRuntime, "primitive", name)
	}
	if p.Native == nil || p.Arity > MaxNativeArgs {
		return 0, errors.Unsupported(errors.PhaseRuntime, name+": no native entry")
	}
	if len(args) != p.Arity {
		return 0, errors.Arity(errors.PhaseRuntime, name, p.Arity, len(args))
	}
	return p.Native(h.rt, args), nil
}

// CallGeneric calls the generic entry of the named primitive with argv
// rooted in a frame. The argument count is not checked here.
func (h *Handle) CallGeneric(name string, argv ...value.Raw) (value.Raw, error) {
	p, ok := h.rt.Primitive(name)
	if !ok {
		return 0, errors.NotFound(errors.PhaseRuntime, "primitive", name)
	}
	if p.Generic == nil {
		return 0, errors.Unsupported(errors.PhaseRuntime, name+": no generic entry")
	}
	f := h.Enter(len(argv))
	defer f.Leave()
	for _, a := range argv {
		f.Push(a)
	}
	return p.Generic(h.rt, f.Slots(), len(argv)), nil
}
