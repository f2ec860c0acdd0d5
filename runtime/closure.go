package runtime

import (
	"strconv"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Code is the body of a closure. args holds exactly the closure's arity
// values and lives in a frame, so its elements stay current across
// allocations made by the code.
type Code func(h *Handle, args []value.Raw) value.Raw

// A closure is a closure-tagged block [code id; arity]. A partial
// application is [partial; remaining arity; closure; args...].
const partial = -1

// RegisterCode adds code to the runtime's code table and returns its id.
func (rt *Runtime) RegisterCode(code Code) int {
	rt.regMu.Lock()
	defer rt.regMu.Unlock()
	rt.code = append(rt.code, code)
	return len(rt.code) - 1
}

// NewClosure registers code and allocates a closure of the given arity.
func (h *Handle) NewClosure(arity int, code Code) value.Raw {
	return h.Closure(h.rt.RegisterCode(code), arity)
}

// Closure allocates a closure over registered code.
func (h *Handle) Closure(id, arity int) value.Raw {
	if arity < 1 {
		panic(errors.InvalidInput(errors.PhaseRuntime, "closure arity must be positive"))
	}
	if _, ok := h.rt.codeAt(int64(id)); !ok {
		panic(errors.NotFound(errors.PhaseRuntime, "closure code", strconv.Itoa(id)))
	}
	return h.Block(value.TagClosure, value.OfInt(int64(id)), value.OfInt(int64(arity)))
}

// Arity returns the number of arguments f still expects.
func (h *Handle) Arity(f value.Raw) int {
	h.checkClosure(f)
	return int(h.Field(f, 1).Int())
}

// Apply calls the closure f with args. Fewer arguments than its arity build
// a partial application; more apply the result to the rest.
func (h *Handle) Apply(f value.Raw, args ...value.Raw) value.Raw {
	if len(args) == 0 {
		return f
	}
	fr := h.Enter(len(args) + 1)
	defer fr.Leave()
	fr.Push(f)
	for _, a := range args {
		fr.Push(a)
	}
	return h.apply(fr.Slots())
}

// apply calls slots[0] with slots[1:]. slots must live in a frame.
func (h *Handle) apply(slots []value.Raw) value.Raw {
	f := slots[0]
	h.checkClosure(f)
	n := len(slots) - 1
	id := h.Field(f, 0).Int()
	arity := int(h.Field(f, 1).Int())

	if id == partial {
		stored := h.Size(f) - 3
		fr := h.Enter(1 + stored + n)
		defer fr.Leave()
		for i := 2; i < 3+stored; i++ {
			fr.Push(h.Field(f, i))
		}
		for _, a := range slots[1:] {
			fr.Push(a)
		}
		return h.apply(fr.Slots())
	}

	switch {
	case n == arity:
		return h.invoke(id, slots[1:])
	case n < arity:
		p := h.Alloc(3+n, value.TagClosure)
		h.SetField(p, 0, value.OfInt(partial))
		h.SetField(p, 1, value.OfInt(int64(arity-n)))
		for i, x := range slots {
			h.SetField(p, 2+i, x)
		}
		return p
	default:
		res := h.invoke(id, slots[1:1+arity:1+arity])
		fr := h.Enter(1 + n - arity)
		defer fr.Leave()
		fr.Push(res)
		for _, a := range slots[1+arity:] {
			fr.Push(a)
		}
		return h.apply(fr.Slots())
	}
}

func (h *Handle) invoke(id int64, args []value.Raw) value.Raw {
	code, ok := h.rt.codeAt(id)
	if !ok {
		panic(errors.NotFound(errors.PhaseRuntime, "closure code", strconv.FormatInt(id, 10)))
	}
	return code(h, args)
}

func (rt *Runtime) codeAt(id int64) (Code, bool) {
	rt.regMu.RLock()
	defer rt.regMu.RUnlock()
	if id < 0 || id >= int64(len(rt.code)) {
		return nil, false
	}
	return rt.code[id], true
}

func (h *Handle) checkClosure(f value.Raw) {
	if !f.IsBlock() || !h.Contains(f) || h.Tag(f) != value.TagClosure || h.Size(f) < 2 {
		panic(errors.New(errors.PhaseRuntime, errors.KindShape).
			Value(f).
			Detail("apply of non-closure value %v", f).
			Build())
	}
}
