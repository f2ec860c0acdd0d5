package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/heap"
	"github.com/wippyai/camlbridge/root"
	"github.com/wippyai/camlbridge/value"
)

// Handle is the capability to read, and unless shared, to allocate on the
// foreign heap.
type Handle struct {
	rt     *Runtime
	shared bool
	owned  bool
}

var _ camlbridge.Mutator = (*Handle)(nil)

// Release gives up a handle obtained from Acquire or AcquireShared.
// Releasing a recovered handle, or releasing twice, is a no-op.
func (h *Handle) Release() {
	if !h.owned {
		return
	}
	h.owned = false
	if h.shared {
		h.rt.mu.RUnlock()
	} else {
		h.rt.mu.Unlock()
	}
}

// Runtime returns the runtime the handle belongs to.
func (h *Handle) Runtime() *Runtime { return h.rt }

// Shared reports whether the handle is read-only.
func (h *Handle) Shared() bool { return h.shared }

func (h *Handle) mutable() {
	if h.shared {
		panic(errors.New(errors.PhaseRuntime, errors.KindReadOnly).
			Detail("allocation through a shared handle").
			Build())
	}
}

// Contains reports whether v is a live block.
func (h *Handle) Contains(v value.Raw) bool { return h.rt.heap.Contains(v) }

// Header returns the header of block v.
func (h *Handle) Header(v value.Raw) value.Header { return h.rt.heap.Header(v) }

// Tag returns the tag of block v.
func (h *Handle) Tag(v value.Raw) value.Tag { return h.rt.heap.Tag(v) }

// Size returns the field count of block v.
func (h *Handle) Size(v value.Raw) int { return h.rt.heap.Size(v) }

// Field reads field i of block v.
func (h *Handle) Field(v value.Raw, i int) value.Raw { return h.rt.heap.Field(v, i) }

// StringOf, BytesOf, DoubleOf, DoubleArrayOf, Int64Of and Int32Of unbox
// blocks of the matching shape and panic on any other.

func (h *Handle) StringOf(v value.Raw) string         { return h.rt.heap.StringOf(v) }
func (h *Handle) BytesOf(v value.Raw) []byte          { return h.rt.heap.BytesOf(v) }
func (h *Handle) DoubleOf(v value.Raw) float64        { return h.rt.heap.DoubleOf(v) }
func (h *Handle) DoubleArrayOf(v value.Raw) []float64 { return h.rt.heap.DoubleArrayOf(v) }
func (h *Handle) Int64Of(v value.Raw) int64           { return h.rt.heap.Int64Of(v) }
func (h *Handle) Int32Of(v value.Raw) int32           { return h.rt.heap.Int32Of(v) }

// Custom returns the family identifier and payload of a custom block.
func (h *Handle) Custom(v value.Raw) (string, []uint64) {
	ops, payload := h.rt.heap.Custom(v)
	return ops.Identifier, payload
}

// SetField writes field i of block v.
func (h *Handle) SetField(v value.Raw, i int, x value.Raw) {
	h.mutable()
	h.rt.heap.SetField(v, i, x)
}

// Alloc allocates a block. Scannable fields start as value.Unit.
func (h *Handle) Alloc(size int, tag value.Tag) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.Alloc(size, tag))
}

// AllocString allocates a string block.
func (h *Handle) AllocString(s string) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.AllocString(s))
}

// AllocBytes allocates a string block holding a copy of b.
func (h *Handle) AllocBytes(b []byte) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.AllocBytes(b))
}

// AllocDouble boxes f.
func (h *Handle) AllocDouble(f float64) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.AllocDouble(f))
}

// AllocDoubleArray allocates an unboxed float array.
func (h *Handle) AllocDoubleArray(fs []float64) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.AllocDoubleArray(fs))
}

// AllocInt64 boxes n.
func (h *Handle) AllocInt64(n int64) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.AllocInt64(n))
}

// AllocInt32 boxes n.
func (h *Handle) AllocInt32(n int32) value.Raw {
	h.mutable()
	return h.check(h.rt.heap.AllocInt32(n))
}

// AllocCustom allocates a block of the custom family registered as identifier.
func (h *Handle) AllocCustom(identifier string, payload ...uint64) value.Raw {
	h.mutable()
	id, ok := h.rt.heap.CustomID(identifier)
	if !ok {
		panic(errors.NotFound(errors.PhaseRuntime, "custom ops", identifier))
	}
	return h.check(h.rt.heap.AllocCustom(id, payload...))
}

// Tuple allocates a tag-0 block holding fields. The fields are rooted while
// the block is allocated.
func (h *Handle) Tuple(fields ...value.Raw) value.Raw {
	return h.Block(value.TagRecord, fields...)
}

// Block allocates a block with the given tag holding fields.
func (h *Handle) Block(tag value.Tag, fields ...value.Raw) value.Raw {
	if len(fields) == 0 {
		return h.Alloc(0, tag)
	}
	f := h.Enter(len(fields))
	defer f.Leave()
	for _, x := range fields {
		f.Push(x)
	}
	b := h.Alloc(len(fields), tag)
	for i, x := range f.Slots() {
		h.SetField(b, i, x)
	}
	return b
}

// Stats returns the heap counters.
func (h *Handle) Stats() heap.Stats { return h.rt.heap.Stats() }

// Collect runs a full collection.
func (h *Handle) Collect() {
	h.mutable()
	if err := h.rt.heap.Collect(); err != nil {
		h.outOfMemory(err)
	}
}

// Enter opens a frame of n root slots on the runtime's chain.
func (h *Handle) Enter(n int) *root.Frame {
	h.mutable()
	return h.rt.chain.Enter(n)
}

// Root creates a handle root for v. The caller owns it.
func (h *Handle) Root(v value.Raw) *root.Root {
	r, err := h.rt.roots.New(v)
	if err != nil {
		panic(err)
	}
	return r
}

func (h *Handle) check(v value.Raw, err error) value.Raw {
	if err != nil {
		h.outOfMemory(err)
	}
	return v
}

func (h *Handle) outOfMemory(err error) {
	h.rt.log.Warn("foreign heap exhausted", zap.Error(err))
	e, ok := h.rt.Exn(OutOfMemory)
	if !ok {
		panic(err)
	}
	h.Raise(e.Value())
}
