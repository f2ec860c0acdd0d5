package heap

import (
	"math"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// CustomOps describes a family of custom blocks. Field 0 of a custom block
// holds the ops id; the remaining fields are opaque payload words.
type CustomOps struct {
	// Identifier names the family, e.g. "_j" for boxed int64.
	Identifier string
	// Finalize runs when a block of this family is found unreachable.
	Finalize func(payload []uint64)
}

// Identifiers of the built-in custom block families.
const (
	OpsInt64 = "_j"
	OpsInt32 = "_i"
)

func (h *Heap) registerBuiltinOps() {
	h.RegisterCustom(CustomOps{Identifier: OpsInt64})
	h.RegisterCustom(CustomOps{Identifier: OpsInt32})
}

// RegisterCustom adds a custom block family and returns its id. Registering
// an identifier twice returns the existing id.
func (h *Heap) RegisterCustom(ops CustomOps) int {
	if id, ok := h.opsByID[ops.Identifier]; ok {
		return id
	}
	id := len(h.ops)
	h.ops = append(h.ops, ops)
	h.opsByID[ops.Identifier] = id
	return id
}

// CustomID returns the id registered for identifier.
func (h *Heap) CustomID(identifier string) (int, bool) {
	id, ok := h.opsByID[identifier]
	return id, ok
}

// AllocCustom allocates a custom block of the given family.
func (h *Heap) AllocCustom(opsID int, payload ...uint64) (value.Raw, error) {
	if opsID < 0 || opsID >= len(h.ops) {
		return 0, errors.InvalidInput(errors.PhaseHeap, "unknown custom ops id")
	}
	v, err := h.Alloc(1+len(payload), value.TagCustom)
	if err != nil {
		return 0, err
	}
	i := h.index(v)
	h.words[i] = uint64(opsID)
	copy(h.words[i+1:], payload)
	return v, nil
}

// Custom returns the family and payload of a custom block. The payload
// slice aliases heap memory and is invalid after the next allocation.
func (h *Heap) Custom(v value.Raw) (CustomOps, []uint64) {
	hd := h.Header(v)
	if hd.Tag() != value.TagCustom || hd.Size() == 0 {
		panic(shapeError(v, "custom block", hd))
	}
	i := h.index(v)
	id := int(h.words[i])
	if id >= len(h.ops) {
		panic(shapeError(v, "custom block with known ops", hd))
	}
	return h.ops[id], h.words[i+1 : i+hd.Size()]
}

func (h *Heap) finalize(fields []uint64) {
	id := int(fields[0])
	if id < len(h.ops) && h.ops[id].Finalize != nil {
		h.ops[id].Finalize(fields[1:])
	}
}

// AllocInt64 boxes n in a custom block.
func (h *Heap) AllocInt64(n int64) (value.Raw, error) {
	return h.AllocCustom(h.opsByID[OpsInt64], uint64(n))
}

// Int64Of unboxes a boxed int64.
func (h *Heap) Int64Of(v value.Raw) int64 {
	ops, payload := h.Custom(v)
	if ops.Identifier != OpsInt64 || len(payload) != 1 {
		panic(shapeError(v, "boxed int64", h.Header(v)))
	}
	return int64(payload[0])
}

// AllocInt32 boxes n in a custom block.
func (h *Heap) AllocInt32(n int32) (value.Raw, error) {
	return h.AllocCustom(h.opsByID[OpsInt32], uint64(uint32(n)))
}

// Int32Of unboxes a boxed int32.
func (h *Heap) Int32Of(v value.Raw) int32 {
	ops, payload := h.Custom(v)
	if ops.Identifier != OpsInt32 || len(payload) != 1 {
		panic(shapeError(v, "boxed int32", h.Header(v)))
	}
	return int32(uint32(payload[0]))
}

// AllocString allocates a string block holding s.
func (h *Heap) AllocString(s string) (value.Raw, error) {
	return h.allocBytes(len(s), func(k int) byte { return s[k] })
}

// AllocBytes allocates a string block holding a copy of b.
func (h *Heap) AllocBytes(b []byte) (value.Raw, error) {
	return h.allocBytes(len(b), func(k int) byte { return b[k] })
}

// Strings occupy len/8+1 words. The last byte of the last word holds the
// number of padding bytes, so length = words*8 - 1 - pad.
func (h *Heap) allocBytes(n int, at func(int) byte) (value.Raw, error) {
	words := n/wordSize + 1
	v, err := h.Alloc(words, value.TagString)
	if err != nil {
		return 0, err
	}
	i := h.index(v)
	for k := 0; k < n; k++ {
		h.words[i+k/wordSize] |= uint64(at(k)) << (8 * (k % wordSize))
	}
	pad := words*wordSize - 1 - n
	h.words[i+words-1] |= uint64(pad) << 56
	return v, nil
}

// StringLength returns the byte length of a string block.
func (h *Heap) StringLength(v value.Raw) int {
	hd := h.Header(v)
	if hd.Tag() != value.TagString {
		panic(shapeError(v, "string", hd))
	}
	words := hd.Size()
	if words == 0 {
		return 0
	}
	last := h.words[h.index(v)+words-1]
	return words*wordSize - 1 - int(last>>56)
}

// BytesOf copies the contents of a string block.
func (h *Heap) BytesOf(v value.Raw) []byte {
	n := h.StringLength(v)
	out := make([]byte, n)
	if n == 0 {
		return out
	}
	i := h.index(v)
	for k := 0; k < n; k++ {
		out[k] = byte(h.words[i+k/wordSize] >> (8 * (k % wordSize)))
	}
	return out
}

// StringOf returns the contents of a string block.
func (h *Heap) StringOf(v value.Raw) string {
	return string(h.BytesOf(v))
}

// AllocDouble boxes f.
func (h *Heap) AllocDouble(f float64) (value.Raw, error) {
	v, err := h.Alloc(1, value.TagDouble)
	if err != nil {
		return 0, err
	}
	h.words[h.index(v)] = math.Float64bits(f)
	return v, nil
}

// DoubleOf unboxes a boxed double.
func (h *Heap) DoubleOf(v value.Raw) float64 {
	hd := h.Header(v)
	if hd.Tag() != value.TagDouble || hd.Size() != 1 {
		panic(shapeError(v, "boxed float", hd))
	}
	return math.Float64frombits(h.words[h.index(v)])
}

// AllocDoubleArray allocates an unboxed float array.
func (h *Heap) AllocDoubleArray(fs []float64) (value.Raw, error) {
	if len(fs) == 0 {
		return h.Atom(0), nil
	}
	v, err := h.Alloc(len(fs), value.TagDoubleArray)
	if err != nil {
		return 0, err
	}
	i := h.index(v)
	for k, f := range fs {
		h.words[i+k] = math.Float64bits(f)
	}
	return v, nil
}

// DoubleArrayOf copies an unboxed float array. The empty array is the
// tag-0 atom.
func (h *Heap) DoubleArrayOf(v value.Raw) []float64 {
	hd := h.Header(v)
	if hd.Size() == 0 {
		return []float64{}
	}
	if hd.Tag() != value.TagDoubleArray {
		panic(shapeError(v, "float array", hd))
	}
	i := h.index(v)
	out := make([]float64, hd.Size())
	for k := range out {
		out[k] = math.Float64frombits(h.words[i+k])
	}
	return out
}

func shapeError(v value.Raw, expected string, hd value.Header) *errors.Error {
	return errors.New(errors.PhaseHeap, errors.KindShape).
		Value(v).
		Detail("expected %s, got block with tag %v and size %d", expected, hd.Tag(), hd.Size()).
		Build()
}
