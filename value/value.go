package value

import "strconv"

// Raw is an opaque foreign runtime value: an immediate integer or a block address.
type Raw uint64

// Shape distinguishes the two interpretations of a Raw value.
type Shape uint8

const (
	Immediate Shape = iota
	Block
)

func (s Shape) String() string {
	switch s {
	case Immediate:
		return "immediate"
	case Block:
		return "block"
	default:
		return "shape(" + strconv.Itoa(int(s)) + ")"
	}
}

// Immediate range: one bit is spent on the shape marker.
const (
	MaxInt int64 = 1<<62 - 1
	MinInt int64 = -1 << 62
)

// Shared encodings of OfInt(0) and OfInt(1).
const (
	Unit      Raw = 1
	False     Raw = 1
	True      Raw = 3
	EmptyList Raw = 1
	None      Raw = 1
)

// Classify reports the shape of v.
func Classify(v Raw) Shape {
	if v&1 == 1 {
		return Immediate
	}
	return Block
}

// IsImmediate reports whether v encodes an integer.
func (v Raw) IsImmediate() bool { return v&1 == 1 }

// IsBlock reports whether v has the block shape. It does not check that the
// address belongs to a heap; see heap.Heap.Contains.
func (v Raw) IsBlock() bool { return v&1 == 0 }

// Int decodes an immediate. The result is meaningless for blocks.
func (v Raw) Int() int64 { return int64(v) >> 1 }

// Bool decodes an immediate boolean.
func (v Raw) Bool() bool { return v != False }

// OfInt encodes n as an immediate. Bits above MaxInt are lost.
func OfInt(n int64) Raw { return Raw(uint64(n)<<1 | 1) }

// OfIntChecked encodes n, reporting false if it does not fit an immediate.
func OfIntChecked(n int64) (Raw, bool) {
	if n > MaxInt || n < MinInt {
		return 0, false
	}
	return OfInt(n), true
}

// OfBool encodes a boolean.
func OfBool(b bool) Raw {
	if b {
		return True
	}
	return False
}

// Exception results carry the exception value with its low bits set to 10.
// Block addresses are word aligned, so the marker never collides with a
// normal block result, and immediates always end in 1.

// IsException reports whether v is an exception result.
func (v Raw) IsException() bool { return v&3 == 2 }

// MakeException marks exn as an exception result.
func MakeException(exn Raw) Raw { return exn | 2 }

// ExtractException returns the exception value carried by an exception result.
func ExtractException(v Raw) Raw { return v &^ 3 }

func (v Raw) String() string {
	switch {
	case v.IsImmediate():
		return strconv.FormatInt(v.Int(), 10)
	case v.IsException():
		return "exn@0x" + strconv.FormatUint(uint64(ExtractException(v)), 16)
	default:
		return "@0x" + strconv.FormatUint(uint64(v), 16)
	}
}
