package camlbridge

import (
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Integer is the set of Go integer types carried as immediates.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~uint | ~uint8 | ~uint16 | ~uint32
}

// The helpers below are called by generated procedure pairs. They panic
// with an *errors.Error, as generated code has no error results.

// OfInt encodes n as an immediate.
func OfInt[T Integer](n T, foreign string) value.Raw {
	var zero T
	wide := int64(n)
	if zero-1 > 0 && wide < 0 {
		panic(errors.Overflow(errors.PhaseEncode, nil, uint64(n), foreign))
	}
	raw, ok := value.OfIntChecked(wide)
	if !ok {
		panic(errors.Overflow(errors.PhaseEncode, nil, wide, foreign))
	}
	return raw
}

// IntOf decodes an immediate into T.
func IntOf[T Integer](raw value.Raw, foreign string) T {
	if !raw.IsImmediate() {
		panic(errors.Shape(nil, foreign, "expected an integer, got a block"))
	}
	n := raw.Int()
	var zero T
	if int64(T(n)) != n || (n < 0 && zero-1 > 0) {
		panic(errors.Overflow(errors.PhaseDecode, nil, n, foreign))
	}
	return T(n)
}

// BoolOf decodes a boolean immediate.
func BoolOf(raw value.Raw, foreign string) bool {
	if raw != value.True && raw != value.False {
		panic(errors.Shape(nil, foreign, "expected a boolean, got %v", raw))
	}
	return raw == value.True
}

// NeedBlock returns raw, panicking when it is an immediate.
func NeedBlock(raw value.Raw, foreign string) value.Raw {
	if err := BlockError(raw, foreign); err != nil {
		panic(err)
	}
	return raw
}

// CheckBlock panics unless raw is a block with the given tag and size. A
// negative size accepts any size.
func CheckBlock(r Reader, raw value.Raw, tag value.Tag, size int, foreign string) {
	if err := ShapeError(r, raw, tag, size, foreign); err != nil {
		panic(err)
	}
}

// CheckUnit panics unless raw is unit.
func CheckUnit(raw value.Raw, foreign string) {
	if raw != value.Unit {
		panic(errors.Shape(nil, foreign, "expected unit, got %v", raw))
	}
}

// BlockError reports an immediate where a block is expected.
func BlockError(raw value.Raw, foreign string) error {
	if raw.IsBlock() {
		return nil
	}
	return errors.Shape(nil, foreign, "expected a block, got immediate %d", raw.Int())
}

// ShapeError reports a value that is not a block with the given tag and
// size.
func ShapeError(r Reader, raw value.Raw, tag value.Tag, size int, foreign string) error {
	if err := BlockError(raw, foreign); err != nil {
		return err
	}
	hd := r.Header(raw)
	if hd.Tag() != tag || (size >= 0 && hd.Size() != size) {
		return errors.Shape(nil, foreign, "expected a block with tag %d and %d fields, got tag %d and %d fields",
			tag, size, hd.Tag(), hd.Size())
	}
	return nil
}

// CycleError reports a cons chain that leads back to one of its cells.
// List walkers advance slow one cell for every two steps of cur, so the
// two meet only inside a cycle.
func CycleError(cur, slow value.Raw, foreign string) error {
	if cur != slow || cur == value.EmptyList {
		return nil
	}
	return errors.Shape(nil, foreign, "cyclic list")
}

// CheckAcyclic panics when CycleError reports a cycle.
func CheckAcyclic(cur, slow value.Raw, foreign string) {
	if err := CycleError(cur, slow, foreign); err != nil {
		panic(err)
	}
}
