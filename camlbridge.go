package camlbridge

import (
	"github.com/wippyai/camlbridge/root"
	"github.com/wippyai/camlbridge/value"
)

// Reader inspects foreign values without allocating. Methods panic with an
// *errors.Error when the value does not have the expected shape.
type Reader interface {
	Header(v value.Raw) value.Header
	Field(v value.Raw, i int) value.Raw
	StringOf(v value.Raw) string
	BytesOf(v value.Raw) []byte
	DoubleOf(v value.Raw) float64
	DoubleArrayOf(v value.Raw) []float64
	Int64Of(v value.Raw) int64
	Int32Of(v value.Raw) int32
}

// Mutator allocates and writes foreign values. Every allocating method may
// move every block; values still needed afterwards must be held in a frame
// opened with Enter or in a handle root.
type Mutator interface {
	Reader

	Alloc(size int, tag value.Tag) value.Raw
	AllocString(s string) value.Raw
	AllocBytes(b []byte) value.Raw
	AllocDouble(f float64) value.Raw
	AllocDoubleArray(fs []float64) value.Raw
	AllocInt64(n int64) value.Raw
	AllocInt32(n int32) value.Raw
	SetField(v value.Raw, i int, x value.Raw)

	// Enter opens a frame of n root slots. The caller must Leave it.
	Enter(n int) *root.Frame
}
