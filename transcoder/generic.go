package transcoder

import (
	"reflect"

	"github.com/wippyai/camlbridge"
	"github.com/wippyai/camlbridge/value"
)

// Encode compiles T if needed and encodes v. For interface types the
// static type T selects the union.
func Encode[T any](c *Compiler, m camlbridge.Mutator, v T) (value.Raw, error) {
	ct, err := c.Compile(reflect.TypeFor[T]())
	if err != nil {
		return 0, err
	}
	return ct.EncodeValue(m, reflect.ValueOf(&v).Elem())
}

// Decode compiles T if needed and decodes raw into a new T. On error the
// zero T is returned.
func Decode[T any](c *Compiler, r camlbridge.Reader, raw value.Raw) (T, error) {
	var out T
	ct, err := c.Compile(reflect.TypeFor[T]())
	if err != nil {
		return out, err
	}
	if err := ct.DecodeInto(r, raw, reflect.ValueOf(&out).Elem()); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
