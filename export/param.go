package export

import (
	"math"
	"reflect"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/root"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/transcoder"
	"github.com/wippyai/camlbridge/value"
)

// class is how one parameter or result crosses the boundary.
type class uint8

const (
	classInt class = iota
	classInt64
	classFloat
	classBool
	classRaw
	classRoot
	classValue
	classUnit
)

var (
	rawType    = reflect.TypeFor[value.Raw]()
	rootType   = reflect.TypeFor[*root.Root]()
	handleType = reflect.TypeFor[*runtime.Handle]()
	errorType  = reflect.TypeFor[error]()
)

type param struct {
	goType reflect.Type
	ct     *transcoder.CompiledType
	class  class
}

func classify(c *transcoder.Compiler, rt reflect.Type) (param, error) {
	p := param{goType: rt}
	switch {
	case rt == rawType:
		p.class = classRaw
		return p, nil
	case rt == rootType:
		p.class = classRoot
		return p, nil
	}
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		p.class = classInt
	case reflect.Int64, reflect.Uint64:
		p.class = classInt64
	case reflect.Float32, reflect.Float64:
		p.class = classFloat
	case reflect.Bool:
		p.class = classBool
	default:
		ct, err := c.Compile(rt)
		if err != nil {
			return p, err
		}
		p.class = classValue
		p.ct = ct
	}
	return p, nil
}

// scalar reports whether the class travels unboxed in the native
// convention. Booleans stay tagged.
func (p param) scalar() bool {
	switch p.class {
	case classInt, classInt64, classFloat:
		return true
	}
	return false
}

// foreign renders the parameter's foreign type, with the attributes the
// native convention needs.
func (p param) foreign() string {
	switch p.class {
	case classInt:
		return "(int [@untagged])"
	case classInt64:
		return "(int64 [@unboxed])"
	case classFloat:
		return "(float [@unboxed])"
	case classBool:
		return "bool"
	case classRaw, classRoot:
		return "Obj.t"
	case classUnit:
		return "unit"
	default:
		return p.ct.Foreign()
	}
}

// fromWord converts a native argument word to a Go argument.
func (p param) fromWord(h *runtime.Handle, w uint64) reflect.Value {
	switch p.class {
	case classInt, classInt64:
		rv := reflect.New(p.goType).Elem()
		n := int64(w)
		if isUnsigned(p.goType.Kind()) {
			if p.class == classInt && (n < 0 || rv.OverflowUint(uint64(n))) {
				panic(errors.Overflow(errors.PhaseExport, nil, n, p.goType.String()))
			}
			rv.SetUint(w)
			return rv
		}
		if rv.OverflowInt(n) {
			panic(errors.Overflow(errors.PhaseExport, nil, n, p.goType.String()))
		}
		rv.SetInt(n)
		return rv
	case classFloat:
		rv := reflect.New(p.goType).Elem()
		rv.SetFloat(math.Float64frombits(w))
		return rv
	case classBool:
		return reflect.ValueOf(value.Raw(w).Bool()).Convert(p.goType)
	case classRaw:
		return reflect.ValueOf(value.Raw(w))
	case classRoot:
		return reflect.ValueOf(h.Root(value.Raw(w)))
	default:
		rv := reflect.New(p.goType).Elem()
		if err := p.ct.DecodeInto(h, value.Raw(w), rv); err != nil {
			panic(err)
		}
		return rv
	}
}

// toWord converts a Go result to a native result word.
func (p param) toWord(h *runtime.Handle, rv reflect.Value) (uint64, error) {
	switch p.class {
	case classInt, classInt64:
		if isUnsigned(rv.Kind()) {
			return rv.Uint(), nil
		}
		return uint64(rv.Int()), nil
	case classFloat:
		return math.Float64bits(rv.Float()), nil
	case classBool:
		return uint64(value.OfBool(rv.Bool())), nil
	case classRaw:
		return rv.Uint(), nil
	case classUnit:
		return uint64(value.Unit), nil
	default:
		raw, err := p.ct.EncodeValue(h, rv)
		return uint64(raw), err
	}
}

// unbox converts a generic argument to the native word.
func (p param) unbox(h *runtime.Handle, v value.Raw) uint64 {
	switch p.class {
	case classInt:
		return uint64(v.Int())
	case classInt64:
		return uint64(h.Int64Of(v))
	case classFloat:
		return math.Float64bits(h.DoubleOf(v))
	default:
		return uint64(v)
	}
}

// box converts a native result word to a generic result.
func (p param) box(h *runtime.Handle, w uint64) value.Raw {
	switch p.class {
	case classInt:
		return value.OfInt(int64(w))
	case classInt64:
		return h.AllocInt64(int64(w))
	case classFloat:
		return h.AllocDouble(math.Float64frombits(w))
	default:
		return value.Raw(w)
	}
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
