package transcoder

import (
	"reflect"
	"strconv"

	"github.com/wippyai/camlbridge"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Encode converts v to a foreign value. The result is not rooted; the
// caller must root it before its next allocation.
func (ct *CompiledType) Encode(m camlbridge.Mutator, v any) (value.Raw, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		if ct.Kind == KindOption {
			return value.None, nil
		}
		return 0, errors.NilPointer(errors.PhaseEncode, nil, ct.GoType.String())
	}
	if rv.Type() != ct.GoType {
		if _, ok := ct.byGo[rv.Type()]; !ok {
			return 0, errors.TypeMismatch(errors.PhaseEncode, nil, rv.Type().String(), ct.foreign)
		}
	}
	return ct.EncodeValue(m, rv)
}

// EncodeValue converts a reflected value of the compiled Go type.
func (ct *CompiledType) EncodeValue(m camlbridge.Mutator, rv reflect.Value) (value.Raw, error) {
	switch ct.Kind {
	case KindInt:
		return encodeInt(rv)
	case KindInt64:
		if isUnsigned(rv.Kind()) {
			return m.AllocInt64(int64(rv.Uint())), nil
		}
		return m.AllocInt64(rv.Int()), nil
	case KindInt32:
		return m.AllocInt32(int32(rv.Int())), nil
	case KindFloat:
		return m.AllocDouble(rv.Float()), nil
	case KindBool:
		return value.OfBool(rv.Bool()), nil
	case KindString:
		return m.AllocString(rv.String()), nil
	case KindBytes:
		return m.AllocBytes(rv.Bytes()), nil
	case KindRaw:
		return value.Raw(rv.Uint()), nil
	case KindList:
		return ct.encodeList(m, rv)
	case KindArray:
		return ct.encodeArray(m, rv)
	case KindDoubleArray:
		fs := make([]float64, rv.Len())
		for i := range fs {
			fs[i] = rv.Index(i).Float()
		}
		return m.AllocDoubleArray(fs), nil
	case KindOption:
		return ct.encodeOption(m, rv)
	case KindRecord:
		return encodeBlock(m, 0, ct.Fields, rv)
	case KindUnion:
		return ct.encodeUnion(m, rv)
	default:
		return 0, errors.Unsupported(errors.PhaseEncode, "kind "+ct.Kind.String())
	}
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func encodeInt(rv reflect.Value) (value.Raw, error) {
	if isUnsigned(rv.Kind()) {
		u := rv.Uint()
		if u > uint64(value.MaxInt) {
			return 0, errors.Overflow(errors.PhaseEncode, nil, u, "int")
		}
		return value.OfInt(int64(u)), nil
	}
	n := rv.Int()
	r, ok := value.OfIntChecked(n)
	if !ok {
		return 0, errors.Overflow(errors.PhaseEncode, nil, n, "int")
	}
	return r, nil
}

// encodeBlock allocates a block for fields and fills it in order. The block
// stays rooted while each field is encoded.
func encodeBlock(m camlbridge.Mutator, tag value.Tag, fields []CompiledField, rv reflect.Value) (value.Raw, error) {
	if len(fields) == 0 {
		return value.Unit, nil
	}
	f := m.Enter(1)
	defer f.Leave()

	blk := f.Push(m.Alloc(len(fields), tag))
	for i, fld := range fields {
		x, err := fld.Type.EncodeValue(m, rv.Field(fld.Index))
		if err != nil {
			return 0, inPath(err, fld.Name)
		}
		m.SetField(f.Get(blk), i, x)
	}
	return f.Get(blk), nil
}

func (ct *CompiledType) encodeList(m camlbridge.Mutator, rv reflect.Value) (value.Raw, error) {
	f := m.Enter(2)
	defer f.Leave()

	list := f.Push(value.EmptyList)
	head := f.Push(value.Unit)
	for i := rv.Len() - 1; i >= 0; i-- {
		x, err := ct.Elem.EncodeValue(m, rv.Index(i))
		if err != nil {
			return 0, inPath(err, "["+strconv.Itoa(i)+"]")
		}
		f.Set(head, x)
		cell := m.Alloc(2, 0)
		m.SetField(cell, 0, f.Get(head))
		m.SetField(cell, 1, f.Get(list))
		f.Set(list, cell)
	}
	return f.Get(list), nil
}

func (ct *CompiledType) encodeArray(m camlbridge.Mutator, rv reflect.Value) (value.Raw, error) {
	n := rv.Len()
	if n == 0 {
		return m.Alloc(0, 0), nil
	}
	f := m.Enter(1)
	defer f.Leave()

	blk := f.Push(m.Alloc(n, 0))
	for i := 0; i < n; i++ {
		x, err := ct.Elem.EncodeValue(m, rv.Index(i))
		if err != nil {
			return 0, inPath(err, "["+strconv.Itoa(i)+"]")
		}
		m.SetField(f.Get(blk), i, x)
	}
	return f.Get(blk), nil
}

func (ct *CompiledType) encodeOption(m camlbridge.Mutator, rv reflect.Value) (value.Raw, error) {
	if rv.IsNil() {
		return value.None, nil
	}
	x, err := ct.Elem.EncodeValue(m, rv.Elem())
	if err != nil {
		return 0, inPath(err, "[some]")
	}
	f := m.Enter(1)
	defer f.Leave()

	s := f.Push(x)
	blk := m.Alloc(1, 0)
	m.SetField(blk, 0, f.Get(s))
	return blk, nil
}

func (ct *CompiledType) encodeUnion(m camlbridge.Mutator, rv reflect.Value) (value.Raw, error) {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return 0, errors.NilPointer(errors.PhaseEncode, nil, ct.GoType.String())
		}
		rv = rv.Elem()
	}
	i, ok := ct.byGo[rv.Type()]
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, nil, rv.Type().String(), ct.foreign)
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, errors.NilPointer(errors.PhaseEncode, nil, rv.Type().String())
		}
		rv = rv.Elem()
	}

	c := &ct.Cases[i]
	p := c.Placement
	switch {
	case p.Constant():
		return p.Immediate(), nil
	case !p.Open:
		v, err := encodeBlock(m, p.Tag(), c.Fields, rv)
		return v, inPath(err, c.Name)
	}

	var payload value.Raw
	var err error
	if len(c.Fields) == 1 {
		payload, err = c.Fields[0].Type.EncodeValue(m, rv.Field(c.Fields[0].Index))
	} else {
		payload, err = encodeBlock(m, 0, c.Fields, rv)
	}
	if err != nil {
		return 0, inPath(err, c.Name)
	}

	f := m.Enter(1)
	defer f.Leave()

	s := f.Push(payload)
	blk := m.Alloc(2, value.TagPolymorphic)
	m.SetField(blk, 0, p.Hash)
	m.SetField(blk, 1, f.Get(s))
	return blk, nil
}

func inPath(err error, name string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = append([]string{name}, e.Path...)
	}
	return err
}
