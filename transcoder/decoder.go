package transcoder

import (
	"reflect"
	"strconv"

	"github.com/wippyai/camlbridge"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Decode converts a foreign value to a new Go value of the compiled type.
// Decode does not allocate on the foreign heap.
func (ct *CompiledType) Decode(r camlbridge.Reader, raw value.Raw) (any, error) {
	dst := reflect.New(ct.GoType).Elem()
	if err := ct.DecodeInto(r, raw, dst); err != nil {
		return nil, err
	}
	return dst.Interface(), nil
}

// DecodeInto converts a foreign value into the settable dst. Shape
// violations reported by r are returned as errors and leave dst unchanged.
func (ct *CompiledType) DecodeInto(r camlbridge.Reader, raw value.Raw, dst reflect.Value) (err error) {
	defer func() {
		if p := recover(); p != nil {
			e, ok := p.(*errors.Error)
			if !ok {
				panic(p)
			}
			err = e
		}
	}()
	tmp := reflect.New(dst.Type()).Elem()
	if err := ct.decode(r, raw, tmp); err != nil {
		return err
	}
	dst.Set(tmp)
	return nil
}

func (ct *CompiledType) decode(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	switch ct.Kind {
	case KindInt:
		if !raw.IsImmediate() {
			return ct.shape("expected an integer, got a block")
		}
		return setInt(dst, raw.Int())
	case KindBool:
		if raw != value.True && raw != value.False {
			return ct.shape("expected a boolean, got %v", raw)
		}
		dst.SetBool(raw.Bool())
	case KindInt64:
		if err := ct.needBlock(raw); err != nil {
			return err
		}
		n := r.Int64Of(raw)
		if isUnsigned(dst.Kind()) {
			dst.SetUint(uint64(n))
			return nil
		}
		dst.SetInt(n)
	case KindInt32:
		if err := ct.needBlock(raw); err != nil {
			return err
		}
		dst.SetInt(int64(r.Int32Of(raw)))
	case KindFloat:
		if err := ct.needBlock(raw); err != nil {
			return err
		}
		dst.SetFloat(r.DoubleOf(raw))
	case KindString:
		if err := ct.needBlock(raw); err != nil {
			return err
		}
		dst.SetString(r.StringOf(raw))
	case KindBytes:
		if err := ct.needBlock(raw); err != nil {
			return err
		}
		dst.SetBytes(r.BytesOf(raw))
	case KindRaw:
		dst.SetUint(uint64(raw))
	case KindList:
		return ct.decodeList(r, raw, dst)
	case KindArray:
		return ct.decodeArray(r, raw, dst)
	case KindDoubleArray:
		return ct.decodeDoubleArray(r, raw, dst)
	case KindOption:
		return ct.decodeOption(r, raw, dst)
	case KindRecord:
		return ct.decodeRecord(r, raw, dst)
	case KindUnion:
		return ct.decodeUnion(r, raw, dst)
	default:
		return errors.Unsupported(errors.PhaseDecode, "kind "+ct.Kind.String())
	}
	return nil
}

func setInt(dst reflect.Value, n int64) error {
	if isUnsigned(dst.Kind()) {
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return errors.Overflow(errors.PhaseDecode, nil, n, dst.Type().String())
		}
		dst.SetUint(uint64(n))
		return nil
	}
	if dst.OverflowInt(n) {
		return errors.Overflow(errors.PhaseDecode, nil, n, dst.Type().String())
	}
	dst.SetInt(n)
	return nil
}

func (ct *CompiledType) shape(detail string, args ...any) error {
	return errors.Shape(nil, ct.foreign, detail, args...)
}

func (ct *CompiledType) needBlock(raw value.Raw) error {
	return camlbridge.BlockError(raw, ct.foreign)
}

func (ct *CompiledType) block(r camlbridge.Reader, raw value.Raw, tag value.Tag, size int) error {
	return camlbridge.ShapeError(r, raw, tag, size, ct.foreign)
}

func (ct *CompiledType) decodeList(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	var elems []value.Raw
	slow := raw
	for cur, i := raw, 0; cur != value.EmptyList; i++ {
		if err := ct.block(r, cur, 0, 2); err != nil {
			return err
		}
		elems = append(elems, r.Field(cur, 0))
		cur = r.Field(cur, 1)
		if i%2 == 1 {
			slow = r.Field(slow, 1)
		}
		if err := camlbridge.CycleError(cur, slow, ct.foreign); err != nil {
			return err
		}
	}
	if len(elems) == 0 {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	s := reflect.MakeSlice(dst.Type(), len(elems), len(elems))
	for i, x := range elems {
		if err := ct.Elem.decode(r, x, s.Index(i)); err != nil {
			return inPath(err, "["+strconv.Itoa(i)+"]")
		}
	}
	dst.Set(s)
	return nil
}

func (ct *CompiledType) arrayTarget(dst reflect.Value, n int) (reflect.Value, error) {
	if dst.Kind() == reflect.Array {
		if n != dst.Len() {
			return reflect.Value{}, ct.shape("expected %d elements, got %d", dst.Len(), n)
		}
		return dst, nil
	}
	if n == 0 {
		dst.Set(reflect.Zero(dst.Type()))
		return dst, nil
	}
	s := reflect.MakeSlice(dst.Type(), n, n)
	dst.Set(s)
	return s, nil
}

func (ct *CompiledType) decodeArray(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	if err := ct.block(r, raw, 0, -1); err != nil {
		return err
	}
	n := r.Header(raw).Size()
	out, err := ct.arrayTarget(dst, n)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := ct.Elem.decode(r, r.Field(raw, i), out.Index(i)); err != nil {
			return inPath(err, "["+strconv.Itoa(i)+"]")
		}
	}
	return nil
}

func (ct *CompiledType) decodeDoubleArray(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	if err := ct.needBlock(raw); err != nil {
		return err
	}
	fs := r.DoubleArrayOf(raw)
	out, err := ct.arrayTarget(dst, len(fs))
	if err != nil {
		return err
	}
	for i, f := range fs {
		out.Index(i).SetFloat(f)
	}
	return nil
}

func (ct *CompiledType) decodeOption(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	if raw == value.None {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if err := ct.block(r, raw, 0, 1); err != nil {
		return err
	}
	p := reflect.New(dst.Type().Elem())
	if err := ct.Elem.decode(r, r.Field(raw, 0), p.Elem()); err != nil {
		return inPath(err, "[some]")
	}
	dst.Set(p)
	return nil
}

func (ct *CompiledType) decodeRecord(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	if len(ct.Fields) == 0 {
		if raw != value.Unit {
			return ct.shape("expected unit, got %v", raw)
		}
		return nil
	}
	if err := ct.block(r, raw, 0, len(ct.Fields)); err != nil {
		return err
	}
	return decodeFields(r, raw, ct.Fields, dst)
}

func decodeFields(r camlbridge.Reader, blk value.Raw, fields []CompiledField, dst reflect.Value) error {
	for i, f := range fields {
		if err := f.Type.decode(r, r.Field(blk, i), dst.Field(f.Index)); err != nil {
			return inPath(err, f.Name)
		}
	}
	return nil
}

func (ct *CompiledType) decodeUnion(r camlbridge.Reader, raw value.Raw, dst reflect.Value) error {
	open := ct.Desc.Open
	if raw.IsImmediate() {
		i, ok := ct.constants[raw]
		if !ok {
			if open {
				return ct.shape("%s: expected a polymorphic variant", ct.Desc.Ident)
			}
			return errors.InvalidDiscriminant(errors.PhaseDecode, nil, ct.foreign, raw.Int(), len(ct.constants)-1)
		}
		return ct.setCase(dst, i, reflect.New(ct.Cases[i].GoType).Elem())
	}

	if open {
		hd := r.Header(raw)
		if hd.Tag() != value.TagPolymorphic || hd.Size() != 2 {
			return ct.shape("%s: expected a polymorphic variant", ct.Desc.Ident)
		}
		i, ok := ct.payloads[r.Field(raw, 0)]
		if !ok {
			return ct.shape("%s: expected a polymorphic variant", ct.Desc.Ident)
		}
		c := &ct.Cases[i]
		cv := reflect.New(c.GoType).Elem()
		payload := r.Field(raw, 1)
		if len(c.Fields) == 1 {
			f := c.Fields[0]
			if err := f.Type.decode(r, payload, cv.Field(f.Index)); err != nil {
				return inPath(inPath(err, f.Name), c.Name)
			}
			return ct.setCase(dst, i, cv)
		}
		if err := ct.block(r, payload, 0, len(c.Fields)); err != nil {
			return inPath(err, c.Name)
		}
		if err := decodeFields(r, payload, c.Fields, cv); err != nil {
			return inPath(err, c.Name)
		}
		return ct.setCase(dst, i, cv)
	}

	tag := r.Header(raw).Tag()
	i, ok := ct.blocks[tag]
	if !ok {
		return errors.InvalidDiscriminant(errors.PhaseDecode, nil, ct.foreign, int64(tag), len(ct.blocks)-1)
	}
	c := &ct.Cases[i]
	if err := ct.block(r, raw, tag, len(c.Fields)); err != nil {
		return inPath(err, c.Name)
	}
	cv := reflect.New(c.GoType).Elem()
	if err := decodeFields(r, raw, c.Fields, cv); err != nil {
		return inPath(err, c.Name)
	}
	return ct.setCase(dst, i, cv)
}

func (ct *CompiledType) setCase(dst reflect.Value, i int, cv reflect.Value) error {
	if ct.Cases[i].Pointer {
		p := reflect.New(ct.Cases[i].GoType)
		p.Elem().Set(cv)
		cv = p
	}
	dst.Set(cv)
	return nil
}
