package describe

import (
	"strconv"

	"go.bytecodealliance.org/wit"
	"go.uber.org/multierr"

	"github.com/wippyai/camlbridge/errors"
)

// FromWIT describes a named WIT record, variant or enum. Variants and enums
// become closed unions.
func FromWIT(td *wit.TypeDef) (*Type, error) {
	if td == nil || td.Name == nil {
		return nil, errors.InvalidDescription("wit", "type definition has no name")
	}
	name := *td.Name
	loc := "wit:" + name
	t := &Type{
		Ident:    SnakeCase(name),
		GoName:   CamelCase(name),
		Location: loc,
	}

	var err error
	switch kind := td.Kind.(type) {
	case *wit.Record:
		t.Kind = KindRecord
		for _, wf := range kind.Fields {
			f, ferr := witField(wf.Name, wf.Type, loc+"."+wf.Name)
			if ferr != nil {
				err = multierr.Append(err, ferr)
				continue
			}
			t.Fields = append(t.Fields, f)
		}
	case *wit.Variant:
		t.Kind = KindUnion
		for _, c := range kind.Cases {
			v, verr := witCase(c, t.GoName, loc+"."+c.Name)
			if verr != nil {
				err = multierr.Append(err, verr)
				continue
			}
			t.Variants = append(t.Variants, v)
		}
	case *wit.Enum:
		t.Kind = KindUnion
		for _, c := range kind.Cases {
			t.Variants = append(t.Variants, Variant{
				Ident:    CamelCase(c.Name),
				GoName:   t.GoName + CamelCase(c.Name),
				Location: loc + "." + c.Name,
			})
		}
	default:
		return nil, errors.InvalidDescription(loc, "%s: only record, variant and enum definitions can be described, got %T", name, td.Kind)
	}

	err = multierr.Append(err, Validate(t))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FromResolve describes every named record, variant and enum in a resolved
// WIT document, in document order.
func FromResolve(res *wit.Resolve) ([]*Type, error) {
	var types []*Type
	var err error
	for _, td := range res.TypeDefs {
		if td.Name == nil || !describable(td) {
			continue
		}
		t, terr := FromWIT(td)
		if terr != nil {
			err = multierr.Append(err, terr)
			continue
		}
		types = append(types, t)
	}
	return types, err
}

func describable(td *wit.TypeDef) bool {
	switch td.Kind.(type) {
	case *wit.Record, *wit.Variant, *wit.Enum:
		return true
	}
	return false
}

// witCase describes one case. The Go name is qualified with the union's so
// that cases of different unions do not collide in generated code.
func witCase(c wit.Case, union, loc string) (Variant, error) {
	v := Variant{
		Ident:    CamelCase(c.Name),
		GoName:   union + CamelCase(c.Name),
		Location: loc,
	}
	if c.Type == nil {
		return v, nil
	}
	if td, ok := c.Type.(*wit.TypeDef); ok && td.Name == nil {
		if tuple, ok := td.Kind.(*wit.Tuple); ok {
			for i, elem := range tuple.Types {
				f, err := witField("f"+strconv.Itoa(i), elem, loc)
				if err != nil {
					return Variant{}, err
				}
				v.Fields = append(v.Fields, f)
			}
			return v, nil
		}
	}
	f, err := witField("value", c.Type, loc)
	if err != nil {
		return Variant{}, err
	}
	v.Fields = []Field{f}
	return v, nil
}

func witField(name string, t wit.Type, loc string) (Field, error) {
	ref, err := RefOfWIT(t)
	if err != nil {
		return Field{}, errors.InvalidDescription(loc, "%v", err)
	}
	return Field{
		Type:     ref,
		Ident:    SnakeCase(name),
		GoName:   CamelCase(name),
		Location: loc,
		Index:    -1,
	}, nil
}

// RefOfWIT maps a WIT type to a field type expression. Small integers map
// to int, 64-bit integers to boxed int64 and list<u8> to bytes.
func RefOfWIT(t wit.Type) (Ref, error) {
	r := Ref{Len: -1}
	switch t := t.(type) {
	case wit.Bool:
		r.Kind = RefBool
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		r.Kind = RefInt
	case wit.U64, wit.S64:
		r.Kind = RefInt64
	case wit.F32, wit.F64:
		r.Kind = RefFloat
	case wit.String:
		r.Kind = RefString
	case *wit.TypeDef:
		if t.Name != nil && describable(t) {
			r.Kind = RefNamed
			r.Name = SnakeCase(*t.Name)
			return r, nil
		}
		switch kind := t.Kind.(type) {
		case *wit.List:
			if _, ok := kind.Type.(wit.U8); ok {
				r.Kind = RefBytes
				return r, nil
			}
			elem, err := RefOfWIT(kind.Type)
			if err != nil {
				return Ref{}, err
			}
			r.Kind = RefList
			r.Elem = &elem
		case *wit.Option:
			elem, err := RefOfWIT(kind.Type)
			if err != nil {
				return Ref{}, err
			}
			r.Kind = RefOption
			r.Elem = &elem
		case wit.Type:
			return RefOfWIT(kind)
		default:
			return Ref{}, errors.Unsupported(errors.PhaseDescribe, "WIT type kind "+typeKindName(kind))
		}
	default:
		return Ref{}, errors.Unsupported(errors.PhaseDescribe, "WIT type "+typeKindName(t))
	}
	return r, nil
}

func typeKindName(v any) string {
	switch v.(type) {
	case *wit.Tuple:
		return "tuple"
	case *wit.Result:
		return "result"
	case *wit.Flags:
		return "flags"
	case *wit.Own, *wit.Borrow:
		return "resource handle"
	}
	return "unknown"
}
