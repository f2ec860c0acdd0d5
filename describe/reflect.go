package describe

import (
	"reflect"
	"strings"

	"go.uber.org/multierr"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

var rawType = reflect.TypeFor[value.Raw]()

type builder struct {
	typ *Type
	err error
}

// Option adjusts a description built by Record or Union.
type Option func(*builder)

// VariantOption adjusts one union constructor.
type VariantOption func(*Variant)

// Open selects name-hash tags for a union.
func Open() Option {
	return func(b *builder) { b.typ.Open = true }
}

// External overrides the foreign type expression of the described type.
func External(expr string) Option {
	return func(b *builder) { b.typ.External = expr }
}

// Ident overrides the foreign type name.
func Ident(ident string) Option {
	return func(b *builder) { b.typ.Ident = ident }
}

// At sets the location reported in validation errors.
func At(location string) Option {
	return func(b *builder) { b.typ.Location = location }
}

// Case adds the constructor V to a union. Constructors keep the order in
// which they are added.
func Case[V any](opts ...VariantOption) Option {
	rt := reflect.TypeFor[V]()
	return func(b *builder) {
		v, err := variantOf(rt, b.typ.Location)
		if err != nil {
			b.err = multierr.Append(b.err, err)
			return
		}
		for _, opt := range opts {
			opt(&v)
		}
		b.typ.Variants = append(b.typ.Variants, v)
	}
}

// Named overrides the constructor name.
func Named(ident string) VariantOption {
	return func(v *Variant) { v.Ident = ident }
}

// WithTag sets the string hashed for the constructor's open-union tag.
func WithTag(tag string) VariantOption {
	return func(v *Variant) { v.Tag = tag }
}

// WithExternal overrides the foreign type expression of the constructor's
// argument.
func WithExternal(expr string) VariantOption {
	return func(v *Variant) { v.External = expr }
}

// Record describes the struct type T.
func Record[T any](opts ...Option) (*Type, error) {
	return FromStruct(reflect.TypeFor[T](), opts...)
}

// Union describes the interface type I. Constructors are added with Case.
func Union[I any](ident string, opts ...Option) (*Type, error) {
	return FromInterface(reflect.TypeFor[I](), ident, opts...)
}

// FromStruct describes a struct type.
func FromStruct(rt reflect.Type, opts ...Option) (*Type, error) {
	if rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	loc := goLocation(rt)
	if rt.Kind() != reflect.Struct {
		return nil, errors.InvalidDescription(loc, "record type must be a struct, got %s", rt.Kind())
	}

	b := &builder{typ: &Type{
		Go:       rt,
		Ident:    SnakeCase(rt.Name()),
		GoName:   rt.Name(),
		Kind:     KindRecord,
		Location: loc,
	}}
	fields, err := structFields(rt, loc)
	b.typ.Fields = fields
	b.err = multierr.Append(b.err, err)
	for _, opt := range opts {
		opt(b)
	}
	return b.finish()
}

// FromInterface describes an interface type as a union.
func FromInterface(rt reflect.Type, ident string, opts ...Option) (*Type, error) {
	loc := goLocation(rt)
	if rt.Kind() != reflect.Interface {
		return nil, errors.InvalidDescription(loc, "union type must be an interface, got %s", rt.Kind())
	}
	if ident == "" {
		ident = SnakeCase(rt.Name())
	}

	b := &builder{typ: &Type{
		Go:       rt,
		Ident:    ident,
		GoName:   rt.Name(),
		Kind:     KindUnion,
		Location: loc,
	}}
	for _, opt := range opts {
		opt(b)
	}
	for i := range b.typ.Variants {
		v := &b.typ.Variants[i]
		switch {
		case v.Go.Implements(rt):
		case reflect.PointerTo(v.Go).Implements(rt):
			v.Pointer = true
		default:
			b.err = multierr.Append(b.err, errors.InvalidDescription(v.Location,
				"%s does not implement %s", v.Go, rt))
		}
	}
	return b.finish()
}

func (b *builder) finish() (*Type, error) {
	err := multierr.Append(b.err, Validate(b.typ))
	if err != nil {
		return nil, err
	}
	return b.typ, nil
}

func variantOf(rt reflect.Type, parent string) (Variant, error) {
	if rt.Kind() != reflect.Struct {
		return Variant{}, errors.InvalidDescription(parent, "constructor type must be a struct, got %s", rt)
	}
	loc := goLocation(rt)
	fields, err := structFields(rt, loc)
	return Variant{
		Go:       rt,
		Ident:    rt.Name(),
		GoName:   rt.Name(),
		Location: loc,
		Fields:   fields,
	}, err
}

func goLocation(rt reflect.Type) string {
	if rt.PkgPath() == "" {
		return rt.String()
	}
	return rt.PkgPath() + "." + rt.Name()
}

type fieldTag struct {
	ident    string
	external string
	array    bool
	boxed    bool
	skip     bool
}

func parseTag(tag string) fieldTag {
	if tag == "-" {
		return fieldTag{skip: true}
	}
	parts := strings.Split(tag, ",")
	ft := fieldTag{ident: parts[0]}
	for _, p := range parts[1:] {
		switch {
		case p == "array":
			ft.array = true
		case p == "boxed":
			ft.boxed = true
		case strings.HasPrefix(p, "external="):
			ft.external = strings.TrimPrefix(p, "external=")
		}
	}
	return ft
}

func structFields(rt reflect.Type, loc string) ([]Field, error) {
	var fields []Field
	var err error
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := parseTag(sf.Tag.Get("caml"))
		if tag.skip {
			continue
		}
		ident := tag.ident
		if ident == "" {
			ident = SnakeCase(sf.Name)
		}
		fieldLoc := loc + "." + sf.Name
		ref, rerr := RefOf(sf.Type, tag.array, tag.boxed)
		if rerr != nil {
			err = multierr.Append(err, errors.InvalidDescription(fieldLoc, "%v", rerr))
			continue
		}
		fields = append(fields, Field{
			Type:     ref,
			Ident:    ident,
			GoName:   sf.Name,
			External: tag.external,
			Location: fieldLoc,
			Index:    i,
		})
	}
	return fields, err
}

// RefOf maps a Go type to a field type expression. array selects the array
// layout for slices; boxed selects the boxed layout for int32.
func RefOf(rt reflect.Type, array, boxed bool) (Ref, error) {
	if boxed && rt.Kind() != reflect.Int32 {
		return Ref{}, errors.Unsupported(errors.PhaseDescribe, "boxed applies to int32 only, got "+rt.String())
	}
	if array && rt.Kind() != reflect.Slice && rt.Kind() != reflect.Array {
		return Ref{}, errors.Unsupported(errors.PhaseDescribe, "array applies to slices only, got "+rt.String())
	}
	r := Ref{Go: rt, Len: -1}
	if rt == rawType {
		r.Kind = RefRaw
		return r, nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		r.Kind = RefBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		r.Kind = RefInt
	case reflect.Int32:
		r.Kind = RefInt
		if boxed {
			r.Kind = RefInt32
		}
	case reflect.Int64, reflect.Uint64:
		r.Kind = RefInt64
	case reflect.Float32, reflect.Float64:
		r.Kind = RefFloat
	case reflect.String:
		r.Kind = RefString
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 && !array {
			r.Kind = RefBytes
			return r, nil
		}
		elem, err := RefOf(rt.Elem(), false, false)
		if err != nil {
			return Ref{}, err
		}
		r.Kind = RefList
		if array {
			r.Kind = RefArray
		}
		r.Elem = &elem
	case reflect.Array:
		elem, err := RefOf(rt.Elem(), false, false)
		if err != nil {
			return Ref{}, err
		}
		r.Kind = RefArray
		r.Elem = &elem
		r.Len = rt.Len()
	case reflect.Pointer:
		elem, err := RefOf(rt.Elem(), false, false)
		if err != nil {
			return Ref{}, err
		}
		r.Kind = RefOption
		r.Elem = &elem
	case reflect.Struct, reflect.Interface:
		if rt.Name() == "" {
			return Ref{}, errors.Unsupported(errors.PhaseDescribe, "anonymous "+rt.Kind().String()+" "+rt.String())
		}
		r.Kind = RefNamed
		r.Name = SnakeCase(rt.Name())
	default:
		return Ref{}, errors.Unsupported(errors.PhaseDescribe, "Go type "+rt.String())
	}
	return r, nil
}
