package describe

import (
	"reflect"

	"github.com/wippyai/camlbridge/value"
)

// Kind selects between record and union descriptions.
type Kind uint8

const (
	KindRecord Kind = iota
	KindUnion
)

func (k Kind) String() string {
	if k == KindUnion {
		return "union"
	}
	return "record"
}

// Type describes a record or a tagged union.
type Type struct {
	// Go is the described Go type; an interface for unions. Nil for
	// descriptions that came from WIT.
	Go reflect.Type
	// Ident is the foreign type name.
	Ident string
	// GoName is the Go type name.
	GoName string
	// External overrides the foreign type expression used to refer to the
	// type.
	External string
	Location string
	Fields   []Field
	Variants []Variant
	Kind     Kind
	// Open selects name-hash tags instead of sequential ones. Unions only.
	Open bool
}

// Field describes one record field or one constructor argument.
type Field struct {
	Type     Ref
	Ident    string
	GoName   string
	External string
	Location string
	// Index is the Go struct field index, or -1.
	Index int
}

// Variant describes one union constructor.
type Variant struct {
	// Go is the struct type of the constructor.
	Go       reflect.Type
	Ident    string
	GoName   string
	External string
	// Tag overrides the name hashed for open unions.
	Tag      string
	Location string
	Fields   []Field
	// Pointer is set when *Go, not Go, implements the union interface.
	Pointer bool
}

// IsConstant reports whether the variant carries no fields.
func (v *Variant) IsConstant() bool { return len(v.Fields) == 0 }

// HashName returns the string hashed to form the open-union tag.
func (v *Variant) HashName() string {
	if v.Tag != "" {
		return v.Tag
	}
	return v.Ident
}

// PolyTag returns the open-union tag of the variant.
func (v *Variant) PolyTag() value.Raw {
	return value.PolyTag(v.HashName())
}

// Foreign returns the foreign type expression that refers to t.
func (t *Type) Foreign() string {
	if t.External != "" {
		return t.External
	}
	return t.Ident
}

// Variant returns the variant with the given identifier.
func (t *Type) Variant(ident string) (*Variant, bool) {
	for i := range t.Variants {
		if t.Variants[i].Ident == ident {
			return &t.Variants[i], true
		}
	}
	return nil, false
}

// RefKind is the shape of a field type.
type RefKind uint8

const (
	RefInt RefKind = iota
	RefInt64
	RefInt32
	RefFloat
	RefBool
	RefString
	RefBytes
	RefList
	RefArray
	RefOption
	RefNamed
	RefRaw
)

var refNames = [...]string{
	RefInt:    "int",
	RefInt64:  "int64",
	RefInt32:  "int32",
	RefFloat:  "float",
	RefBool:   "bool",
	RefString: "string",
	RefBytes:  "bytes",
	RefList:   "list",
	RefArray:  "array",
	RefOption: "option",
	RefNamed:  "named",
	RefRaw:    "Obj.t",
}

func (k RefKind) String() string {
	if int(k) < len(refNames) {
		return refNames[k]
	}
	return "unknown"
}

// Ref is a field type expression.
type Ref struct {
	// Go is the Go type at this level. Nil for WIT descriptions.
	Go   reflect.Type
	Elem *Ref
	// Name is the ident of the referenced description for RefNamed.
	Name string
	// Len is the fixed length of a Go array, or -1.
	Len  int
	Kind RefKind
}

// IsImmediate reports whether every value of the type encodes as an
// immediate.
func (r Ref) IsImmediate() bool {
	switch r.Kind {
	case RefInt, RefBool:
		return true
	}
	return false
}

// IsDoubleArray reports whether the type uses the unboxed float array
// layout.
func (r Ref) IsDoubleArray() bool {
	return r.Kind == RefArray && r.Elem != nil && r.Elem.Kind == RefFloat
}

// Foreign renders the foreign type expression of r.
func (r Ref) Foreign() string {
	switch r.Kind {
	case RefList, RefArray, RefOption:
		return r.Elem.Foreign() + " " + r.Kind.String()
	case RefNamed:
		return r.Name
	default:
		return r.Kind.String()
	}
}

// Foreign returns the field's foreign type expression.
func (f *Field) Foreign() string {
	if f.External != "" {
		return f.External
	}
	return f.Type.Foreign()
}
