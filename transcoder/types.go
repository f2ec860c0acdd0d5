package transcoder

import (
	"reflect"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/value"
)

// Kind is the layout family of a compiled type.
type Kind uint8

const (
	KindInt Kind = iota
	KindInt64
	KindInt32
	KindFloat
	KindBool
	KindString
	KindBytes
	KindList
	KindArray
	KindDoubleArray
	KindOption
	KindRecord
	KindUnion
	KindRaw
)

var kindNames = [...]string{
	KindInt:         "int",
	KindInt64:       "int64",
	KindInt32:       "int32",
	KindFloat:       "float",
	KindBool:        "bool",
	KindString:      "string",
	KindBytes:       "bytes",
	KindList:        "list",
	KindArray:       "array",
	KindDoubleArray: "floatarray",
	KindOption:      "option",
	KindRecord:      "record",
	KindUnion:       "union",
	KindRaw:         "raw",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsImmediate reports whether every value of the kind encodes without
// allocating.
func (k Kind) IsImmediate() bool {
	return k == KindInt || k == KindBool || k == KindRaw
}

// CompiledType is the procedure pair for one Go type under one layout.
type CompiledType struct {
	GoType reflect.Type
	Elem   *CompiledType
	// Desc is set for records and unions.
	Desc   *describe.Type
	Fields []CompiledField
	Cases  []CompiledCase

	// union dispatch, built once at compile time
	byGo       map[reflect.Type]int
	constants  map[value.Raw]int
	blocks     map[value.Tag]int
	payloads   map[value.Raw]int
	foreign    string
	Len        int
	Kind       Kind
	hasPayload bool
}

// CompiledField is one record field or constructor argument.
type CompiledField struct {
	Type  *CompiledType
	Name  string
	Index int
}

// CompiledCase is one union constructor.
type CompiledCase struct {
	GoType    reflect.Type
	Name      string
	Fields    []CompiledField
	Placement Placement
	Pointer   bool
}

// Foreign returns the foreign type expression used in diagnostics.
func (ct *CompiledType) Foreign() string { return ct.foreign }
