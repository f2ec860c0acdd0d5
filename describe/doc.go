// Package describe builds validated type descriptions.
//
// A description names a record or a tagged union, lists its fields or
// variants in declaration order, and carries the overrides the foreign side
// needs: an external type expression, and for open unions an explicit tag
// string per variant. Descriptions are the input of both the runtime
// transcoder and the source generator, which derive the value layout from
// them and nothing else.
//
// # Go Front End
//
// Records come from struct types:
//
//	type Person struct {
//	    Name string
//	    Age  int
//	}
//
//	desc, err := describe.Record[Person]()
//
// Struct tags adjust a field:
//
//	Scores []float64 `caml:"scores,array"`     // float array instead of list
//	Count  int32     `caml:",boxed"`           // boxed int32 instead of int
//	Raw    string    `caml:"raw,external=bytes"`
//	Cache  string    `caml:"-"`                // skipped
//
// Unions are an interface plus one struct per constructor. A struct with no
// fields is a constant constructor:
//
//	type Command interface{ isCommand() }
//	type Start struct{}
//	type SetSpeed struct{ Speed int }
//
//	desc, err := describe.Union[Command]("command",
//	    describe.Open(),
//	    describe.Case[Start](),
//	    describe.Case[SetSpeed](describe.WithTag("set_speed")),
//	)
//
// # WIT Front End
//
// FromWIT converts record, variant and enum type definitions of a resolved
// WIT package. WIT variants and enums become closed unions.
//
// # Validation
//
// Every constructor validates its result and returns all problems at once,
// combined with multierr. Each error carries the Location of the offending
// declaration.
package describe
