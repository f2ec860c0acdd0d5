package transcoder

import (
	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/value"
)

// Placement is where one union constructor lives in the value encoding.
type Placement struct {
	Variant string
	// Index is the immediate value or block tag of a closed union
	// constructor.
	Index int
	// Hash is the tag of an open union constructor.
	Hash  value.Raw
	Arity int
	Open  bool
}

// Constant reports whether the constructor encodes as an immediate.
func (p Placement) Constant() bool { return p.Arity == 0 }

// Immediate returns the encoding of a constant constructor.
func (p Placement) Immediate() value.Raw {
	if p.Open {
		return p.Hash
	}
	return value.OfInt(int64(p.Index))
}

// Tag returns the block tag of a constructor with arguments.
func (p Placement) Tag() value.Tag {
	if p.Open {
		return value.TagPolymorphic
	}
	return value.Tag(p.Index)
}

// Layout assigns every constructor of a union its placement. Closed unions
// number constant constructors and constructors with arguments with two
// independent counters in declaration order. Open unions use the hash of
// each constructor's name or tag override.
func Layout(d *describe.Type) []Placement {
	out := make([]Placement, len(d.Variants))
	constants, blocks := 0, 0
	for i := range d.Variants {
		v := &d.Variants[i]
		p := Placement{Variant: v.Ident, Arity: len(v.Fields), Open: d.Open}
		switch {
		case d.Open:
			p.Hash = v.PolyTag()
		case p.Constant():
			p.Index = constants
			constants++
		default:
			p.Index = blocks
			blocks++
		}
		out[i] = p
	}
	return out
}
