package describe

import (
	"go.uber.org/multierr"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Validate checks a description and returns every problem found.
func Validate(t *Type) error {
	var err error
	add := func(loc, detail string, args ...any) {
		err = multierr.Append(err, errors.InvalidDescription(loc, detail, args...))
	}

	if t.Ident == "" {
		add(t.Location, "type has no identifier")
	}

	switch t.Kind {
	case KindRecord:
		if t.Open {
			add(t.Location, "%s: open flag is only legal on unions", t.Ident)
		}
		if len(t.Variants) > 0 {
			add(t.Location, "%s: record has constructors", t.Ident)
		}
		checkFields(t.Ident, t.Fields, add)
	case KindUnion:
		if len(t.Fields) > 0 {
			add(t.Location, "%s: union has record fields", t.Ident)
		}
		if len(t.Variants) == 0 {
			add(t.Location, "%s: union has no variants", t.Ident)
		}
		checkVariants(t, add)
	default:
		add(t.Location, "%s: unknown kind %d", t.Ident, t.Kind)
	}
	return err
}

func checkFields(owner string, fields []Field, add func(loc, detail string, args ...any)) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Ident == "" {
			add(f.Location, "%s: field has no identifier", owner)
			continue
		}
		if seen[f.Ident] {
			add(f.Location, "%s: duplicate field %q", owner, f.Ident)
		}
		seen[f.Ident] = true
		if f.Type.Kind == RefNamed && f.Type.Name == "" {
			add(f.Location, "%s.%s: reference to unnamed type", owner, f.Ident)
		}
	}
}

func checkVariants(t *Type, add func(loc, detail string, args ...any)) {
	names := make(map[string]bool, len(t.Variants))
	hashes := make(map[value.Raw]string, len(t.Variants))
	blocks := 0

	for i := range t.Variants {
		v := &t.Variants[i]
		if v.Ident == "" {
			add(v.Location, "%s: constructor has no identifier", t.Ident)
			continue
		}
		if names[v.Ident] {
			add(v.Location, "%s: duplicate constructor %s", t.Ident, v.Ident)
		}
		names[v.Ident] = true
		checkFields(t.Ident+"."+v.Ident, v.Fields, add)

		if !t.Open {
			if v.Tag != "" {
				add(v.Location, "%s.%s: tag override on a closed union constructor", t.Ident, v.Ident)
			}
			if !v.IsConstant() {
				blocks++
			}
			continue
		}

		h := value.PolyTag(v.HashName())
		if other, ok := hashes[h]; ok {
			add(v.Location, "%s: tag of %s collides with %s", t.Ident, v.HashName(), other)
		}
		hashes[h] = v.HashName()
	}

	if blocks > value.MaxConstructorTag+1 {
		add(t.Location, "%s: %d constructors with arguments, at most %d allowed",
			t.Ident, blocks, value.MaxConstructorTag+1)
	}
}
