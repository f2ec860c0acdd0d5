package codegen

import (
	"strings"

	"github.com/wippyai/camlbridge/describe"
)

// Signatures renders the foreign declarations of types as one recursive
// group. Types with an External expression already exist on the foreign
// side and are skipped.
func Signatures(types ...*describe.Type) string {
	var b strings.Builder
	first := true
	for _, t := range types {
		if t.External != "" {
			continue
		}
		if first {
			b.WriteString("type ")
			first = false
		} else {
			b.WriteString("\nand ")
		}
		b.WriteString(t.Ident)
		b.WriteString(" = ")
		b.WriteString(definition(t))
	}
	if !first {
		b.WriteByte('\n')
	}
	return b.String()
}

func definition(t *describe.Type) string {
	if t.Kind == describe.KindRecord {
		if len(t.Fields) == 0 {
			return "unit"
		}
		parts := make([]string, len(t.Fields))
		for i := range t.Fields {
			parts[i] = t.Fields[i].Ident + " : " + t.Fields[i].Foreign()
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	}

	parts := make([]string, len(t.Variants))
	for i := range t.Variants {
		v := &t.Variants[i]
		name := v.Ident
		if t.Open {
			name = "`" + v.HashName()
		}
		if len(v.Fields) > 0 {
			args := make([]string, len(v.Fields))
			for j := range v.Fields {
				args[j] = v.Fields[j].Foreign()
			}
			name += " of " + strings.Join(args, " * ")
		}
		parts[i] = name
	}
	if t.Open {
		return "[ " + strings.Join(parts, " | ") + " ]"
	}
	return strings.Join(parts, " | ")
}
