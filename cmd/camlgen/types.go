package main

import (
	"fmt"
	"os"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/transcoder"
)

// loadTypes describes every record, variant and enum of a resolved WIT
// document.
func loadTypes(path string) ([]*describe.Type, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	res, err := wit.DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("decode WIT: %w", err)
	}
	types, err := describe.FromResolve(res)
	if err != nil {
		return nil, fmt.Errorf("describe: %w", err)
	}
	return types, nil
}

// selectTypes returns the named types plus every type they refer to, in
// document order. No names selects everything.
func selectTypes(all []*describe.Type, names []string) ([]*describe.Type, error) {
	if len(names) == 0 {
		return all, nil
	}
	byIdent := make(map[string]*describe.Type, len(all))
	for _, t := range all {
		byIdent[t.Ident] = t
	}

	keep := make(map[*describe.Type]bool)
	var visit func(t *describe.Type)
	visitFields := func(fields []describe.Field) {
		for _, f := range fields {
			for r := &f.Type; r != nil; r = r.Elem {
				if r.Kind == describe.RefNamed {
					if dep, ok := byIdent[r.Name]; ok {
						visit(dep)
					}
				}
			}
		}
	}
	visit = func(t *describe.Type) {
		if keep[t] {
			return
		}
		keep[t] = true
		visitFields(t.Fields)
		for _, v := range t.Variants {
			visitFields(v.Fields)
		}
	}

	for _, n := range names {
		found := false
		for _, t := range all {
			if t.Ident == n || t.GoName == n {
				visit(t)
				found = true
			}
		}
		if !found {
			return nil, errors.NotFound(errors.PhaseGenerate, "type", n)
		}
	}

	var out []*describe.Type
	for _, t := range all {
		if keep[t] {
			out = append(out, t)
		}
	}
	return out, nil
}

// layoutLines renders a type and the placement of its constructors.
func layoutLines(t *describe.Type) []string {
	if t.Kind == describe.KindRecord {
		fields := make([]string, len(t.Fields))
		for i := range t.Fields {
			fields[i] = t.Fields[i].Ident + ": " + t.Fields[i].Foreign()
		}
		if len(fields) == 0 {
			return []string{fmt.Sprintf("%s (%s) record, immediate unit", t.Ident, t.GoName)}
		}
		return []string{fmt.Sprintf("%s (%s) record, block of %d: {%s}",
			t.Ident, t.GoName, len(fields), strings.Join(fields, "; "))}
	}

	kind := "closed union"
	if t.Open {
		kind = "open union"
	}
	lines := []string{fmt.Sprintf("%s (%s) %s", t.Ident, t.GoName, kind)}
	for _, pl := range transcoder.Layout(t) {
		v, _ := t.Variant(pl.Variant)
		var args []string
		for i := range v.Fields {
			args = append(args, v.Fields[i].Foreign())
		}
		switch {
		case pl.Open && pl.Constant():
			lines = append(lines, fmt.Sprintf("  `%s immediate %#x", v.HashName(), uint64(pl.Hash)))
		case pl.Open:
			lines = append(lines, fmt.Sprintf("  `%s block [%#x, %s]", v.HashName(), uint64(pl.Hash), strings.Join(args, " * ")))
		case pl.Constant():
			lines = append(lines, fmt.Sprintf("  %s immediate %d", v.Ident, pl.Index))
		default:
			lines = append(lines, fmt.Sprintf("  %s tag %d of %s", v.Ident, pl.Index, strings.Join(args, " * ")))
		}
	}
	return lines
}
