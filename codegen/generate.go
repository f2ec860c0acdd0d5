package codegen

import (
	"fmt"
	"go/format"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/transcoder"
)

const importPath = "github.com/wippyai/camlbridge"

// Config controls code generation.
type Config struct {
	// Package is the package clause of the generated file.
	Package string
	// Types also declares the described Go types.
	Types bool
}

// Generate returns formatted Go source with the procedure pair of every
// description.
func Generate(cfg Config, types ...*describe.Type) ([]byte, error) {
	if cfg.Package == "" {
		return nil, errors.InvalidInput(errors.PhaseGenerate, "package name is required")
	}
	if len(types) == 0 {
		return nil, errors.InvalidInput(errors.PhaseGenerate, "no type descriptions")
	}
	var err error
	for _, t := range types {
		err = multierr.Append(err, describe.Validate(t))
	}
	if err != nil {
		return nil, err
	}

	g := &generator{
		cfg:     cfg,
		types:   types,
		byIdent: make(map[string]*describe.Type, len(types)),
		done:    make(map[string]bool),
	}
	for _, t := range types {
		g.byIdent[t.Ident] = t
	}
	if err := g.resolve(); err != nil {
		return nil, err
	}

	src := g.file()
	out, ferr := format.Source(src)
	if ferr != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindInvalidData, ferr, "format generated source")
	}
	return out, nil
}

type helper struct {
	ref    describe.Ref
	name   string
	encode bool
}

type generator struct {
	cfg        Config
	types      []*describe.Type
	byIdent    map[string]*describe.Type
	done       map[string]bool
	queue      []helper
	b          strings.Builder
	usesErrors bool
}

func (g *generator) p(format string, args ...any) {
	fmt.Fprintf(&g.b, format, args...)
	g.b.WriteByte('\n')
}

// resolve checks that every named field type refers to a description in
// the set.
func (g *generator) resolve() error {
	var err error
	check := func(fields []describe.Field) {
		for _, f := range fields {
			for r := &f.Type; r != nil; r = r.Elem {
				if r.Kind == describe.RefNamed && g.named(*r) == nil {
					err = multierr.Append(err, errors.New(errors.PhaseGenerate, errors.KindNotFound).
						Location(f.Location).
						Detail("type %s is not among the generated descriptions", r.Name).
						Build())
				}
			}
		}
	}
	for _, t := range g.types {
		check(t.Fields)
		for _, v := range t.Variants {
			check(v.Fields)
		}
	}
	return err
}

func (g *generator) named(r describe.Ref) *describe.Type {
	if t, ok := g.byIdent[r.Name]; ok {
		return t
	}
	if r.Go != nil {
		for _, t := range g.types {
			if t.Go == r.Go {
				return t
			}
		}
	}
	return nil
}

func (g *generator) file() []byte {
	var body strings.Builder
	g.b = strings.Builder{}
	if g.cfg.Types {
		for _, t := range g.types {
			g.declare(t)
		}
	}
	g.tagConstants()
	for _, t := range g.types {
		if t.Kind == describe.KindUnion {
			g.encodeUnion(t)
			g.decodeUnion(t)
		} else {
			g.encodeRecord(t)
			g.decodeRecord(t)
		}
	}
	for len(g.queue) > 0 {
		h := g.queue[0]
		g.queue = g.queue[1:]
		if h.encode {
			g.encodeHelper(h)
		} else {
			g.decodeHelper(h)
		}
	}
	body.WriteString(g.b.String())

	var out strings.Builder
	out.WriteString("// Code generated by camlgen. DO NOT EDIT.\n\n")
	fmt.Fprintf(&out, "package %s\n\n", g.cfg.Package)
	out.WriteString("import (\n")
	fmt.Fprintf(&out, "\t%q\n", importPath)
	if g.usesErrors {
		fmt.Fprintf(&out, "\t%q\n", importPath+"/errors")
	}
	fmt.Fprintf(&out, "\t%q\n", importPath+"/value")
	out.WriteString(")\n\n")
	out.WriteString(body.String())
	return []byte(out.String())
}

func (g *generator) declare(t *describe.Type) {
	g.p("// %s is the Go form of the foreign type %s.", t.GoName, t.Ident)
	if t.Kind == describe.KindRecord {
		g.p("type %s struct {", t.GoName)
		g.fields(t.Fields)
		g.p("}\n")
		return
	}
	marker := "is" + t.GoName
	g.p("type %s interface {\n%s()\n}\n", t.GoName, marker)
	for _, v := range t.Variants {
		g.p("type %s struct {", v.GoName)
		g.fields(v.Fields)
		g.p("}\n")
		g.p("func (%s) %s() {}\n", v.GoName, marker)
	}
}

func (g *generator) fields(fields []describe.Field) {
	for _, f := range fields {
		g.p("%s %s", f.GoName, g.goType(f.Type))
	}
}

func (g *generator) tagConstants() {
	var lines []string
	for _, t := range g.types {
		if !t.Open {
			continue
		}
		for _, pl := range transcoder.Layout(t) {
			v, _ := t.Variant(pl.Variant)
			lines = append(lines, fmt.Sprintf("%s value.Raw = %#x // `%s", tagName(v), uint64(pl.Hash), v.HashName()))
		}
	}
	if len(lines) == 0 {
		return
	}
	g.p("// Tags of open union constructors.")
	g.p("const (")
	for _, l := range lines {
		g.p("%s", l)
	}
	g.p(")\n")
}

func tagName(v *describe.Variant) string {
	return lowerFirst(v.GoName) + "Tag"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// goType renders the Go type of a field type expression.
func (g *generator) goType(r describe.Ref) string {
	switch r.Kind {
	case describe.RefNamed:
		return g.named(r).GoName
	case describe.RefList:
		return "[]" + g.goType(*r.Elem)
	case describe.RefArray:
		if r.Len >= 0 {
			return "[" + strconv.Itoa(r.Len) + "]" + g.goType(*r.Elem)
		}
		return "[]" + g.goType(*r.Elem)
	case describe.RefOption:
		return "*" + g.goType(*r.Elem)
	case describe.RefRaw:
		return "value.Raw"
	}
	if r.Go != nil && r.Go.Name() != "" {
		return r.Go.Name()
	}
	return canonical(r.Kind)
}

func canonical(k describe.RefKind) string {
	switch k {
	case describe.RefInt:
		return "int"
	case describe.RefInt64:
		return "int64"
	case describe.RefInt32:
		return "int32"
	case describe.RefFloat:
		return "float64"
	case describe.RefBool:
		return "bool"
	case describe.RefString:
		return "string"
	case describe.RefBytes:
		return "[]byte"
	}
	return "value.Raw"
}

// conv converts expr of Go type have to Go type want.
func conv(want, have, expr string) string {
	if want == have {
		return expr
	}
	if strings.HasPrefix(want, "[") || strings.HasPrefix(want, "*") {
		want = "(" + want + ")"
	}
	return want + "(" + expr + ")"
}

// refName is the name part of the helper functions for r.
func (g *generator) refName(r describe.Ref) string {
	switch r.Kind {
	case describe.RefNamed:
		return g.named(r).GoName
	case describe.RefList:
		return g.refName(*r.Elem) + "List"
	case describe.RefArray:
		if r.Len >= 0 {
			return g.refName(*r.Elem) + "Array" + strconv.Itoa(r.Len)
		}
		return g.refName(*r.Elem) + "Array"
	case describe.RefOption:
		return g.refName(*r.Elem) + "Option"
	case describe.RefRaw:
		return "Raw"
	case describe.RefBytes:
		if t := g.goType(r); t != "[]byte" {
			return upperFirst(t)
		}
		return "Bytes"
	}
	return upperFirst(g.goType(r))
}

func (g *generator) helper(r describe.Ref, encode bool) string {
	name := "decode" + g.refName(r)
	if encode {
		name = "encode" + g.refName(r)
	}
	if !g.done[name] {
		g.done[name] = true
		g.queue = append(g.queue, helper{ref: r, name: name, encode: encode})
	}
	return name
}

// encodeExpr renders an expression converting src to a value. It may
// allocate; it never uses values held outside a frame.
func (g *generator) encodeExpr(r describe.Ref, src string) string {
	t := g.goType(r)
	switch r.Kind {
	case describe.RefInt:
		return fmt.Sprintf("camlbridge.OfInt(%s, %q)", src, r.Foreign())
	case describe.RefInt64:
		return "m.AllocInt64(" + conv("int64", t, src) + ")"
	case describe.RefInt32:
		return "m.AllocInt32(" + conv("int32", t, src) + ")"
	case describe.RefFloat:
		return "m.AllocDouble(" + conv("float64", t, src) + ")"
	case describe.RefBool:
		return "value.OfBool(" + conv("bool", t, src) + ")"
	case describe.RefString:
		return "m.AllocString(" + conv("string", t, src) + ")"
	case describe.RefBytes:
		return "m.AllocBytes(" + conv("[]byte", t, src) + ")"
	case describe.RefRaw:
		return src
	case describe.RefNamed:
		return "Encode" + g.named(r).GoName + "(m, " + src + ")"
	default:
		return g.helper(r, true) + "(m, " + src + ")"
	}
}

// decodeExpr renders an expression converting the value src to the Go
// type of r.
func (g *generator) decodeExpr(r describe.Ref, src string) string {
	t := g.goType(r)
	block := fmt.Sprintf("camlbridge.NeedBlock(%s, %q)", src, r.Foreign())
	switch r.Kind {
	case describe.RefInt:
		return fmt.Sprintf("camlbridge.IntOf[%s](%s, %q)", t, src, r.Foreign())
	case describe.RefInt64:
		return conv(t, "int64", "r.Int64Of("+block+")")
	case describe.RefInt32:
		return conv(t, "int32", "r.Int32Of("+block+")")
	case describe.RefFloat:
		return conv(t, "float64", "r.DoubleOf("+block+")")
	case describe.RefBool:
		return conv(t, "bool", fmt.Sprintf("camlbridge.BoolOf(%s, %q)", src, r.Foreign()))
	case describe.RefString:
		return conv(t, "string", "r.StringOf("+block+")")
	case describe.RefBytes:
		return conv(t, "[]byte", "r.BytesOf("+block+")")
	case describe.RefRaw:
		return src
	case describe.RefNamed:
		return "Decode" + g.named(r).GoName + "(r, " + src + ")"
	default:
		return g.helper(r, false) + "(r, " + src + ")"
	}
}

// fill allocates a block in slot name of frame f and stores the fields of
// v into it one at a time.
func (g *generator) fill(name, tag string, fields []describe.Field) {
	g.p("%s := f.Push(m.Alloc(%d, %s))", name, len(fields), tag)
	g.p("var x value.Raw")
	for i, fd := range fields {
		g.p("x = %s", g.encodeExpr(fd.Type, "v."+fd.GoName))
		g.p("m.SetField(f.Get(%s), %d, x)", name, i)
	}
}

func (g *generator) encodeRecord(t *describe.Type) {
	g.p("// Encode%s converts v to a foreign %s. The result is not rooted.", t.GoName, t.Ident)
	g.p("func Encode%s(m camlbridge.Mutator, v %s) value.Raw {", t.GoName, t.GoName)
	if len(t.Fields) == 0 {
		g.p("return value.Unit\n}\n")
		return
	}
	g.p("f := m.Enter(1)")
	g.p("defer f.Leave()")
	g.fill("blk", "value.TagRecord", t.Fields)
	g.p("return f.Get(blk)\n}\n")
}

func (g *generator) decodeRecord(t *describe.Type) {
	g.p("// Decode%s converts a foreign %s to Go.", t.GoName, t.Ident)
	g.p("func Decode%s(r camlbridge.Reader, raw value.Raw) %s {", t.GoName, t.GoName)
	if len(t.Fields) == 0 {
		g.p("camlbridge.CheckUnit(raw, %q)", t.Foreign())
		g.p("return %s{}\n}\n", t.GoName)
		return
	}
	g.p("camlbridge.CheckBlock(r, raw, value.TagRecord, %d, %q)", len(t.Fields), t.Foreign())
	g.p("var v %s", t.GoName)
	for i, fd := range t.Fields {
		g.p("v.%s = %s", fd.GoName, g.decodeExpr(fd.Type, fmt.Sprintf("r.Field(raw, %d)", i)))
	}
	g.p("return v\n}\n")
}

func caseType(v *describe.Variant) string {
	if v.Pointer {
		return "*" + v.GoName
	}
	return v.GoName
}

func (g *generator) encodeUnion(t *describe.Type) {
	layout := transcoder.Layout(t)
	bound := false
	for _, pl := range layout {
		bound = bound || !pl.Constant()
	}

	g.p("// Encode%s converts v to a foreign %s. The result is not rooted.", t.GoName, t.Ident)
	g.p("func Encode%s(m camlbridge.Mutator, v %s) value.Raw {", t.GoName, t.GoName)
	if bound {
		g.p("switch v := v.(type) {")
	} else {
		g.p("switch v.(type) {")
	}
	for _, pl := range layout {
		v, _ := t.Variant(pl.Variant)
		g.p("case %s:", caseType(v))
		switch {
		case pl.Constant() && pl.Open:
			g.p("return %s", tagName(v))
		case pl.Constant():
			g.p("return value.OfInt(%d)", pl.Index)
		case pl.Open:
			g.p("f := m.Enter(1)")
			g.p("defer f.Leave()")
			if len(v.Fields) == 1 {
				g.p("payload := f.Push(%s)", g.encodeExpr(v.Fields[0].Type, "v."+v.Fields[0].GoName))
			} else {
				g.fill("payload", "value.TagRecord", v.Fields)
			}
			g.p("blk := m.Alloc(2, value.TagPolymorphic)")
			g.p("m.SetField(blk, 0, %s)", tagName(v))
			g.p("m.SetField(blk, 1, f.Get(payload))")
			g.p("return blk")
		default:
			g.p("f := m.Enter(1)")
			g.p("defer f.Leave()")
			g.fill("blk", strconv.Itoa(pl.Index), v.Fields)
			g.p("return f.Get(blk)")
		}
	}
	g.p("}")
	g.usesErrors = true
	g.p("panic(errors.New(errors.PhaseEncode, errors.KindInvalidVariant).ForeignType(%q).Detail(\"unknown constructor %%T\", v).Build())", t.Foreign())
	g.p("}\n")
}

func (g *generator) decodeUnion(t *describe.Type) {
	layout := transcoder.Layout(t)
	var constants, blocks []transcoder.Placement
	for _, pl := range layout {
		if pl.Constant() {
			constants = append(constants, pl)
		} else {
			blocks = append(blocks, pl)
		}
	}
	foreign := t.Foreign()
	g.usesErrors = true

	g.p("// Decode%s converts a foreign %s to Go.", t.GoName, t.Ident)
	g.p("func Decode%s(r camlbridge.Reader, raw value.Raw) %s {", t.GoName, t.GoName)

	noVariant := fmt.Sprintf("panic(errors.Shape(nil, %q, %q))", foreign, foreign+": expected a polymorphic variant")

	g.p("if raw.IsImmediate() {")
	if len(constants) > 0 {
		if t.Open {
			g.p("switch raw {")
		} else {
			g.p("switch raw.Int() {")
		}
		for _, pl := range constants {
			v, _ := t.Variant(pl.Variant)
			if t.Open {
				g.p("case %s:", tagName(v))
			} else {
				g.p("case %d:", pl.Index)
			}
			g.p("return %s", g.zero(v))
		}
		g.p("}")
	}
	if t.Open {
		g.p("%s", noVariant)
	} else {
		g.p("panic(errors.InvalidDiscriminant(errors.PhaseDecode, nil, %q, raw.Int(), %d))", foreign, len(constants)-1)
	}
	g.p("}")

	if len(blocks) == 0 {
		if t.Open {
			g.p("%s", noVariant)
		} else {
			g.p("panic(errors.InvalidDiscriminant(errors.PhaseDecode, nil, %q, int64(r.Header(raw).Tag()), -1))", foreign)
		}
		g.p("}\n")
		return
	}

	if t.Open {
		g.p("camlbridge.CheckBlock(r, raw, value.TagPolymorphic, 2, %q)", foreign)
		g.p("payload := r.Field(raw, 1)")
		g.p("switch r.Field(raw, 0) {")
		for _, pl := range blocks {
			v, _ := t.Variant(pl.Variant)
			g.p("case %s:", tagName(v))
			g.p("var v %s", v.GoName)
			if len(v.Fields) == 1 {
				fd := v.Fields[0]
				g.p("v.%s = %s", fd.GoName, g.decodeExpr(fd.Type, "payload"))
			} else {
				g.p("camlbridge.CheckBlock(r, payload, value.TagRecord, %d, %q)", len(v.Fields), foreign)
				g.decodeFields(v.Fields, "payload")
			}
			g.p("return %s", ref(v))
		}
		g.p("}")
		g.p("%s", noVariant)
		g.p("}\n")
		return
	}

	g.p("switch tag := r.Header(raw).Tag(); tag {")
	for _, pl := range blocks {
		v, _ := t.Variant(pl.Variant)
		g.p("case %d:", pl.Index)
		g.p("camlbridge.CheckBlock(r, raw, tag, %d, %q)", len(v.Fields), foreign)
		g.p("var v %s", v.GoName)
		g.decodeFields(v.Fields, "raw")
		g.p("return %s", ref(v))
	}
	g.p("default:")
	g.p("panic(errors.InvalidDiscriminant(errors.PhaseDecode, nil, %q, int64(tag), %d))", foreign, len(blocks)-1)
	g.p("}")
	g.p("}\n")
}

func (g *generator) decodeFields(fields []describe.Field, blk string) {
	for i, fd := range fields {
		g.p("v.%s = %s", fd.GoName, g.decodeExpr(fd.Type, fmt.Sprintf("r.Field(%s, %d)", blk, i)))
	}
}

func (g *generator) zero(v *describe.Variant) string {
	if v.Pointer {
		return "&" + v.GoName + "{}"
	}
	return v.GoName + "{}"
}

func ref(v *describe.Variant) string {
	if v.Pointer {
		return "&v"
	}
	return "v"
}

func (g *generator) encodeHelper(h helper) {
	r := h.ref
	t := g.goType(r)
	g.p("func %s(m camlbridge.Mutator, xs %s) value.Raw {", h.name, t)
	switch {
	case r.Kind == describe.RefOption:
		g.p("if xs == nil {\nreturn value.None\n}")
		g.p("f := m.Enter(1)")
		g.p("defer f.Leave()")
		g.p("some := f.Push(%s)", g.encodeExpr(*r.Elem, "*xs"))
		g.p("blk := m.Alloc(1, value.TagRecord)")
		g.p("m.SetField(blk, 0, f.Get(some))")
		g.p("return blk")
	case r.IsDoubleArray():
		g.p("fs := make([]float64, len(xs))")
		g.p("for i, x := range xs {\nfs[i] = float64(x)\n}")
		g.p("return m.AllocDoubleArray(fs)")
	case r.Kind == describe.RefArray:
		g.p("if len(xs) == 0 {\nreturn m.Alloc(0, value.TagRecord)\n}")
		g.p("f := m.Enter(1)")
		g.p("defer f.Leave()")
		g.p("arr := f.Push(m.Alloc(len(xs), value.TagRecord))")
		g.p("for i := range xs {")
		g.p("x := %s", g.encodeExpr(*r.Elem, "xs[i]"))
		g.p("m.SetField(f.Get(arr), i, x)")
		g.p("}")
		g.p("return f.Get(arr)")
	default:
		g.p("f := m.Enter(2)")
		g.p("defer f.Leave()")
		g.p("list := f.Push(value.EmptyList)")
		g.p("head := f.Push(value.Unit)")
		g.p("for i := len(xs) - 1; i >= 0; i-- {")
		g.p("f.Set(head, %s)", g.encodeExpr(*r.Elem, "xs[i]"))
		g.p("cell := m.Alloc(2, value.TagRecord)")
		g.p("m.SetField(cell, 0, f.Get(head))")
		g.p("m.SetField(cell, 1, f.Get(list))")
		g.p("f.Set(list, cell)")
		g.p("}")
		g.p("return f.Get(list)")
	}
	g.p("}\n")
}

func (g *generator) decodeHelper(h helper) {
	r := h.ref
	t := g.goType(r)
	elem := g.goType(*r.Elem)
	foreign := r.Foreign()
	g.p("func %s(r camlbridge.Reader, raw value.Raw) %s {", h.name, t)
	switch {
	case r.Kind == describe.RefOption:
		g.p("if raw == value.None {\nreturn nil\n}")
		g.p("camlbridge.CheckBlock(r, raw, value.TagRecord, 1, %q)", foreign)
		g.p("x := %s", g.decodeExpr(*r.Elem, "r.Field(raw, 0)"))
		g.p("return &x")
	case r.IsDoubleArray():
		g.p("fs := r.DoubleArrayOf(camlbridge.NeedBlock(raw, %q))", foreign)
		if r.Len >= 0 {
			g.usesErrors = true
			g.p("if len(fs) != %d {", r.Len)
			g.p("panic(errors.Shape(nil, %q, \"expected %d elements, got %%d\", len(fs)))", foreign, r.Len)
			g.p("}")
			g.p("var xs %s", t)
		} else {
			g.p("xs := make(%s, len(fs))", t)
		}
		g.p("for i, x := range fs {\nxs[i] = %s\n}", conv(elem, "float64", "x"))
		g.p("return xs")
	case r.Kind == describe.RefArray:
		if r.Len >= 0 {
			g.p("camlbridge.CheckBlock(r, raw, value.TagRecord, %d, %q)", r.Len, foreign)
			g.p("var xs %s", t)
		} else {
			g.p("camlbridge.CheckBlock(r, raw, value.TagRecord, -1, %q)", foreign)
			g.p("xs := make(%s, r.Header(raw).Size())", t)
		}
		g.p("for i := range xs {")
		g.p("xs[i] = %s", g.decodeExpr(*r.Elem, "r.Field(raw, i)"))
		g.p("}")
		g.p("return xs")
	default:
		g.p("var xs %s", t)
		g.p("slow := raw")
		g.p("for i := 0; raw != value.EmptyList; i++ {")
		g.p("camlbridge.CheckBlock(r, raw, value.TagRecord, 2, %q)", foreign)
		g.p("xs = append(xs, %s)", g.decodeExpr(*r.Elem, "r.Field(raw, 0)"))
		g.p("raw = r.Field(raw, 1)")
		g.p("if i%%2 == 1 {\nslow = r.Field(slow, 1)\n}")
		g.p("camlbridge.CheckAcyclic(raw, slow, %q)", foreign)
		g.p("}")
		g.p("return xs")
	}
	g.p("}\n")
}
