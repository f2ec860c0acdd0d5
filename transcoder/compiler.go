package transcoder

import (
	"reflect"
	"sync"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Compiler builds and caches procedure pairs. Records are described on
// first use; unions must be registered.
type Compiler struct {
	cache sync.Map // cacheKey -> *CompiledType
	descs sync.Map // reflect.Type -> *describe.Type
	mu    sync.Mutex
}

type cacheKey struct {
	goType reflect.Type
	kind   describe.RefKind
}

func NewCompiler() *Compiler {
	return &Compiler{}
}

// Register makes descriptions available to Compile. A Go type can be
// registered once.
func (c *Compiler) Register(descs ...*describe.Type) error {
	for _, d := range descs {
		if d == nil || d.Go == nil {
			return errors.InvalidInput(errors.PhaseCompile, "description without a Go type cannot be registered")
		}
		if prev, loaded := c.descs.LoadOrStore(d.Go, d); loaded && prev != d {
			return errors.Registration(errors.PhaseCompile, d.Ident,
				errors.InvalidInput(errors.PhaseCompile, d.Go.String()+" is already registered"))
		}
	}
	return nil
}

// Description returns the description used for a record or union Go type.
func (c *Compiler) Description(rt reflect.Type) (*describe.Type, bool) {
	d, ok := c.descs.Load(rt)
	if !ok {
		return nil, false
	}
	return d.(*describe.Type), true
}

// Compile returns the procedure pair for a Go type under its default
// layout.
func (c *Compiler) Compile(rt reflect.Type) (*CompiledType, error) {
	if rt == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Detail("Go type cannot be nil").
			Build()
	}
	ref, err := describe.RefOf(rt, false, false)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindUnsupported, err, "compile "+rt.String())
	}
	return c.CompileRef(ref)
}

// CompileRef returns the procedure pair for a field type expression.
func (c *Compiler) CompileRef(ref describe.Ref) (*CompiledType, error) {
	if cached, ok := c.cache.Load(keyOf(ref)); ok {
		return cached.(*CompiledType), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	building := make(map[cacheKey]*CompiledType)
	ct, err := c.compile(ref, building, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range building {
		c.cache.Store(k, v)
	}
	return ct, nil
}

func keyOf(ref describe.Ref) cacheKey {
	return cacheKey{goType: ref.Go, kind: ref.Kind}
}

func (c *Compiler) compile(ref describe.Ref, building map[cacheKey]*CompiledType, path []string) (*CompiledType, error) {
	if ref.Go == nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindNilPointer).
			Path(path...).
			ForeignType(ref.Foreign()).
			Detail("type expression has no Go type").
			Build()
	}
	k := keyOf(ref)
	if cached, ok := c.cache.Load(k); ok {
		return cached.(*CompiledType), nil
	}
	if ct, ok := building[k]; ok {
		return ct, nil
	}

	ct := &CompiledType{GoType: ref.Go, Len: ref.Len, foreign: ref.Foreign()}
	building[k] = ct

	switch ref.Kind {
	case describe.RefInt:
		ct.Kind = KindInt
	case describe.RefInt64:
		ct.Kind = KindInt64
	case describe.RefInt32:
		ct.Kind = KindInt32
	case describe.RefFloat:
		ct.Kind = KindFloat
	case describe.RefBool:
		ct.Kind = KindBool
	case describe.RefString:
		ct.Kind = KindString
	case describe.RefBytes:
		ct.Kind = KindBytes
	case describe.RefRaw:
		ct.Kind = KindRaw
	case describe.RefList, describe.RefArray, describe.RefOption:
		switch {
		case ref.IsDoubleArray():
			ct.Kind = KindDoubleArray
		case ref.Kind == describe.RefArray:
			ct.Kind = KindArray
		case ref.Kind == describe.RefOption:
			ct.Kind = KindOption
		default:
			ct.Kind = KindList
		}
		elem, err := c.compile(*ref.Elem, building, append(append([]string{}, path...), "[elem]"))
		if err != nil {
			return nil, err
		}
		ct.Elem = elem
	case describe.RefNamed:
		d, err := c.resolve(ref.Go, path)
		if err != nil {
			return nil, err
		}
		ct.Desc = d
		ct.foreign = d.Foreign()
		if d.Kind == describe.KindUnion {
			err = c.compileUnion(ct, d, building, path)
		} else {
			err = c.compileRecord(ct, d, building, path)
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, errors.Unsupported(errors.PhaseCompile, "type expression "+ref.Kind.String())
	}
	return ct, nil
}

func (c *Compiler) resolve(rt reflect.Type, path []string) (*describe.Type, error) {
	if d, ok := c.Description(rt); ok {
		return d, nil
	}
	if rt.Kind() != reflect.Struct {
		return nil, errors.NotFound(errors.PhaseCompile, "union description", rt.String())
	}
	d, err := describe.FromStruct(rt)
	if err != nil {
		return nil, errors.New(errors.PhaseCompile, errors.KindInvalidDescription).
			Path(path...).
			GoType(rt.String()).
			Cause(err).
			Build()
	}
	actual, _ := c.descs.LoadOrStore(rt, d)
	return actual.(*describe.Type), nil
}

func (c *Compiler) compileFields(fields []describe.Field, building map[cacheKey]*CompiledType, path []string) ([]CompiledField, error) {
	out := make([]CompiledField, 0, len(fields))
	for _, f := range fields {
		fieldPath := append(append([]string{}, path...), f.Ident)
		ft, err := c.compile(f.Type, building, fieldPath)
		if err != nil {
			return nil, err
		}
		if f.Index < 0 {
			return nil, errors.FieldMissing(errors.PhaseCompile, fieldPath, f.Ident)
		}
		out = append(out, CompiledField{Type: ft, Name: f.Ident, Index: f.Index})
	}
	return out, nil
}

func (c *Compiler) compileRecord(ct *CompiledType, d *describe.Type, building map[cacheKey]*CompiledType, path []string) error {
	fields, err := c.compileFields(d.Fields, building, path)
	if err != nil {
		return err
	}
	ct.Kind = KindRecord
	ct.Fields = fields
	return nil
}

func (c *Compiler) compileUnion(ct *CompiledType, d *describe.Type, building map[cacheKey]*CompiledType, path []string) error {
	placements := Layout(d)
	ct.Kind = KindUnion
	ct.Cases = make([]CompiledCase, len(d.Variants))
	ct.byGo = make(map[reflect.Type]int, 2*len(d.Variants))
	ct.constants = make(map[value.Raw]int)
	ct.blocks = make(map[value.Tag]int)
	ct.payloads = make(map[value.Raw]int)

	for i := range d.Variants {
		v := &d.Variants[i]
		fields, err := c.compileFields(v.Fields, building, append(append([]string{}, path...), v.Ident))
		if err != nil {
			return err
		}
		p := placements[i]
		ct.Cases[i] = CompiledCase{
			GoType:    v.Go,
			Name:      v.Ident,
			Fields:    fields,
			Placement: p,
			Pointer:   v.Pointer,
		}
		ct.byGo[v.Go] = i
		ct.byGo[reflect.PointerTo(v.Go)] = i

		switch {
		case p.Constant():
			ct.constants[p.Immediate()] = i
		case p.Open:
			ct.payloads[p.Hash] = i
			ct.hasPayload = true
		default:
			ct.blocks[p.Tag()] = i
		}
	}
	return nil
}
