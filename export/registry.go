package export

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/describe"
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/transcoder"
)

// Host is implemented by values whose exported methods are registered
// together. Each method becomes the primitive <prefix>_<snake_case name>.
type Host interface {
	Prefix() string
}

// ExplicitRegistrar lets a host choose its primitive names.
type ExplicitRegistrar interface {
	Register() map[string]any
}

// Registry collects wrapped functions and binds them to runtimes.
type Registry struct {
	compiler *transcoder.Compiler
	funcs    map[string]*Func
	mu       sync.RWMutex
}

// NewRegistry creates a registry converting arguments with c.
func NewRegistry(c *transcoder.Compiler) *Registry {
	return &Registry{
		compiler: c,
		funcs:    make(map[string]*Func),
	}
}

// RegisterFunc wraps fn as the primitive name.
func (r *Registry) RegisterFunc(name string, fn any, opts ...Option) error {
	f, err := Wrap(r.compiler, name, fn, opts...)
	if err != nil {
		return err
	}
	return r.add(f)
}

// RegisterHost wraps every exported method of h except Prefix, or the
// functions returned by Register when h is an ExplicitRegistrar.
func (r *Registry) RegisterHost(h Host, opts ...Option) error {
	prefix := h.Prefix()
	if prefix == "" {
		return errors.InvalidInput(errors.PhaseExport, "prefix cannot be empty")
	}

	if er, ok := h.(ExplicitRegistrar); ok {
		funcs := er.Register()
		names := make([]string, 0, len(funcs))
		for name := range funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		var err error
		for _, name := range names {
			err = multierr.Append(err, r.RegisterFunc(name, funcs[name], opts...))
		}
		return err
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()
	var err error
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Prefix" {
			continue
		}
		name := prefix + "_" + describe.SnakeCase(method.Name)
		err = multierr.Append(err, r.RegisterFunc(name, rv.Method(i).Interface(), opts...))
	}
	return err
}

func (r *Registry) add(f *Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[f.name]; exists {
		return errors.Registration(errors.PhaseExport, f.name,
			errors.InvalidInput(errors.PhaseExport, "function already registered"))
	}
	r.funcs[f.name] = f
	Logger().Debug("function exported",
		zap.String("name", f.name),
		zap.Int("arity", f.Arity()),
		zap.Bool("generic", f.HasGeneric()),
	)
	return nil
}

// Func returns a registered function.
func (r *Registry) Func(name string) (*Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Bind registers every function as a primitive of rt.
func (r *Registry) Bind(rt *runtime.Runtime) error {
	var err error
	for _, name := range r.Names() {
		f, _ := r.Func(name)
		err = multierr.Append(err, rt.RegisterPrimitive(f.Primitive()))
	}
	return err
}

// Signatures renders the external declarations of every function, one per
// line.
func (r *Registry) Signatures() string {
	var b strings.Builder
	for _, name := range r.Names() {
		f, _ := r.Func(name)
		b.WriteString(f.Signature())
		b.WriteByte('\n')
	}
	return b.String()
}
