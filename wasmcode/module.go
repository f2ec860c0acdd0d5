package wasmcode

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/runtime"
	"github.com/wippyai/camlbridge/value"
)

// Config holds configuration for module loading.
type Config struct {
	// MemoryLimitPages caps the module's memory in 64KB pages. 0 keeps the
	// wazero default.
	MemoryLimitPages uint32
}

// Module is an instantiated WebAssembly module bound to one runtime.
type Module struct {
	ctx    context.Context
	wazero wazero.Runtime
	module api.Module
	rt     *runtime.Runtime
	codes  map[string]int
	mu     sync.Mutex
}

// Load compiles and instantiates wasm for use as closure code in rt.
func Load(ctx context.Context, rt *runtime.Runtime, wasm []byte, cfg *Config) (*Module, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	mod, err := r.Instantiate(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, errors.Load("instantiate module", err)
	}
	m := &Module{
		ctx:    ctx,
		wazero: r,
		module: mod,
		rt:     rt,
		codes:  make(map[string]int),
	}
	Logger().Debug("module loaded",
		zap.String("name", mod.Name()),
		zap.Strings("exports", m.Exports()),
	)
	return m, nil
}

// Exports returns the names of the exported functions, sorted.
func (m *Module) Exports() []string {
	defs := m.module.ExportedFunctionDefinitions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Closure allocates a closure whose code is the exported function. The
// closure's arity is the function's parameter count.
func (m *Module) Closure(h *runtime.Handle, export string) (value.Raw, error) {
	id, arity, err := m.code(export)
	if err != nil {
		return 0, err
	}
	return h.Closure(id, arity), nil
}

// Register allocates the closure for export and binds it to name.
func (m *Module) Register(h *runtime.Handle, export, name string) error {
	f, err := m.Closure(h, export)
	if err != nil {
		return err
	}
	h.Register(name, f)
	return nil
}

// code returns the runtime code id for export, registering it on first use.
func (m *Module) code(export string) (int, int, error) {
	fn := m.module.ExportedFunction(export)
	if fn == nil {
		return 0, 0, errors.NotFound(errors.PhaseLoad, "exported function", export)
	}
	def := fn.Definition()
	arity := len(def.ParamTypes())
	if err := checkSignature(export, def); err != nil {
		return 0, 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.codes[export]; ok {
		return id, arity, nil
	}
	id := m.rt.RegisterCode(m.invoker(export, fn))
	m.codes[export] = id
	return id, arity, nil
}

func checkSignature(export string, def api.FunctionDefinition) error {
	params, results := def.ParamTypes(), def.ResultTypes()
	if len(params) == 0 {
		return errors.Unsupported(errors.PhaseLoad, export+": closure code needs at least one parameter")
	}
	if len(results) != 1 || results[0] != api.ValueTypeI64 {
		return errors.Unsupported(errors.PhaseLoad, export+": closure code must return a single i64")
	}
	for _, p := range params {
		if p != api.ValueTypeI64 {
			return errors.Unsupported(errors.PhaseLoad,
				export+": parameter of type "+api.ValueTypeName(p)+", closure code takes i64 only")
		}
	}
	return nil
}

func (m *Module) invoker(export string, fn api.Function) runtime.Code {
	return func(h *runtime.Handle, args []value.Raw) value.Raw {
		params := make([]uint64, len(args))
		for i, a := range args {
			if !a.IsImmediate() {
				h.InvalidArg(export + ": block argument")
			}
			params[i] = uint64(a)
		}
		out, err := fn.Call(m.ctx, params...)
		if err != nil {
			Logger().Debug("wasm call failed", zap.String("export", export), zap.Error(err))
			h.Failwith(export + ": " + err.Error())
		}
		res := value.Raw(out[0])
		if !res.IsImmediate() {
			h.Failwith(export + ": result is not an immediate")
		}
		return res
	}
}

// Close releases the WebAssembly runtime. Closures over the module's code
// must not be applied afterwards.
func (m *Module) Close(ctx context.Context) error {
	return m.wazero.Close(ctx)
}
