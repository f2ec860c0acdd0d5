package runtime

import (
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/heap"
	"github.com/wippyai/camlbridge/root"
)

// Runtime owns one foreign heap together with its root sets, named values,
// closure code and primitive table.
type Runtime struct {
	heap  *heap.Heap
	roots *root.Table
	chain *root.Chain
	log   *zap.Logger

	named map[string]*root.Root
	prims map[string]*Primitive
	exns  map[string]*Exn
	code  []Code

	cfg     Config
	nextExn int64

	mu     sync.RWMutex // heap access: exclusive or shared handles
	regMu  sync.RWMutex // named, prims, exns, code
	closed atomic.Bool
}

// New creates a runtime with the predefined exceptions in place.
func New(opts ...Option) (*Runtime, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Debug {
		cfg.Heap.Debug = true
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}

	rt := &Runtime{
		heap:  heap.New(cfg.Heap),
		roots: root.NewTable(),
		chain: root.NewChain(cfg.ChainSlots),
		log:   log,
		named: make(map[string]*root.Root),
		prims: make(map[string]*Primitive),
		exns:  make(map[string]*Exn),
		cfg:   cfg,
	}
	rt.heap.AddScanner(rt.roots)
	rt.heap.AddScanner(rt.chain)

	if err := rt.definePredefined(); err != nil {
		_ = rt.Close()
		return nil, err
	}

	log.Debug("runtime created",
		zap.Int("heap_words", rt.heap.Config().InitialWords),
		zap.Int("chain_slots", rt.chain.Capacity()),
		zap.Bool("debug", cfg.Debug),
	)
	return rt, nil
}

func (rt *Runtime) definePredefined() (err error) {
	h := rt.Acquire()
	defer h.Release()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrap(errors.PhaseRuntime, errors.KindAllocation,
				errors.Recovered(errors.PhaseRuntime, r), "define predefined exceptions")
		}
	}()
	for _, name := range predefined {
		h.DefineException(name)
	}
	return nil
}

// Config returns the effective configuration.
func (rt *Runtime) Config() Config { return rt.cfg }

// Debug reports whether debug checks are enabled.
func (rt *Runtime) Debug() bool { return rt.cfg.Debug }

// Stats returns the heap counters. It waits for the exclusive handle; code
// holding a handle uses Handle.Stats.
func (rt *Runtime) Stats() heap.Stats {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.heap.Stats()
}

// Roots returns the number of live handle roots.
func (rt *Runtime) Roots() int { return rt.roots.Len() }

// Acquire blocks until the exclusive handle is available and returns it.
// The caller must Release it.
func (rt *Runtime) Acquire() *Handle {
	rt.mu.Lock()
	return &Handle{rt: rt, owned: true}
}

// AcquireShared returns a read-only handle. Shared handles may be held by
// several goroutines at once but never together with the exclusive one.
func (rt *Runtime) AcquireShared() *Handle {
	rt.mu.RLock()
	return &Handle{rt: rt, shared: true, owned: true}
}

// Recover returns a handle for code that already runs under an acquired
// runtime, such as a primitive called by the foreign side. It takes no lock.
func (rt *Runtime) Recover(shared bool) *Handle {
	return &Handle{rt: rt, shared: shared}
}

// Close releases every named value and exception and closes the root table.
// The runtime must not be used afterwards.
func (rt *Runtime) Close() error {
	if !rt.closed.CompareAndSwap(false, true) {
		return nil
	}
	rt.regMu.Lock()
	for name, r := range rt.named {
		r.Release()
		delete(rt.named, name)
	}
	for _, e := range rt.exns {
		e.slot.Release()
	}
	rt.regMu.Unlock()

	var err error
	if rt.chain.Depth() != 0 {
		err = multierr.Append(err, errors.RootOrder("runtime closed with %d frames open", rt.chain.Depth()))
	}
	err = multierr.Append(err, rt.roots.Close())
	rt.log.Debug("runtime closed", zap.Uint64("collections", rt.heap.Stats().Collections))
	return err
}

// Primitives returns the names of the registered primitives in order.
func (rt *Runtime) Primitives() []string {
	rt.regMu.RLock()
	defer rt.regMu.RUnlock()
	names := make([]string, 0, len(rt.prims))
	for name := range rt.prims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rt *Runtime) checkOpen() {
	if rt.closed.Load() {
		panic(errors.NotInitialized(errors.PhaseRuntime, "runtime"))
	}
}
