package heap

import (
	"go.uber.org/zap"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// RootScanner exposes GC-visible slots to the collector.
type RootScanner interface {
	// ScanRoots calls visit once per slot. visit may rewrite the slot.
	ScanRoots(visit func(*value.Raw))
}

const (
	wordSize = 8

	// staticBase is the address of the first atom header.
	staticBase = 0x1000

	// Each semispace lives at epoch << spaceShift, so addresses from an
	// earlier collection never alias the current space.
	spaceShift = 36

	// forwarded marks a from-space header whose first field holds the new address.
	forwarded = value.ColorBlack
)

// Heap is a moving, garbage-collected block store.
type Heap struct {
	words    []uint64
	scanners []RootScanner
	ops      []CustomOps
	opsByID  map[string]int
	cfg      Config
	stats    Stats
	base     uint64
	epoch    uint64
	top      int
	nextCap  int
	atoms    [256]uint64
}

// New creates a heap with the given configuration.
func New(cfg Config) *Heap {
	cfg = cfg.withDefaults()
	h := &Heap{
		cfg:     cfg,
		words:   make([]uint64, cfg.InitialWords),
		epoch:   1,
		opsByID: make(map[string]int),
	}
	h.base = h.epoch << spaceShift
	for i := range h.atoms {
		h.atoms[i] = uint64(value.MakeHeader(0, value.Tag(i), value.ColorWhite))
	}
	h.registerBuiltinOps()
	return h
}

// Config returns the effective configuration.
func (h *Heap) Config() Config { return h.cfg }

// AddScanner registers a root source. Scanners are visited in registration order.
func (h *Heap) AddScanner(s RootScanner) {
	h.scanners = append(h.scanners, s)
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	s.LiveWords = h.top
	s.Capacity = len(h.words)
	return s
}

// Atom returns the static zero-sized block for tag.
func (h *Heap) Atom(tag value.Tag) value.Raw {
	return value.Raw(staticBase + (uint64(tag)+1)*wordSize)
}

// Alloc returns a fresh block of size fields with the given tag. Fields of
// scannable blocks start as value.Unit, others as zero bits.
//
// Alloc may collect. Every raw value the caller still needs must be rooted
// before the call.
func (h *Heap) Alloc(size int, tag value.Tag) (value.Raw, error) {
	if size < 0 || size > value.MaxSize {
		return 0, errors.AllocationFailed(errors.PhaseHeap, size, "invalid block size")
	}
	if size == 0 {
		return h.Atom(tag), nil
	}
	if err := h.reserve(size + 1); err != nil {
		return 0, err
	}

	i := h.top + 1
	h.words[h.top] = uint64(value.MakeHeader(size, tag, value.ColorWhite))
	var fill uint64
	if tag.Scannable() {
		fill = uint64(value.Unit)
	}
	for j := i; j < i+size; j++ {
		h.words[j] = fill
	}
	h.top += size + 1
	h.stats.AllocatedWords += uint64(size + 1)
	return h.addr(i), nil
}

func (h *Heap) reserve(need int) error {
	h.stats.Allocations++
	due := h.cfg.Stress ||
		(h.cfg.CollectEvery > 0 && h.stats.Allocations%uint64(h.cfg.CollectEvery) == 0)
	if due || h.top+need > len(h.words) {
		return h.collect(need)
	}
	return nil
}

// Collect runs a full collection.
func (h *Heap) Collect() error {
	return h.collect(0)
}

func (h *Heap) collect(need int) error {
	from, fromBase, fromTop := h.words, h.base, h.top

	capacity := max(h.cfg.InitialWords, h.nextCap, fromTop+need)
	if capacity > h.cfg.MaxWords {
		capacity = max(h.cfg.MaxWords, fromTop)
	}
	to := make([]uint64, capacity)
	h.epoch++
	toBase := h.epoch << spaceShift

	free := 0
	var moved uint64
	forward := func(v value.Raw) value.Raw {
		i, ok := indexIn(v, fromBase, fromTop)
		if !ok {
			return v
		}
		hd := value.Header(from[i-1])
		if hd.Color() == forwarded {
			return value.Raw(from[i])
		}
		n := hd.Size()
		to[free] = uint64(hd.WithColor(value.ColorWhite))
		copy(to[free+1:free+1+n], from[i:i+n])
		nv := value.Raw(toBase + uint64(free+1)*wordSize)
		free += n + 1
		moved += uint64(n + 1)
		from[i-1] = uint64(hd.WithColor(forwarded))
		from[i] = uint64(nv)
		return nv
	}

	visit := func(p *value.Raw) { *p = forward(*p) }
	for _, s := range h.scanners {
		s.ScanRoots(visit)
	}

	for scan := 0; scan < free; {
		hd := value.Header(to[scan])
		n := hd.Size()
		if hd.Tag().Scannable() {
			for j := scan + 1; j <= scan+n; j++ {
				to[j] = uint64(forward(value.Raw(to[j])))
			}
		}
		scan += n + 1
	}

	finalized := h.finalizeDead(from, fromTop)

	h.words, h.base, h.top = to, toBase, free
	h.nextCap = 0
	if free*2 > capacity {
		h.nextCap = min(capacity*2, h.cfg.MaxWords)
	}
	h.stats.Collections++
	h.stats.MovedWords += moved

	Logger().Debug("heap collected",
		zap.Uint64("epoch", h.epoch),
		zap.Int("live_words", free),
		zap.Int("capacity", capacity),
		zap.Int("finalized", finalized),
	)

	if free+need > capacity {
		return errors.AllocationFailed(errors.PhaseHeap, need, "heap limit reached")
	}
	return nil
}

func (h *Heap) finalizeDead(from []uint64, fromTop int) int {
	count := 0
	for i := 0; i < fromTop; {
		hd := value.Header(from[i])
		n := hd.Size()
		if hd.Color() != forwarded && hd.Tag() == value.TagCustom && n > 0 {
			h.finalize(from[i+1 : i+1+n])
			count++
		}
		i += n + 1
	}
	h.stats.Finalized += uint64(count)
	return count
}

func indexIn(v value.Raw, base uint64, top int) (int, bool) {
	a := uint64(v)
	if a&1 != 0 || a < base+wordSize {
		return 0, false
	}
	off := a - base
	if off%wordSize != 0 {
		return 0, false
	}
	i := off / wordSize
	if i >= uint64(top) {
		return 0, false
	}
	return int(i), true
}

func (h *Heap) addr(i int) value.Raw {
	return value.Raw(h.base + uint64(i)*wordSize)
}

func isAtom(v value.Raw) bool {
	a := uint64(v)
	return a > staticBase && a <= staticBase+256*wordSize && (a-staticBase)%wordSize == 0
}

// Contains reports whether v is a live block of this heap.
func (h *Heap) Contains(v value.Raw) bool {
	if !v.IsBlock() {
		return false
	}
	if isAtom(v) {
		return true
	}
	_, ok := indexIn(v, h.base, h.top)
	return ok
}

// index resolves a block to the index of its first field. Non-blocks and
// stale addresses are fatal.
func (h *Heap) index(v value.Raw) int {
	i, ok := indexIn(v, h.base, h.top)
	if !ok {
		panic(errors.New(errors.PhaseHeap, errors.KindStale).
			Value(v).
			Detail("%v is not a live heap block", v).
			Build())
	}
	return i
}

// Header returns the header of block v.
func (h *Heap) Header(v value.Raw) value.Header {
	if isAtom(v) {
		return value.Header(h.atoms[(uint64(v)-staticBase)/wordSize-1])
	}
	return value.Header(h.words[h.index(v)-1])
}

// Tag returns the tag of block v.
func (h *Heap) Tag(v value.Raw) value.Tag { return h.Header(v).Tag() }

// Size returns the field count of block v.
func (h *Heap) Size(v value.Raw) int { return h.Header(v).Size() }

func (h *Heap) fieldIndex(v value.Raw, i int, scanned bool) int {
	hd := h.Header(v)
	if scanned && !hd.Tag().Scannable() {
		panic(errors.New(errors.PhaseHeap, errors.KindShape).
			Value(v).
			Detail("field access on non-scannable block with tag %v", hd.Tag()).
			Build())
	}
	if h.cfg.Debug || hd.Size() == 0 {
		if i < 0 || i >= hd.Size() {
			panic(errors.OutOfBounds(errors.PhaseHeap, nil, i, hd.Size()))
		}
	}
	return h.index(v) + i
}

// Field reads field i of a scannable block.
func (h *Heap) Field(v value.Raw, i int) value.Raw {
	return value.Raw(h.words[h.fieldIndex(v, i, true)])
}

// SetField writes field i of a scannable block.
func (h *Heap) SetField(v value.Raw, i int, x value.Raw) {
	h.words[h.fieldIndex(v, i, true)] = uint64(x)
}

// RawField reads field i of any block as raw bits.
func (h *Heap) RawField(v value.Raw, i int) uint64 {
	return h.words[h.fieldIndex(v, i, false)]
}

// SetRawField writes raw bits into a non-scannable block.
func (h *Heap) SetRawField(v value.Raw, i int, w uint64) {
	if h.Tag(v).Scannable() {
		panic(errors.New(errors.PhaseHeap, errors.KindShape).
			Value(v).
			Detail("raw write into scannable block").
			Build())
	}
	h.words[h.fieldIndex(v, i, false)] = w
}
