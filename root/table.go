package root

import (
	"sync"

	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Handle identifies a slot in a Table. The zero Handle is invalid.
type Handle uint32

// Table is a growable set of handle-addressed root slots.
type Table struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value value.Raw
	valid bool
}

// NewTable creates an empty root table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create roots v and returns its handle.
func (t *Table) Create(v value.Raw) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, errors.New(errors.PhaseRoot, errors.KindNotInitialized).
			Detail("root table closed").
			Build()
	}

	e := entry{value: v, valid: true}

	if len(t.freeList) > 0 {
		handle := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		t.entries[handle-1] = e
		return handle, nil
	}

	t.entries = append(t.entries, e)
	return Handle(len(t.entries)), nil
}

// Get returns the current value of a handle.
func (t *Table) Get(handle Handle) (value.Raw, bool) {
	if handle == 0 {
		return 0, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return 0, false
	}

	e := t.entries[idx]
	if !e.valid {
		return 0, false
	}
	return e.value, true
}

// Modify replaces the value held by a handle.
func (t *Table) Modify(handle Handle, v value.Raw) bool {
	if handle == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return false
	}
	t.entries[idx].value = v
	return true
}

// Release frees a handle. It reports false for unknown or released handles.
func (t *Table) Release(handle Handle) bool {
	if handle == 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(t.entries) {
		return false
	}

	e := &t.entries[idx]
	if !e.valid {
		return false
	}
	e.valid = false
	e.value = 0
	t.freeList = append(t.freeList, handle)
	return true
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for _, e := range t.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// ScanRoots visits every live slot.
func (t *Table) ScanRoots(visit func(*value.Raw)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].valid {
			visit(&t.entries[i].value)
		}
	}
}

// Close releases every handle. Further Create calls fail.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.entries = nil
	t.freeList = nil
	return nil
}
