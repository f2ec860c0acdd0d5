package root

import (
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// Root is an owned handle root. It must be released exactly once; copying
// the pointer does not copy the root.
type Root struct {
	table  *Table
	handle Handle
}

// New roots v and returns the owning Root.
func (t *Table) New(v value.Raw) (*Root, error) {
	h, err := t.Create(v)
	if err != nil {
		return nil, err
	}
	return &Root{table: t, handle: h}, nil
}

// Handle returns the underlying table handle, or 0 once released.
func (r *Root) Handle() Handle {
	if r == nil {
		return 0
	}
	return r.handle
}

// Valid reports whether the root has not been released.
func (r *Root) Valid() bool {
	return r != nil && r.handle != 0
}

// Get returns the rooted value at its current address.
func (r *Root) Get() value.Raw {
	v, ok := r.lookup()
	if !ok {
		panic(released(r))
	}
	return v
}

// Set replaces the rooted value.
func (r *Root) Set(v value.Raw) {
	if !r.Valid() || !r.table.Modify(r.handle, v) {
		panic(released(r))
	}
}

// Release frees the slot. Releasing twice is a no-op.
func (r *Root) Release() {
	if !r.Valid() {
		return
	}
	r.table.Release(r.handle)
	r.handle = 0
}

func (r *Root) lookup() (value.Raw, bool) {
	if !r.Valid() {
		return 0, false
	}
	return r.table.Get(r.handle)
}

func released(r *Root) *errors.Error {
	return errors.New(errors.PhaseRoot, errors.KindStale).
		Value(r.Handle()).
		Detail("use of released root").
		Build()
}
