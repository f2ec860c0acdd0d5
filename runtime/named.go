package runtime

import (
	"github.com/wippyai/camlbridge/root"
	"github.com/wippyai/camlbridge/value"
)

// Register binds name to v. Rebinding a name updates the existing root, so
// holders of NamedRoot see the new value.
func (h *Handle) Register(name string, v value.Raw) {
	h.rt.checkOpen()
	h.rt.regMu.Lock()
	defer h.rt.regMu.Unlock()
	if r, ok := h.rt.named[name]; ok {
		r.Set(v)
		return
	}
	h.rt.named[name] = h.Root(v)
}

// Unregister removes a named value and releases its root.
func (h *Handle) Unregister(name string) {
	h.rt.regMu.Lock()
	defer h.rt.regMu.Unlock()
	if r, ok := h.rt.named[name]; ok {
		r.Release()
		delete(h.rt.named, name)
	}
}

// Named returns the value bound to name.
func (h *Handle) Named(name string) (value.Raw, bool) {
	r, ok := h.rt.NamedRoot(name)
	if !ok || !r.Valid() {
		return 0, false
	}
	return r.Get(), true
}

// NamedRoot returns the root holding a named value. The runtime owns it.
func (rt *Runtime) NamedRoot(name string) (*root.Root, bool) {
	rt.regMu.RLock()
	defer rt.regMu.RUnlock()
	r, ok := rt.named[name]
	return r, ok
}
