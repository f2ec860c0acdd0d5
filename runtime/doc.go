// Package runtime ties the foreign heap, its roots and the host-facing
// calling machinery together.
//
// # Quick Start
//
//	rt := runtime.New(runtime.WithDebug())
//	defer rt.Close()
//
//	h := rt.Acquire()
//	defer h.Release()
//
//	s := h.AllocString("hello")
//	r := h.Root(s)
//	defer r.Release()
//
// # Handles
//
// A Handle is the capability to touch the foreign heap. Acquire returns the
// single exclusive handle and blocks while another one is held.
// AcquireShared returns a read-only handle; any allocation through it panics
// with an *errors.Error of kind read_only. Code that already runs under an
// acquired runtime, such as a primitive invoked by the foreign side, gets
// its handle from Recover.
//
// Handle implements camlbridge.Mutator. Allocation failures raise the
// Out_of_memory exception instead of returning an error.
//
// # Exceptions
//
// Foreign exceptions travel through Go code as a panic with a *Raised value.
// Raise, RaiseWith, Failwith and InvalidArg start one; Try stops one and
// turns it into a Result carrying the exception marker:
//
//	res := h.Try(func() value.Raw { return h.Apply(f, x) })
//	if res.IsException() {
//	    err := h.DecodeException(res.Exception())
//	}
//
// # Closures
//
// NewClosure wraps Go code as a foreign closure of a fixed arity. Apply
// supports exact, partial and over-application. Arguments reach the code
// through a frame, so they stay valid across allocations made by the code.
//
// # Primitives
//
// A Primitive is the foreign runtime's view of an external function: a
// native entry taking one word per argument and an optional generic entry
// taking an argument array and a count. Functions with more than
// MaxNativeArgs parameters are only reachable through the generic entry.
// See package export for building primitives from Go functions.
//
// # Thread Safety
//
// Runtime is safe for concurrent use. A Handle must not be shared between
// goroutines.
package runtime
