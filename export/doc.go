// Package export makes Go functions callable from the foreign runtime.
//
// Wrap inspects a Go function once and builds the two entry points the
// foreign runtime calls through:
//
//	f, err := export.Wrap(compiler, "greet", func(name string, times int) string {
//	    return strings.Repeat("hello "+name+" ", times)
//	})
//	rt.RegisterPrimitive(f.Primitive())
//
// # Arguments
//
// The optional first parameter *runtime.Handle receives the handle of the
// current call. The remaining parameters are converted by type:
//
//	int, int8..int32, uint..uint32   untagged word, passed through
//	int64, uint64, float32, float64  unboxed word, passed through
//	bool                             tagged false or true
//	value.Raw                        passed through without rooting
//	*root.Root                       fresh handle root, owned by the callee
//	anything else                    decoded through the transcoder
//
// A function without parameters takes a single unit argument.
//
// # Results
//
// Results follow the same table. A function may also return an error as its
// last result. *root.Root results are rejected by Wrap, since a root cannot
// outlive the call that created it.
//
// # Failures
//
// Unless PanicTransparent is given, the body runs inside a recover
// boundary. A panic, or a non-nil error result, raises the Failure
// exception carrying its message. Foreign exceptions raised by the body
// propagate unchanged. An argument that cannot be decoded is fatal.
//
// # Calling Conventions
//
// The native entry takes one word per argument. The generic entry takes
// an array of boxed values and a count; it unboxes scalar arguments, calls
// the native entry and boxes a scalar result. Functions with more than
// runtime.MaxNativeArgs parameters only get the generic entry. In debug
// mode the generic entry checks the count against the declared arity.
//
// # Registry
//
// Registry collects wrapped functions, including every method of a host
// value, and binds them to a runtime. Signatures renders the matching
// foreign external declarations.
package export
