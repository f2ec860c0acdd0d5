// Package callout calls foreign closures from Go.
//
// A closure is published on the foreign side under a name with
// runtime.Handle.Register. New returns a Func for that name; the name is
// looked up on first use and the root is cached, so later calls cost one
// root read:
//
//	area := callout.New(rt, "shape_area")
//
//	h := rt.Acquire()
//	defer h.Release()
//	res, err := area.Call(h, shape)
//	if err != nil {
//	    return err // no closure registered as "shape_area"
//	}
//	if res.IsException() {
//	    return h.DecodeException(res.Exception())
//	}
//	fmt.Println(h.DoubleOf(res.Value()))
//
// # Results
//
// Call, Call2, Call3 and CallN return a runtime.Result. A result either holds
// the closure's value or the exception it raised; the two are told apart by
// the exception bit of the raw word. The value is not rooted: root it before
// the next allocation if it is still needed.
//
// Invoke converts Go arguments and the result with the transcoder and
// reports a foreign exception as a *runtime.Exception error.
//
// # Arity
//
// The argument count is not checked against the closure's arity. Fewer
// arguments build a partial application, more apply the result to the rest.
package callout
