// Package wasmcode uses exported WebAssembly functions as closure code.
//
// A function qualifies when every parameter and its single result are i64.
// Arguments are passed as raw immediate words, tag bit included, and the
// result must be an immediate as well: WebAssembly code cannot reach the
// foreign heap, so block arguments raise Invalid_argument and an even
// result raises Failure. A trap also raises Failure.
//
//	mod, err := wasmcode.Load(ctx, rt, wasmBytes, nil)
//	if err != nil {
//	    return err
//	}
//	defer mod.Close(ctx)
//
//	h := rt.Acquire()
//	defer h.Release()
//	if err := mod.Register(h, "succ", "succ"); err != nil {
//	    return err
//	}
//	res, err := callout.New(rt, "succ").Call(h, value.OfInt(41))
//
// Functions run with the context passed to Load.
package wasmcode
