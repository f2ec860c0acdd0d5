// Package camlbridge exchanges values between Go and a managed runtime with
// a moving garbage collector, using the OCaml value model: tagged integers,
// headered blocks, closures and exceptions.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	camlbridge/          Root package with the Reader and Mutator interfaces
//	├── value/           Raw words, headers, tags and variant hashes
//	├── heap/            Semispace heap with a copying collector
//	├── root/            Handle table and frame roots
//	├── describe/        Type descriptions from Go types or WIT
//	├── transcoder/      Compiled encode/decode pairs driven by reflection
//	├── codegen/         Go source for the same pairs, used by cmd/camlgen
//	├── runtime/         Handles, closures, primitives and exceptions
//	├── export/          Go functions as foreign primitives
//	├── callout/         Calls from Go into named foreign closures
//	├── wasmcode/        Closures whose code is a WebAssembly export
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Convert a Go value and keep it alive across allocations:
//
//	rt, err := runtime.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	h := rt.Acquire()
//	defer h.Release()
//
//	c := transcoder.NewCompiler()
//	raw, err := transcoder.Encode(c, h, Person{Name: "Ada", Age: 36})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p := h.Root(raw)
//	defer p.Release()
//
// # Rooting
//
// Every allocation may move every block. A value.Raw held in a Go variable
// is only valid until the next allocating call; values needed longer must
// live in a frame slot (Mutator.Enter) or a handle root (runtime.Handle.Root).
// Frames are strictly LIFO.
//
// # Exports
//
// Register Go functions as primitives the foreign side can call:
//
//	reg := export.NewRegistry(c)
//	reg.RegisterFunc("add", func(a, b int) int { return a + b })
//	if err := reg.Bind(rt); err != nil {
//	    log.Fatal(err)
//	}
//
// A panic or returned error in an export becomes a Failure exception.
//
// # Thread Safety
//
// A Runtime is used by one goroutine at a time: Acquire blocks until the
// exclusive handle is free. Compilers, registries and callout.Func values are
// safe for concurrent use.
package camlbridge
