// Package codegen emits Go source for the procedure pairs of type
// descriptions, the build-time counterpart of package transcoder.
//
// For every description Generate writes
//
//	func EncodeX(m camlbridge.Mutator, v X) value.Raw
//	func DecodeX(r camlbridge.Reader, raw value.Raw) X
//
// Encoders root every intermediate result in a frame before the next
// allocation. Decoders never allocate and panic with an *errors.Error on a
// value of the wrong shape. Union constructors are placed with
// transcoder.Layout, so generated code and the reflection-based transcoder
// agree on every tag.
//
// With Config.Types set the Go types are declared as well, which is what
// descriptions read from WIT need:
//
//	types, err := describe.FromResolve(res)
//	if err != nil {
//	    return err
//	}
//	src, err := codegen.Generate(codegen.Config{Package: "shapes", Types: true}, types...)
//
// Signatures renders the foreign type declarations of the same
// descriptions.
package codegen
