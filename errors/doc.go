// Package errors provides structured error types for camlbridge.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the field path, the Go and foreign type names, the
// source location of the offending description, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindShape).
//		Path("person", "age").
//		GoType("int").
//		ForeignType("int").
//		Detail("expected an immediate, got a block").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseEncode, path, "string", "int")
//	err := errors.InvalidDescription("pkg.Command.Start", "tag override on a closed union variant")
//
// Decode and heap errors are fatal where they occur: code paths that cannot
// return an error raise them with panic, carrying the same *Error value.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
