// Package transcoder converts Go values to foreign values and back.
//
// For every Go type the Compiler builds a procedure pair once and caches it.
// The value layout follows the type's description:
//
//	Go type              Foreign value
//	─────────────────────────────────────────────────────────────
//	int, int8..uint32    immediate integer
//	bool                 immediate 0 / 1
//	int64, uint64        boxed int64 (custom block "_j")
//	int32 `caml:",boxed"` boxed int32 (custom block "_i")
//	float32, float64     boxed float (tag 253)
//	string, []byte       string block (tag 252)
//	[]T                  list: immediate 0 or cells [head; tail]
//	[]T `caml:",array"`  array block, tag 0 (float arrays use tag 254)
//	[N]T                 array block, tag 0
//	*T                   option: immediate 0 or block [value]
//	struct               record block, tag 0, fields in order
//	union interface      see below
//	value.Raw            passed through unchanged
//
// # Unions
//
// Closed unions number constant constructors and constructors with
// arguments with two independent counters in declaration order: constants
// become immediates 0..U-1, the others blocks with tags 0..B-1.
//
// Open unions identify constructors by the hash of their name or tag
// override. A constant constructor is the hash itself. A constructor with
// one argument is the block [hash; argument]; with several arguments the
// second field holds a tuple block of all of them. Layout reports the
// placement of every constructor and is shared with the source generator.
//
// # Rooting
//
// Encoding allocates. Every intermediate result is held in a frame root
// before the next allocation, so encoding is safe under any collection
// schedule. The returned value itself is not rooted.
//
// # Errors
//
// Decode returns an *errors.Error when the foreign value does not have the
// expected shape and never returns a partially built value:
//
//	[decode] shape: foreign type command - command: expected a polymorphic variant
//	[decode] invalid_variant: foreign type shape - discriminant 4 out of range (max 1)
//
// # Thread Safety
//
// Compiler and CompiledType are safe for concurrent use. The Mutator and
// Reader passed to Encode and Decode are not.
package transcoder
