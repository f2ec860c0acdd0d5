// Package value defines the word-level encoding of foreign runtime values.
//
// Every value is a single machine word (Raw) with two disjoint shapes,
// selected by the low bit:
//
//	immediate   ...nnnnnnn1   signed integer n, decoded by arithmetic shift
//	block       ...pppppp00   address of a heap block (header precedes it)
//
// A block is preceded by a Header word:
//
//	┌──────────────────────────────┬───────┬──────────┐
//	│ size (54 bits, in words)     │ color │ tag (8)  │
//	└──────────────────────────────┴───────┴──────────┘
//
// Tags at or above TagNoScan mark blocks whose fields are raw data and are
// never scanned by the collector (strings, doubles, custom payloads).
//
// The unit value, false, the empty list and None all share the encoding
// OfInt(0). Which one a given word means depends only on the type the
// caller expects; nothing in this package guesses.
//
// Open (polymorphic) variant constructors are identified by a hash of their
// name. PolyTag memoizes the hash per name for the process lifetime.
package value
