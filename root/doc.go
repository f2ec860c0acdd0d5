// Package root keeps foreign values alive and stable across allocations.
//
// Every allocation on the foreign heap may move every block. A raw value that
// must survive an allocating call has to sit in a root slot, which the
// collector rewrites in place when the block moves. This package provides the
// two kinds of root slot.
//
// # Handle Roots
//
// A Table maps integer handles to slots. Handles are valid from creation
// until release and may be stored anywhere, including structs that outlive a
// call:
//
//	r, err := table.New(v)
//	defer r.Release()
//
//	... allocate ...
//
//	v = r.Get() // current address
//
// Handle 0 is never issued. Released handles are recycled.
//
// # Frame Roots
//
// A Chain is a fixed arena of slots shared by nested call frames. A frame
// reserves its capacity on Enter and gives it back on Leave:
//
//	f := chain.Enter(2)
//	defer f.Leave()
//
//	s := f.Push(v)
//	... allocate ...
//	v = f.Get(s)
//
// Frames and slots nest strictly. Leaving a frame that is not the innermost
// or popping a slot that is not the most recent one is a fatal invariant
// violation and panics with an *errors.Error of kind root_order. When a
// foreign exception unwinds frames without running their Leave, the catcher
// restores the chain with Unwind.
//
// # Collection
//
// Table and Chain both implement heap.RootScanner. Register them with the
// heap once; each collection visits every live slot.
//
// # Thread Safety
//
// Table is safe for concurrent use. Chain belongs to the single execution
// context that owns the heap and is NOT safe for concurrent use.
package root
