// Package heap models the foreign runtime's garbage-collected heap.
//
// The heap is word addressed. A block address is the address of its first
// field; the header lives in the word before it. Addresses are multiples of
// eight, so every block address has the block shape (low bit 0).
//
// # Collection
//
// The collector is a Cheney copying collector over two semispaces. Every
// collection moves each live block to a fresh address range, so a raw value
// that was not rooted across an allocation no longer satisfies Contains and
// any attempt to read it through the heap is fatal:
//
//	v, _ := h.Alloc(2, 0)
//	h.Collect()
//	h.Contains(v) // false: v moved and was not rooted
//
// Roots are supplied by RootScanner implementations (see package root). The
// collector rewrites every slot a scanner visits in place.
//
// Collection is triggered when the current space cannot satisfy an
// allocation, every Config.CollectEvery allocations, or before every
// allocation when Config.Stress is set.
//
// # Static atoms
//
// Zero-sized blocks are never allocated in the moving space. Each tag has one
// static atom, returned by Atom and by Alloc(0, tag).
//
// # Thread Safety
//
// A Heap belongs to a single execution context and is NOT safe for
// concurrent use.
package heap
