package root

import (
	"github.com/wippyai/camlbridge/errors"
	"github.com/wippyai/camlbridge/value"
)

// DefaultChainSlots is the arena size used when NewChain is given zero.
const DefaultChainSlots = 4096

// Slot addresses one frame root. It is only meaningful to the frame that
// issued it.
type Slot int

// Chain is the arena of frame roots for one execution context.
type Chain struct {
	slots  []value.Raw
	frames []*Frame
	used   int
}

// Frame is one call frame's reservation in a Chain.
type Frame struct {
	chain *Chain
	depth int
	base  int
	limit int
	top   int
	left  bool
}

// NewChain creates a chain with room for capacity slots across all frames.
func NewChain(capacity int) *Chain {
	if capacity <= 0 {
		capacity = DefaultChainSlots
	}
	return &Chain{slots: make([]value.Raw, capacity)}
}

// Depth returns the number of open frames.
func (c *Chain) Depth() int { return len(c.frames) }

// Used returns the number of reserved slots.
func (c *Chain) Used() int { return c.used }

// Capacity returns the arena size.
func (c *Chain) Capacity() int { return len(c.slots) }

// Enter opens a frame with room for n slots.
func (c *Chain) Enter(n int) *Frame {
	if n < 0 || c.used+n > len(c.slots) {
		panic(errors.New(errors.PhaseRoot, errors.KindAllocation).
			Detail("root chain exhausted: %d of %d slots in use, frame wants %d", c.used, len(c.slots), n).
			Build())
	}
	f := &Frame{
		chain: c,
		depth: len(c.frames),
		base:  c.used,
		limit: c.used + n,
		top:   c.used,
	}
	c.used = f.limit
	c.frames = append(c.frames, f)
	return f
}

// Unwind closes every frame above depth. It is used after a foreign
// exception skipped the Leave calls of the frames it unwound.
func (c *Chain) Unwind(depth int) {
	if depth < 0 || depth > len(c.frames) {
		panic(errors.RootOrder("unwind to depth %d with %d frames open", depth, len(c.frames)))
	}
	for len(c.frames) > depth {
		c.frames[len(c.frames)-1].close()
	}
}

// ScanRoots visits every pushed slot of every open frame.
func (c *Chain) ScanRoots(visit func(*value.Raw)) {
	for _, f := range c.frames {
		for i := f.base; i < f.top; i++ {
			visit(&c.slots[i])
		}
	}
}

// Push roots v in the next free slot.
func (f *Frame) Push(v value.Raw) Slot {
	f.checkOpen()
	if f.top == f.limit {
		panic(errors.New(errors.PhaseRoot, errors.KindOutOfBounds).
			Detail("frame of %d slots is full", f.limit-f.base).
			Build())
	}
	f.chain.slots[f.top] = v
	f.top++
	return Slot(f.top - 1 - f.base)
}

// Get returns the current value of slot s.
func (f *Frame) Get(s Slot) value.Raw {
	return f.chain.slots[f.slot(s)]
}

// Set replaces the value held by slot s.
func (f *Frame) Set(s Slot, v value.Raw) {
	f.chain.slots[f.slot(s)] = v
}

// Len returns the number of pushed slots.
func (f *Frame) Len() int { return f.top - f.base }

// Slots returns the pushed slots. The slice aliases the arena, so the
// collector's updates are visible through it until the frame is left.
func (f *Frame) Slots() []value.Raw {
	f.checkOpen()
	return f.chain.slots[f.base:f.top:f.top]
}

// Pop releases slot s, which must be the most recently pushed one.
func (f *Frame) Pop(s Slot) {
	f.checkOpen()
	if int(s) != f.top-f.base-1 {
		panic(errors.RootOrder("pop of slot %d, most recent slot is %d", s, f.top-f.base-1))
	}
	f.top--
	f.chain.slots[f.top] = 0
}

// Leave closes the frame, which must be the innermost open frame.
func (f *Frame) Leave() {
	f.checkOpen()
	c := f.chain
	if f.depth != len(c.frames)-1 {
		panic(errors.RootOrder("leave of frame %d while %d frames are open", f.depth, len(c.frames)))
	}
	f.close()
}

func (f *Frame) close() {
	c := f.chain
	clear(c.slots[f.base:f.limit])
	c.used = f.base
	c.frames = c.frames[:f.depth]
	f.left = true
}

func (f *Frame) checkOpen() {
	if f.left {
		panic(errors.RootOrder("use of frame %d after leave", f.depth))
	}
}

func (f *Frame) slot(s Slot) int {
	f.checkOpen()
	i := f.base + int(s)
	if s < 0 || i >= f.top {
		panic(errors.New(errors.PhaseRoot, errors.KindOutOfBounds).
			Detail("slot %d not pushed in frame of %d", s, f.top-f.base).
			Build())
	}
	return i
}
