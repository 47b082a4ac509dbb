package csi

import (
	"fmt"
	"math"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Ring is a fixed-capacity circular store of Frames for exactly one producer
// and one consumer. The producer owns head, the consumer owns tail; one slot
// is kept as a sentinel gap so a full buffer is distinguishable from an empty
// one without extra state. There are no locks: Write publishes a slot with a
// release store on head, Read observes it with an acquire load, which is the
// ordering Go's sync/atomic provides.
//
// A nil *Ring is the uninitialized state; Write and Read on a nil Ring are
// safe no-ops. The buffer is never resized in place - capacity changes are a
// wholesale replacement performed by the Controller while the producer is
// guaranteed quiescent.
type Ring struct {
	frames []Frame
	size   uint32 // len(frames) == usable capacity + 1

	// head is the next write slot. Mutated only by the producer.
	head atomic.Uint32
	_    cpu.CacheLinePad

	// tail is the next read slot. Mutated only by the consumer.
	tail atomic.Uint32
	_    cpu.CacheLinePad

	// dropped counts frames discarded because the buffer was full.
	// Mutated only by the producer; saturates instead of wrapping.
	dropped atomic.Uint32
}

// NewRing allocates a ring with the given usable capacity in frames.
// Capacity must be within [1, MaxBufferFrames].
func NewRing(capacity int) (*Ring, error) {
	if capacity < 1 || capacity > MaxBufferFrames {
		return nil, fmt.Errorf("%w: capacity %d not in [1, %d]", ErrInvalidConfig, capacity, MaxBufferFrames)
	}
	return &Ring{
		frames: make([]Frame, capacity+1),
		size:   uint32(capacity + 1),
	}, nil
}

// Write copies f into the next slot. Callable from the producer's restricted
// context: it never blocks and never allocates. When the buffer is full the
// incoming frame is discarded and counted (drop-newest); stored frames are
// never evicted. Returns false if the frame was not stored.
func (r *Ring) Write(f *Frame) bool {
	if r == nil {
		// Uninitialized: silently discard, not counted as dropped.
		return false
	}

	head := r.head.Load()
	next := (head + 1) % r.size
	if next == r.tail.Load() {
		r.addDropped()
		return false
	}

	// Copy first, then publish. The release store on head ensures the
	// consumer never observes the index advance before the slot contents.
	r.frames[head] = *f
	r.head.Store(next)
	return true
}

// Read copies the oldest unread frame into out and advances the read index.
// Callable from ordinary context only. Returns false when empty.
func (r *Ring) Read(out *Frame) bool {
	if r == nil {
		return false
	}

	tail := r.tail.Load()
	if r.head.Load() == tail {
		return false
	}

	*out = r.frames[tail]
	r.tail.Store((tail + 1) % r.size)
	return true
}

// Available reports the number of unread frames. The subtraction is done
// branch-wise so it never underflows across index wraparound.
func (r *Ring) Available() int {
	if r == nil {
		return 0
	}
	head := r.head.Load()
	tail := r.tail.Load()
	if head >= tail {
		return int(head - tail)
	}
	return int(r.size - tail + head)
}

// IsEmpty reports whether there are no unread frames.
func (r *Ring) IsEmpty() bool {
	return r == nil || r.head.Load() == r.tail.Load()
}

// IsFull reports whether the next Write would drop.
func (r *Ring) IsFull() bool {
	if r == nil {
		return false
	}
	return (r.head.Load()+1)%r.size == r.tail.Load()
}

// Capacity returns the number of usable slots.
func (r *Ring) Capacity() int {
	if r == nil {
		return 0
	}
	return int(r.size - 1)
}

// Dropped returns the number of frames discarded due to overflow.
func (r *Ring) Dropped() uint32 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// addDropped increments the drop counter, saturating at the maximum.
// Only the producer calls this, so the CAS cannot contend.
func (r *Ring) addDropped() {
	for {
		d := r.dropped.Load()
		if d == math.MaxUint32 {
			return
		}
		if r.dropped.CompareAndSwap(d, d+1) {
			return
		}
	}
}
