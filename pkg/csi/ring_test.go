package csi

import (
	"testing"
)

// testFrame builds a frame whose payload and metadata encode seq, so FIFO
// order and byte-for-byte integrity can be checked on the way out.
func testFrame(seq int) Frame {
	var f Frame
	f.RSSI = int8(-30 - seq%50)
	f.Channel = uint8(1 + seq%13)
	f.Len = 8
	for i := 0; i < int(f.Len); i++ {
		f.Data[i] = int8(seq + i)
	}
	f.LocalTimestamp = uint32(seq)
	return f
}

func framesEqual(a, b *Frame) bool {
	if a.RSSI != b.RSSI || a.Channel != b.Channel || a.Len != b.Len || a.LocalTimestamp != b.LocalTimestamp {
		return false
	}
	for i := 0; i < int(a.Len); i++ {
		if a.Data[i] != b.Data[i] {
			return false
		}
	}
	return true
}

func TestNewRing_Bounds(t *testing.T) {
	for _, capacity := range []int{0, -1, MaxBufferFrames + 1} {
		if _, err := NewRing(capacity); err == nil {
			t.Errorf("NewRing(%d): expected error", capacity)
		}
	}
	for _, capacity := range []int{1, 2, DefaultBufferFrames, MaxBufferFrames} {
		r, err := NewRing(capacity)
		if err != nil {
			t.Fatalf("NewRing(%d): %v", capacity, err)
		}
		if r.Capacity() != capacity {
			t.Errorf("Capacity: got %d, want %d", r.Capacity(), capacity)
		}
	}
}

func TestRing_FreshState(t *testing.T) {
	for _, capacity := range []int{1, 3, 64} {
		r, err := NewRing(capacity)
		if err != nil {
			t.Fatalf("NewRing(%d): %v", capacity, err)
		}
		if !r.IsEmpty() {
			t.Errorf("capacity %d: fresh ring not empty", capacity)
		}
		if r.IsFull() {
			t.Errorf("capacity %d: fresh ring reports full", capacity)
		}
		if r.Available() != 0 {
			t.Errorf("capacity %d: Available = %d, want 0", capacity, r.Available())
		}
		if r.Dropped() != 0 {
			t.Errorf("capacity %d: Dropped = %d, want 0", capacity, r.Dropped())
		}
	}
}

func TestRing_FIFORoundTrip(t *testing.T) {
	const capacity = 16
	r, err := NewRing(capacity)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < capacity; i++ {
		f := testFrame(i)
		if !r.Write(&f) {
			t.Fatalf("Write %d failed on non-full ring", i)
		}
	}
	if r.Available() != capacity {
		t.Fatalf("Available = %d, want %d", r.Available(), capacity)
	}

	for i := 0; i < capacity; i++ {
		var got Frame
		if !r.Read(&got) {
			t.Fatalf("Read %d failed on non-empty ring", i)
		}
		want := testFrame(i)
		if !framesEqual(&got, &want) {
			t.Fatalf("frame %d differs after round trip", i)
		}
	}

	if !r.IsEmpty() {
		t.Error("ring not empty after draining")
	}
	if r.Dropped() != 0 {
		t.Errorf("Dropped = %d, want 0", r.Dropped())
	}
}

func TestRing_DropNewest(t *testing.T) {
	const capacity = 3
	r, err := NewRing(capacity)
	if err != nil {
		t.Fatal(err)
	}

	// capacity+1 writes into capacity usable slots: exactly one drop.
	for i := 0; i < capacity+1; i++ {
		f := testFrame(i)
		r.Write(&f)
	}

	if r.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", r.Dropped())
	}
	if r.Available() != capacity {
		t.Fatalf("Available = %d, want %d", r.Available(), capacity)
	}

	// The survivors are the oldest frames; the newest was discarded.
	for i := 0; i < capacity; i++ {
		var got Frame
		if !r.Read(&got) {
			t.Fatalf("Read %d failed", i)
		}
		want := testFrame(i)
		if !framesEqual(&got, &want) {
			t.Fatalf("frame %d: drop-newest violated, got seq %d", i, got.LocalTimestamp)
		}
	}
}

func TestRing_ConcreteScenario(t *testing.T) {
	// Capacity 3 (allocated 4 slots): write A,B,C, then D drops.
	r, err := NewRing(3)
	if err != nil {
		t.Fatal(err)
	}

	a, b, c, d := testFrame(0), testFrame(1), testFrame(2), testFrame(3)
	for i, f := range []*Frame{&a, &b, &c} {
		if !r.Write(f) {
			t.Fatalf("write %d failed", i)
		}
		if r.Dropped() != 0 {
			t.Fatalf("dropped after write %d: %d", i, r.Dropped())
		}
	}

	if r.Write(&d) {
		t.Fatal("write D succeeded on full ring")
	}
	if r.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", r.Dropped())
	}

	var got Frame
	if !r.Read(&got) || !framesEqual(&got, &a) {
		t.Fatal("first read did not return A")
	}
	if r.Available() != 2 {
		t.Fatalf("Available = %d, want 2", r.Available())
	}
	if !r.Read(&got) || !framesEqual(&got, &b) {
		t.Fatal("second read did not return B")
	}
	if !r.Read(&got) || !framesEqual(&got, &c) {
		t.Fatal("third read did not return C")
	}
	if r.Read(&got) {
		t.Fatal("read on empty ring returned data")
	}
}

func TestRing_AvailableAcrossWraparound(t *testing.T) {
	const capacity = 4
	r, err := NewRing(capacity)
	if err != nil {
		t.Fatal(err)
	}

	// Write and read one frame at a time past the wrap point. Available
	// must alternate 1/0 and never underflow.
	for i := 0; i < capacity+5; i++ {
		f := testFrame(i)
		if !r.Write(&f) {
			t.Fatalf("write %d failed", i)
		}
		if got := r.Available(); got != 1 {
			t.Fatalf("step %d: Available after write = %d, want 1", i, got)
		}

		var out Frame
		if !r.Read(&out) {
			t.Fatalf("read %d failed", i)
		}
		if got := r.Available(); got != 0 {
			t.Fatalf("step %d: Available after read = %d, want 0", i, got)
		}
		if !framesEqual(&out, &f) {
			t.Fatalf("step %d: frame corrupted across wraparound", i)
		}
	}
}

func TestRing_CapacityOne(t *testing.T) {
	r, err := NewRing(1)
	if err != nil {
		t.Fatal(err)
	}

	f := testFrame(7)
	if !r.Write(&f) {
		t.Fatal("write failed on empty capacity-1 ring")
	}
	if !r.IsFull() {
		t.Error("capacity-1 ring not full after one write")
	}

	g := testFrame(8)
	if r.Write(&g) {
		t.Error("second write succeeded on full capacity-1 ring")
	}
	if r.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", r.Dropped())
	}

	var out Frame
	if !r.Read(&out) || !framesEqual(&out, &f) {
		t.Fatal("read did not return the stored frame")
	}
}

func TestRing_NilIsUninitialized(t *testing.T) {
	var r *Ring

	f := testFrame(0)
	if r.Write(&f) {
		t.Error("write on nil ring succeeded")
	}
	if r.Read(&f) {
		t.Error("read on nil ring succeeded")
	}
	if r.Dropped() != 0 {
		t.Error("nil-ring discard counted as dropped")
	}
	if r.Available() != 0 || !r.IsEmpty() || r.IsFull() || r.Capacity() != 0 {
		t.Error("nil ring predicates wrong")
	}
}

// TestRing_SingleProducerSingleConsumer runs a writer goroutine against a
// reader in the test goroutine and checks that every frame that was not
// dropped comes out in order and intact.
func TestRing_SingleProducerSingleConsumer(t *testing.T) {
	const (
		capacity = 8
		total    = 10000
	)
	r, err := NewRing(capacity)
	if err != nil {
		t.Fatal(err)
	}

	written := make(chan int, 1)
	go func() {
		n := 0
		for i := 0; i < total; i++ {
			f := testFrame(i)
			if r.Write(&f) {
				n++
			}
		}
		written <- n
	}()

	var lastSeq int64 = -1
	read := 0
	for {
		var f Frame
		if !r.Read(&f) {
			select {
			case n := <-written:
				// Producer finished; drain what is left.
				for r.Read(&f) {
					if int64(f.LocalTimestamp) <= lastSeq {
						t.Fatalf("out-of-order frame %d after %d", f.LocalTimestamp, lastSeq)
					}
					lastSeq = int64(f.LocalTimestamp)
					read++
				}
				if read != n {
					t.Fatalf("read %d frames, producer stored %d", read, n)
				}
				if uint32(total-n) != r.Dropped() {
					t.Fatalf("dropped %d, want %d", r.Dropped(), total-n)
				}
				return
			default:
				continue
			}
		}

		seq := int64(f.LocalTimestamp)
		if seq <= lastSeq {
			t.Fatalf("out-of-order frame %d after %d", seq, lastSeq)
		}
		want := testFrame(int(seq))
		if !framesEqual(&f, &want) {
			t.Fatalf("frame %d corrupted", seq)
		}
		lastSeq = seq
		read++
	}
}
