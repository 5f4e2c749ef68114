package ring

import (
	"sync"
	"testing"
	"time"
)

func TestFIFOOrdering(t *testing.T) {
	r := New[int](4, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			slot := r.GetToWrite()
			*slot = i
			r.ReturnWrite()
		}
		r.Done()
	}()

	for i := 0; i < 100; i++ {
		slot, ok := r.GetToRead()
		if !ok {
			t.Fatalf("expected item %d, got done early", i)
		}
		if *slot != i {
			t.Fatalf("expected %d, got %d", i, *slot)
		}
		r.ReturnRead()
	}
	wg.Wait()

	if _, ok := r.GetToRead(); ok {
		t.Fatalf("expected drained ring to report done")
	}
}

func TestDoneDrainsRemaining(t *testing.T) {
	r := New[int](8, nil)
	for i := 0; i < 3; i++ {
		slot := r.GetToWrite()
		*slot = i
		r.ReturnWrite()
	}
	r.Done()

	for i := 0; i < 3; i++ {
		slot, ok := r.GetToRead()
		if !ok {
			t.Fatalf("expected drained item %d before done", i)
		}
		if *slot != i {
			t.Fatalf("expected %d got %d", i, *slot)
		}
		r.ReturnRead()
	}
	if _, ok := r.GetToRead(); ok {
		t.Fatalf("expected ring to report done once drained")
	}
}

func TestMinimumCapacity(t *testing.T) {
	r := New[int](1, nil)
	if r.Cap() != 2 {
		t.Fatalf("expected capacity to be clamped to 2, got %d", r.Cap())
	}
	r0 := New[int](0, nil)
	if r0.Cap() != 2 {
		t.Fatalf("expected capacity to be clamped to 2, got %d", r0.Cap())
	}
}

func TestProducerBlocksWhenFull(t *testing.T) {
	r := New[int](2, nil) // a single usable slot (capacity-1 live items)
	slot := r.GetToWrite()
	*slot = 1
	r.ReturnWrite()

	full := make(chan struct{})
	go func() {
		r.GetToWrite() // should block: only one free slot and it's occupied
		close(full)
	}()

	select {
	case <-full:
		t.Fatalf("producer should have blocked on a full ring")
	case <-time.After(50 * time.Millisecond):
	}

	// Drain the one item; this should unblock the pending writer.
	_, ok := r.GetToRead()
	if !ok {
		t.Fatalf("expected an item to read")
	}
	r.ReturnRead()

	select {
	case <-full:
	case <-time.After(time.Second):
		t.Fatalf("producer did not unblock after space freed")
	}
}

func TestInitRunsOnEverySlot(t *testing.T) {
	count := 0
	r := New[int](5, func(slot *int) {
		count++
		*slot = -1
	})
	if count != 5 {
		t.Fatalf("expected init to run once per slot, ran %d times", count)
	}
	_ = r
}
