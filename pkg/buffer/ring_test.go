package buffer

import (
	"sync"
	"testing"
	"time"
)

func TestRing_WriteRead(t *testing.T) {
	b := NewRing[int](4)

	for i := 1; i <= 3; i++ {
		if err := b.Write(i); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}

	if b.Size() != 3 {
		t.Errorf("expected size 3, got %d", b.Size())
	}

	for i := 1; i <= 3; i++ {
		item, ok := b.Read()
		if !ok || item != i {
			t.Errorf("expected %d, got %d (ok=%t)", i, item, ok)
		}
	}

	if _, ok := b.Read(); ok {
		t.Error("expected empty buffer")
	}
}

func TestRing_DropOldest(t *testing.T) {
	var dropped []int
	b := NewRing[int](2,
		WithOverflowPolicy[int](DropOldest),
		WithDropCallback[int](func(item int) { dropped = append(dropped, item) }),
	)

	_ = b.Write(1)
	_ = b.Write(2)
	_ = b.Write(3) // drops 1

	if len(dropped) != 1 || dropped[0] != 1 {
		t.Errorf("expected drop of 1, got %v", dropped)
	}

	item, _ := b.Read()
	if item != 2 {
		t.Errorf("expected oldest surviving item 2, got %d", item)
	}
	if b.Stats().Drops() != 1 {
		t.Errorf("expected 1 recorded drop, got %d", b.Stats().Drops())
	}
}

func TestRing_DropNewest(t *testing.T) {
	b := NewRing[int](2, WithOverflowPolicy[int](DropNewest))

	_ = b.Write(1)
	_ = b.Write(2)
	_ = b.Write(3) // dropped

	if b.Size() != 2 {
		t.Errorf("expected size 2, got %d", b.Size())
	}
	item, _ := b.Read()
	if item != 1 {
		t.Errorf("expected 1, got %d", item)
	}
}

func TestRing_ReadBatch(t *testing.T) {
	b := NewRing[int](8)
	for i := 1; i <= 5; i++ {
		_ = b.Write(i)
	}

	batch := b.ReadBatch(3)
	if len(batch) != 3 || batch[0] != 1 || batch[2] != 3 {
		t.Errorf("unexpected batch: %v", batch)
	}

	batch = b.ReadBatch(10)
	if len(batch) != 2 {
		t.Errorf("expected remaining 2 items, got %v", batch)
	}

	if batch = b.ReadBatch(3); batch != nil {
		t.Errorf("expected nil batch from empty buffer, got %v", batch)
	}
}

func TestRing_NextBlocksUntilWrite(t *testing.T) {
	b := NewRing[string](4)

	done := make(chan string, 1)
	go func() {
		item, ok := b.Next()
		if !ok {
			done <- ""
			return
		}
		done <- item
	}()

	time.Sleep(10 * time.Millisecond)
	_ = b.Write("hello")

	select {
	case got := <-done:
		if got != "hello" {
			t.Errorf("expected 'hello', got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not return after write")
	}
}

func TestRing_CloseDrainsThenStops(t *testing.T) {
	b := NewRing[int](4)
	_ = b.Write(1)
	_ = b.Write(2)
	_ = b.Close()

	// Pending items remain readable after close
	if item, ok := b.Next(); !ok || item != 1 {
		t.Errorf("expected 1, got %d (ok=%t)", item, ok)
	}
	if item, ok := b.Next(); !ok || item != 2 {
		t.Errorf("expected 2, got %d (ok=%t)", item, ok)
	}

	// Drained and closed: Next returns false
	if _, ok := b.Next(); ok {
		t.Error("expected Next to report closed")
	}

	// Writes after close fail
	if err := b.Write(3); err == nil {
		t.Error("expected write to closed buffer to fail")
	}
}

func TestRing_WrapAround(t *testing.T) {
	b := NewRing[int](3)

	for round := 0; round < 5; round++ {
		for i := 0; i < 3; i++ {
			_ = b.Write(round*10 + i)
		}
		for i := 0; i < 3; i++ {
			item, ok := b.Read()
			if !ok || item != round*10+i {
				t.Fatalf("round %d: expected %d, got %d (ok=%t)", round, round*10+i, item, ok)
			}
		}
	}
}

func TestRing_ConcurrentProducerConsumer(t *testing.T) {
	b := NewRing[int](64, WithOverflowPolicy[int](Block))

	const total = 500
	var consumed int
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, ok := b.Next(); !ok {
				return
			}
			consumed++
		}
	}()

	for i := 0; i < total; i++ {
		if err := b.Write(i); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	// Allow the consumer to drain before closing
	for b.Size() > 0 {
		time.Sleep(time.Millisecond)
	}
	_ = b.Close()
	wg.Wait()

	if consumed != total {
		t.Errorf("expected %d consumed, got %d", total, consumed)
	}
}
