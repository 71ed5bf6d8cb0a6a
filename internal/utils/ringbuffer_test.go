package utils

import (
	"reflect"
	"sync"
	"testing"
)

func TestRingBufferKeepsInsertionOrder(t *testing.T) {
	t.Parallel()
	ring := NewRingBuffer[int](4)

	ring.Push(1)
	ring.Push(2)
	ring.Push(3)

	if got := ring.Snapshot(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Snapshot: got %v, want [1 2 3]", got)
	}
	if ring.Len() != 3 || ring.Cap() != 4 {
		t.Errorf("Len/Cap: got %d/%d, want 3/4", ring.Len(), ring.Cap())
	}
}

func TestRingBufferEvictsOldest(t *testing.T) {
	t.Parallel()
	ring := NewRingBuffer[int](3)

	evicted := 0
	for i := 1; i <= 7; i++ {
		if ring.Push(i) {
			evicted++
		}
		if ring.Len() > ring.Cap() {
			t.Fatalf("Len %d exceeded capacity %d", ring.Len(), ring.Cap())
		}
	}

	if got := ring.Snapshot(); !reflect.DeepEqual(got, []int{5, 6, 7}) {
		t.Errorf("Snapshot after wrap: got %v, want [5 6 7]", got)
	}
	if evicted != 4 {
		t.Errorf("evicted: got %d, want 4", evicted)
	}
	if ring.Total() != 7 {
		t.Errorf("Total: got %d, want 7", ring.Total())
	}
}

func TestRingBufferLast(t *testing.T) {
	t.Parallel()
	ring := NewRingBuffer[string](5)
	for _, s := range []string{"a", "b", "c", "d"} {
		ring.Push(s)
	}

	if got := ring.Last(2); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("Last(2): got %v", got)
	}
	if got := ring.Last(10); len(got) != 4 {
		t.Errorf("Last(10): got %d elements, want 4", len(got))
	}
}

func TestRingBufferReset(t *testing.T) {
	t.Parallel()
	ring := NewRingBuffer[int](2)
	ring.Push(1)
	ring.Push(2)
	ring.Push(3)
	ring.Reset()

	if ring.Len() != 0 || len(ring.Snapshot()) != 0 {
		t.Errorf("expected empty buffer after Reset")
	}
	if ring.Total() != 3 {
		t.Errorf("Total should survive Reset, got %d", ring.Total())
	}
	ring.Push(9)
	if got := ring.Snapshot(); !reflect.DeepEqual(got, []int{9}) {
		t.Errorf("Snapshot after Reset: got %v", got)
	}
}

func TestRingBufferZeroCapacity(t *testing.T) {
	t.Parallel()
	ring := NewRingBuffer[int](0)
	ring.Push(1)
	ring.Push(2)
	if got := ring.Snapshot(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("Snapshot: got %v, want [2]", got)
	}
}

func TestRingBufferConcurrentPush(t *testing.T) {
	t.Parallel()
	ring := NewRingBuffer[int](50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				ring.Push(i)
				_ = ring.Snapshot()
			}
		}()
	}
	wg.Wait()

	if ring.Len() != 50 {
		t.Errorf("Len: got %d, want 50", ring.Len())
	}
	if ring.Total() != 800 {
		t.Errorf("Total: got %d, want 800", ring.Total())
	}
}
