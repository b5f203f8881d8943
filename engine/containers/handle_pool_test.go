package containers

import (
	"sync"
	"testing"
)

func TestHandlePoolMonotonicFromZero(t *testing.T) {
	p := NewHandlePool[uint32]()
	for want := uint32(0); want < 5; want++ {
		if got := p.Allocate(); got != want {
			t.Fatalf("Allocate() = %d, want %d", got, want)
		}
	}
}

func TestHandlePoolRecycleLowestFirst(t *testing.T) {
	p := NewHandlePool[uint32]()
	for i := 0; i < 6; i++ {
		p.Allocate()
	}
	p.Recycle(4)
	p.Recycle(1)
	p.Recycle(3)

	for _, want := range []uint32{1, 3, 4, 6} {
		if got := p.Allocate(); got != want {
			t.Fatalf("Allocate() = %d, want %d", got, want)
		}
	}
}

// Mirrors the documented id lifecycle: 0, 1, delete 0, then 0 again, then 2.
func TestHandlePoolReuseScenario(t *testing.T) {
	p := NewHandlePool[uint32]()
	h1 := p.Allocate()
	h2 := p.Allocate()
	if h1 != 0 || h2 != 1 {
		t.Fatalf("initial handles = %d, %d, want 0, 1", h1, h2)
	}
	p.Recycle(h1)
	if h3 := p.Allocate(); h3 != 0 {
		t.Fatalf("handle after recycle = %d, want 0", h3)
	}
	if h4 := p.Allocate(); h4 != 2 {
		t.Fatalf("next fresh handle = %d, want 2", h4)
	}
}

func TestHandlePoolDoubleRecycleIgnored(t *testing.T) {
	p := NewHandlePool[uint32]()
	p.Allocate()
	p.Allocate()
	p.Recycle(0)
	p.Recycle(0)

	a := p.Allocate()
	b := p.Allocate()
	if a == b {
		t.Fatalf("double recycle produced duplicate live handle %d", a)
	}
}

func TestHandlePoolNeverIssuedRecycleIgnored(t *testing.T) {
	p := NewHandlePool[uint32]()
	p.Recycle(12)
	if got := p.Allocate(); got != 0 {
		t.Fatalf("Allocate() = %d, want 0", got)
	}
}

func TestHandlePoolNoDuplicatesUnderConcurrency(t *testing.T) {
	p := NewHandlePool[uint32]()

	const workers = 8
	const perWorker = 200

	var mu sync.Mutex
	live := make(map[uint32]int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]uint32, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				h := p.Allocate()
				mu.Lock()
				live[h]++
				if live[h] > 1 {
					mu.Unlock()
					t.Errorf("handle %d issued while live", h)
					return
				}
				mu.Unlock()
				local = append(local, h)

				// Recycle roughly half to force pool reuse.
				if i%2 == 0 {
					victim := local[len(local)-1]
					local = local[:len(local)-1]
					mu.Lock()
					live[victim]--
					mu.Unlock()
					p.Recycle(victim)
				}
			}
		}()
	}
	wg.Wait()
}
