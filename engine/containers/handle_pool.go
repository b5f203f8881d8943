package containers

import (
	"sort"
	"sync"

	"golang.org/x/exp/constraints"
)

// HandlePool issues dense integer handles starting at zero. Recycled
// handles are handed out again lowest-first before the monotonic counter
// grows. Safe for concurrent use: handles may be generated off the render
// thread while deletions recycle on it.
type HandlePool[T constraints.Unsigned] struct {
	mu       sync.Mutex
	next     T
	recycled []T // kept sorted ascending
}

func NewHandlePool[T constraints.Unsigned]() *HandlePool[T] {
	return &HandlePool[T]{}
}

// Allocate returns the lowest previously recycled handle if any exist,
// otherwise the next never-used value. Allocation never fails.
func (p *HandlePool[T]) Allocate() T {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.recycled) > 0 {
		h := p.recycled[0]
		p.recycled = p.recycled[1:]
		return h
	}
	h := p.next
	p.next++
	return h
}

// Recycle returns a handle to the reuse pool. Handles never issued by this
// pool and handles already pooled are ignored: a double recycle must not
// lead to the same handle being live twice.
func (p *HandlePool[T]) Recycle(handle T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle >= p.next {
		return
	}
	i := sort.Search(len(p.recycled), func(i int) bool { return p.recycled[i] >= handle })
	if i < len(p.recycled) && p.recycled[i] == handle {
		return
	}
	p.recycled = append(p.recycled, 0)
	copy(p.recycled[i+1:], p.recycled[i:])
	p.recycled[i] = handle
}

// Live reports how many issued handles have not been recycled.
func (p *HandlePool[T]) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return int(p.next) - len(p.recycled)
}

// Reset drops all state. Only valid when no issued handle is in use.
func (p *HandlePool[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = 0
	p.recycled = p.recycled[:0]
}
