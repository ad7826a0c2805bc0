package sim

// IDAllocator hands out sequential integer IDs starting at zero.
// Each Model owns its own allocators, so two models built from the same
// configuration assign identical IDs.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type IDAllocator struct {
	next int
}

// NewIDAllocator creates an allocator whose first ID is 0.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Allocate returns the next ID.
func (a *IDAllocator) Allocate() int {
	id := a.next
	a.next++
	return id
}

// Allocated returns how many IDs have been handed out.
func (a *IDAllocator) Allocated() int {
	return a.next
}
