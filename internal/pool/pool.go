// Package pool implements deferred reclamation of GPU-resident resources.
//
// A resource cannot be released while a command buffer that is still in
// flight on the GPU refers to it. The GPU gives no completion signal at
// this layer, so a deleted resource is parked on a pending list and
// released only once a fixed number of frames has passed since it was
// last bound.
//
// Slots live in an arena indexed by ID. The pending list and the free
// slot list are singly linked through the arena, so appends are O(1) and
// a sweep is a single pass that keeps survivors in their original order.
package pool

// DefaultSafetyWindow is the number of frames a deleted resource stays
// allocated after its last use.
const DefaultSafetyWindow = 4

// ID identifies a resource in a Pool. The low 32 bits hold the slot index
// plus one, bits 32..62 the slot generation. Bit 63 is always clear, so
// callers may use it to tag IDs. The zero ID is null.
type ID uint64

// genMask bounds slot generations to 31 bits.
const genMask = 1<<31 - 1

// Null is the null resource ID.
const Null ID = 0

const none = -1

type state uint8

const (
	stateFree state = iota
	stateLive
	statePending
)

type slot[T any] struct {
	value    T
	lastUsed uint32
	gen      uint32
	next     int32
	state    state
}

// Config configures a Pool.
type Config[T any] struct {
	// SafetyWindow is the number of frames a pending resource survives
	// after its last use. A resource last used in frame F is released by
	// the sweep of frame F+SafetyWindow. Zero selects DefaultSafetyWindow.
	SafetyWindow uint32

	// Release frees the native storage behind a value. It runs exactly
	// once per inserted value, from Sweep or Drain. May be nil.
	Release func(T)
}

// Pool tracks live resources of one kind and the resources pending
// deletion.
//
// Pool is not safe for concurrent use. It is owned by the frame loop.
type Pool[T any] struct {
	slots   []slot[T]
	free    int32
	head    int32
	tail    int32
	window  uint32
	release func(T)

	live    int
	pending int
}

// New creates an empty pool.
func New[T any](cfg Config[T]) *Pool[T] {
	window := cfg.SafetyWindow
	if window == 0 {
		window = DefaultSafetyWindow
	}
	return &Pool[T]{
		free:    none,
		head:    none,
		tail:    none,
		window:  window,
		release: cfg.Release,
	}
}

// SafetyWindow returns the configured safety window in frames.
func (p *Pool[T]) SafetyWindow() uint32 { return p.window }

// Len returns the number of live resources.
func (p *Pool[T]) Len() int { return p.live }

// Pending returns the number of resources waiting to be released.
func (p *Pool[T]) Pending() int { return p.pending }

// Insert registers v as a live resource last used at frame and returns
// its ID.
func (p *Pool[T]) Insert(v T, frame uint32) ID {
	var idx int32
	if p.free != none {
		idx = p.free
		p.free = p.slots[idx].next
	} else {
		idx = int32(len(p.slots)) //nolint:gosec // G115: slot count bounded by memory
		p.slots = append(p.slots, slot[T]{})
	}

	s := &p.slots[idx]
	s.value = v
	s.lastUsed = frame
	s.next = none
	s.state = stateLive
	p.live++

	return makeID(idx, s.gen)
}

// Get returns the live resource for id. Pending, released and stale IDs
// report false.
func (p *Pool[T]) Get(id ID) (T, bool) {
	s := p.lookup(id, stateLive)
	if s == nil {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Touch stamps the live resource for id as used at frame and returns it.
func (p *Pool[T]) Touch(id ID, frame uint32) (T, bool) {
	s := p.lookup(id, stateLive)
	if s == nil {
		var zero T
		return zero, false
	}
	s.lastUsed = frame
	return s.value, true
}

// LastUsed returns the frame stamp of a live or pending resource.
func (p *Pool[T]) LastUsed(id ID) (uint32, bool) {
	s := p.lookup(id, stateLive)
	if s == nil {
		s = p.lookup(id, statePending)
	}
	if s == nil {
		return 0, false
	}
	return s.lastUsed, true
}

// Unref moves the live resource *id to the pending list and clears *id.
// A null handle is a no-op. Handles that no longer name a live resource
// are cleared and otherwise ignored, so a resource is never queued twice.
// Unref reports whether a resource was queued.
func (p *Pool[T]) Unref(id *ID) bool {
	if id == nil || *id == Null {
		return false
	}
	handle := *id
	*id = Null

	s := p.lookup(handle, stateLive)
	if s == nil {
		return false
	}
	s.state = statePending
	s.next = none
	p.live--
	p.pending++

	idx := handle.index()
	if p.tail == none {
		p.head = idx
	} else {
		p.slots[p.tail].next = idx
	}
	p.tail = idx
	return true
}

// Sweep releases every pending resource last used at least the safety
// window before frame, and returns how many were released.
// Survivors keep their relative order.
func (p *Pool[T]) Sweep(frame uint32) int {
	if p.head == none {
		return 0
	}

	freed := 0
	prev := int32(none)
	for cur := p.head; cur != none; {
		s := &p.slots[cur]
		next := s.next

		if frame-s.lastUsed < p.window {
			prev = cur
			cur = next
			continue
		}

		if p.head == cur {
			p.head = next
		}
		if p.tail == cur {
			p.tail = prev
		}
		if prev != none {
			p.slots[prev].next = next
		}

		p.pending--
		p.releaseSlot(cur)
		freed++
		cur = next
	}
	return freed
}

// Drain releases every live and pending resource immediately. Use it when
// the GPU context is lost or torn down and nothing can be in flight.
// Drain returns the number of resources released.
func (p *Pool[T]) Drain() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].state != stateFree {
			p.releaseSlot(int32(i)) //nolint:gosec // G115: slot count bounded by memory
			n++
		}
	}
	p.head, p.tail = none, none
	p.live, p.pending = 0, 0
	return n
}

// PendingIDs returns the IDs on the pending list, head first.
func (p *Pool[T]) PendingIDs() []ID {
	ids := make([]ID, 0, p.pending)
	for cur := p.head; cur != none; cur = p.slots[cur].next {
		ids = append(ids, makeID(cur, p.slots[cur].gen))
	}
	return ids
}

// Each calls fn for every live resource, in slot order.
func (p *Pool[T]) Each(fn func(ID, T)) {
	for i := range p.slots {
		s := &p.slots[i]
		if s.state == stateLive {
			fn(makeID(int32(i), s.gen), s.value) //nolint:gosec // G115: slot count bounded by memory
		}
	}
}

func (p *Pool[T]) lookup(id ID, want state) *slot[T] {
	if id == Null {
		return nil
	}
	idx := id.index()
	if idx < 0 || int(idx) >= len(p.slots) {
		return nil
	}
	s := &p.slots[idx]
	if s.gen != id.gen() || s.state != want {
		return nil
	}
	return s
}

// releaseSlot frees the slot's value and recycles the slot. The slot must
// already be unlinked from the pending list.
func (p *Pool[T]) releaseSlot(idx int32) {
	s := &p.slots[idx]
	if p.release != nil {
		p.release(s.value)
	}
	var zero T
	s.value = zero
	s.state = stateFree
	s.gen = (s.gen + 1) & genMask
	s.next = p.free
	p.free = idx
}

func makeID(idx int32, gen uint32) ID {
	return ID(uint64(gen)<<32 | uint64(uint32(idx)+1)) //nolint:gosec // G115: idx is non-negative
}

func (id ID) index() int32 { return int32(uint32(id)) - 1 } //nolint:gosec // G115: encoded from int32

func (id ID) gen() uint32 { return uint32(id >> 32) }
