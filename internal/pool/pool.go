// Package pool is a fixed-capacity table of open sessions keyed by
// database path. Slots are addressed by opaque handles that carry a
// generation counter, so a handle kept past Release no longer resolves.
//
// A Pool is not safe for concurrent use.
package pool

import (
	"fmt"

	"github.com/koustreak/DatAct/internal/errs"
)

// DefaultCapacity is the number of databases that may be open at once.
const DefaultCapacity = 50

// Handle identifies an occupied slot. The zero Handle is never valid.
type Handle struct {
	slot int
	gen  uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string { return fmt.Sprintf("#%d.%d", h.slot, h.gen) }

type entry[T any] struct {
	path  string
	gen   uint32
	used  bool
	value T
}

// Pool maps paths to values of type T.
type Pool[T any] struct {
	slots []entry[T]
	index map[string]int
}

// New returns a pool with room for capacity entries. A capacity below one
// selects DefaultCapacity.
func New[T any](capacity int) *Pool[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Pool[T]{
		slots: make([]entry[T], capacity),
		index: make(map[string]int, capacity),
	}
}

// Acquire claims a slot for path. If path already holds a slot, its handle
// is returned together with a DuplicateOpen error. A full pool returns a
// PoolExhausted error.
func (p *Pool[T]) Acquire(path string) (Handle, error) {
	if i, ok := p.index[path]; ok {
		return p.handle(i), errs.Newf(errs.ErrKindDuplicateOpen, "%s is already open", path)
	}
	for i := range p.slots {
		s := &p.slots[i]
		if s.used {
			continue
		}
		s.used, s.path = true, path
		s.gen++
		if s.gen == 0 {
			s.gen = 1
		}
		p.index[path] = i
		return p.handle(i), nil
	}
	return Handle{}, errs.Newf(errs.ErrKindPoolExhausted, "cannot open %s: all %d slots in use", path, len(p.slots))
}

// Lookup returns the handle holding path.
func (p *Pool[T]) Lookup(path string) (Handle, bool) {
	i, ok := p.index[path]
	if !ok {
		return Handle{}, false
	}
	return p.handle(i), true
}

// Get returns the value stored under h.
func (p *Pool[T]) Get(h Handle) (T, bool) {
	s, ok := p.slot(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.value, true
}

// Set stores v under h. It reports false for a stale handle.
func (p *Pool[T]) Set(h Handle, v T) bool {
	s, ok := p.slot(h)
	if ok {
		s.value = v
	}
	return ok
}

// Path returns the path h was acquired for.
func (p *Pool[T]) Path(h Handle) (string, bool) {
	s, ok := p.slot(h)
	if !ok {
		return "", false
	}
	return s.path, true
}

// Release frees the slot. Releasing a stale handle is a no-op.
func (p *Pool[T]) Release(h Handle) {
	s, ok := p.slot(h)
	if !ok {
		return
	}
	delete(p.index, s.path)
	var zero T
	s.used, s.path, s.value = false, "", zero
}

// Len is the number of occupied slots.
func (p *Pool[T]) Len() int { return len(p.index) }

// Cap is the pool capacity.
func (p *Pool[T]) Cap() int { return len(p.slots) }

// Each calls fn for every occupied slot in slot order.
func (p *Pool[T]) Each(fn func(h Handle, path string, v T)) {
	for i := range p.slots {
		if s := &p.slots[i]; s.used {
			fn(p.handle(i), s.path, s.value)
		}
	}
}

func (p *Pool[T]) handle(i int) Handle {
	return Handle{slot: i, gen: p.slots[i].gen}
}

func (p *Pool[T]) slot(h Handle) (*entry[T], bool) {
	if h.IsZero() || h.slot < 0 || h.slot >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.slot]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return s, true
}
