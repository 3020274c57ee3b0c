// Package registry implements a generic stable-key entity container: a
// small integer Id maps to a slot that can be reserved, committed, and
// erased without ever aliasing a still-live Id, and whose stable
// iteration order survives erasure mid-iteration. One Registry instance
// backs every entity kind in package world.
package registry

import "sort"

// Id is a small integer key into a Registry. Zero is never issued by
// Reserve, so it can double as an "absent" sentinel where convenient.
type Id uint32

type entry[T any] struct {
	slot     *T
	reserved bool
}

// Registry is a stable-key container: Reserve hands out an Id
// immediately, but the slot is invisible to Live/Stable iteration until
// the next Commit. Erase clears the slot but leaves the Id allocated
// (poisoned) until the next Commit frees it for reuse.
type Registry[T any] struct {
	live    map[Id]*T
	pending map[Id]entry[T]
	freeIds []Id
	nextId  Id
}

// New returns an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		live:    make(map[Id]*T),
		pending: make(map[Id]entry[T]),
	}
}

// Reserve allocates an Id and a backing slot for value. The slot is not
// visible via Live or Find until Commit runs. The returned pointer is
// stable for the lifetime of the entity: it never moves, even though the
// outer maps may rehash.
func (r *Registry[T]) Reserve(value T) (Id, *T) {
	var id Id
	if n := len(r.freeIds); n > 0 {
		id = r.freeIds[n-1]
		r.freeIds = r.freeIds[:n-1]
	} else {
		r.nextId++
		id = r.nextId
	}
	slot := new(T)
	*slot = value
	r.pending[id] = entry[T]{slot: slot, reserved: true}
	return id, slot
}

// Commit is the once-per-tick barrier: every reserved
// slot becomes live, and every Id whose slot was erased (cleared to nil) is
// returned to the free list so it can be reissued. No other operation may
// invalidate Live/Stable iterators; this is the only one that may.
func (r *Registry[T]) Commit() {
	for id, e := range r.pending {
		if e.slot == nil {
			delete(r.live, id)
			r.freeIds = append(r.freeIds, id)
		} else {
			r.live[id] = e.slot
		}
	}
	r.pending = make(map[Id]entry[T])
}

// Find returns the live slot for id, or nil if id is absent, not yet
// committed, or erased. A nil return is a legitimate "this entity is
// dead" result, never an error.
func (r *Registry[T]) Find(id Id) *T {
	return r.live[id]
}

// Erase clears id's slot immediately so Find stops returning it, but the Id
// itself remains reserved (poisoned) until the next Commit. A StableEntry
// taken before the Erase keeps its non-nil Slot; handlers iterating with
// Stable detect "this entity died mid-update" through Find(id) == nil.
func (r *Registry[T]) Erase(id Id) {
	if _, ok := r.live[id]; ok {
		delete(r.live, id)
		r.pending[id] = entry[T]{slot: nil}
		return
	}
	// Erasing an id that was reserved this tick but never committed still
	// poisons it until Commit.
	if e, ok := r.pending[id]; ok && e.reserved && e.slot != nil {
		r.pending[id] = entry[T]{slot: nil}
	}
}

// Clear empties the registry entirely (used by World.Reset), dropping
// the free list along with everything else.
func (r *Registry[T]) Clear() {
	r.live = make(map[Id]*T)
	r.pending = make(map[Id]entry[T])
	r.freeIds = nil
	r.nextId = 0
}

// Len reports the number of live entities.
func (r *Registry[T]) Len() int { return len(r.live) }

// sortedIds returns the live ids in ascending order so iteration order is
// identical from run to run; the simulation must stay deterministic and Go
// map order is not.
func (r *Registry[T]) sortedIds() []Id {
	ids := make([]Id, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Live calls fn for every committed, non-erased (Id, *T) pair in ascending
// Id order. fn must not Reserve or Erase during iteration; use Stable for
// that.
func (r *Registry[T]) Live(fn func(Id, *T)) {
	for _, id := range r.sortedIds() {
		fn(id, r.live[id])
	}
}

// StableEntry is one element of a Stable iteration: Slot is the entity's
// pointer when the snapshot was taken. A later Erase does not set it to
// nil.
type StableEntry[T any] struct {
	Id   Id
	Slot *T
}

// Stable returns a snapshot of every currently live (Id, *T) pair safe to
// iterate while erasing: the snapshot is its own slice, so Erase removing
// the id from the live map does not touch it, and a caller holding a
// StableEntry from before an Erase still sees *Slot hold the erased
// entity's terminal (pre-erase) state; callers detect death by re-calling
// Find(id) == nil.
func (r *Registry[T]) Stable() []StableEntry[T] {
	out := make([]StableEntry[T], 0, len(r.live))
	for _, id := range r.sortedIds() {
		out = append(out, StableEntry[T]{Id: id, Slot: r.live[id]})
	}
	return out
}
