// Package planner holds the single shared snapshot and applies engine
// reducers to it as atomic read-modify-write steps.
package planner

import (
	"errors"
	"sort"
	"sync"

	"github.com/lachiem1/payplan/internal/budget"
)

// Origin tells listeners where a snapshot change came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
	OriginLoad   Origin = "load"
)

// Change is delivered to listeners after every applied update.
type Change struct {
	Snapshot   budget.Snapshot
	Generation uint64
	Origin     Origin
}

// Listener receives changes synchronously, in subscription order and in
// generation order. A listener must not update the store.
type Listener func(Change)

// Reducer derives the next snapshot from the current one.
type Reducer func(budget.Snapshot) (budget.Snapshot, error)

// errUnchanged lets a reducer report that it has nothing to apply.
var errUnchanged = errors.New("unchanged")

// Store serializes updates to the snapshot. Generations only grow: local
// updates add one, and remote snapshots lift the generation to at least
// their own so later local edits always sort after what was seen.
type Store struct {
	mu         sync.RWMutex
	snapshot   budget.Snapshot
	generation uint64
	origin     Origin

	// notifyMu is taken before mu is released so changes reach listeners
	// in the order they were made.
	notifyMu sync.Mutex

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]Listener
}

func NewStore(initial budget.Snapshot) *Store {
	return &Store{
		snapshot: initial,
		origin:   OriginLoad,
		subs:     make(map[int]Listener),
	}
}

// Current returns the latest change without copying the snapshot. Callers
// must treat the snapshot as read-only.
func (s *Store) Current() Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Change{Snapshot: s.snapshot, Generation: s.generation, Origin: s.origin}
}

func (s *Store) Snapshot() budget.Snapshot {
	return s.Current().Snapshot
}

// Apply runs fn against the current snapshot and stores its result. If fn
// fails nothing changes and no listener runs.
func (s *Store) Apply(fn Reducer) (Change, error) {
	s.mu.Lock()
	next, err := fn(s.snapshot)
	if errors.Is(err, errUnchanged) {
		c := Change{Snapshot: s.snapshot, Generation: s.generation, Origin: s.origin}
		s.mu.Unlock()
		return c, nil
	}
	if err != nil {
		s.mu.Unlock()
		return Change{}, err
	}
	s.snapshot = next
	s.generation++
	s.origin = OriginLocal
	c := Change{Snapshot: next, Generation: s.generation, Origin: OriginLocal}
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(c)
	return c, nil
}

// ApplyRemote replaces the snapshot with one received from another device.
// Last write wins at whole-snapshot granularity.
func (s *Store) ApplyRemote(snap budget.Snapshot, generation uint64) Change {
	return s.replace(snap, generation, OriginRemote)
}

// Load replaces the snapshot with one read from persistence at startup.
func (s *Store) Load(snap budget.Snapshot, generation uint64) Change {
	return s.replace(snap, generation, OriginLoad)
}

func (s *Store) replace(snap budget.Snapshot, generation uint64, origin Origin) Change {
	s.mu.Lock()
	s.snapshot = snap
	if generation > s.generation {
		s.generation = generation
	}
	s.origin = origin
	c := Change{Snapshot: snap, Generation: s.generation, Origin: origin}
	s.notifyMu.Lock()
	s.mu.Unlock()

	s.notify(c)
	return c
}

// Subscribe registers l and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = l
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// notify delivers c and releases notifyMu.
func (s *Store) notify(c Change) {
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, s.subs[id])
	}
	s.subMu.Unlock()

	for _, l := range listeners {
		l(c)
	}
}
