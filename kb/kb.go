// Package kb holds the catalog knowledge base: validated, immutable
// snapshots of the orbital element catalog that runs consume, plus a
// small thread-safe holder the daemon swaps snapshots through.
package kb

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/signalsfoundry/conjunction-engine/model"
)

// Source tags where a snapshot's elements came from.
type Source string

const (
	SourceLive   Source = "live"
	SourceCache  Source = "cache"
	SourceFile   Source = "file"
	SourceManual Source = "manual"
)

// Snapshot is one validated catalog state. It is immutable after
// construction: runs over the same snapshot see the same objects, and a
// refresh produces a new snapshot instead of mutating this one.
type Snapshot struct {
	sets  map[string]model.OrbitalElementSet
	order []string

	asOf   time.Time
	source Source

	// rejections records every raw set that failed validation, one entry
	// per object. They never make it into the working catalog.
	rejections []model.ValidationError
}

// NewSnapshot validates raw element sets into a snapshot. Duplicate
// catalog numbers keep the set with the most recent epoch; invalid sets
// are collected as rejections rather than failing the whole batch.
func NewSnapshot(raw []model.OrbitalElementSet, asOf time.Time, source Source) *Snapshot {
	s := &Snapshot{
		sets:   make(map[string]model.OrbitalElementSet, len(raw)),
		asOf:   asOf,
		source: source,
	}

	for _, set := range raw {
		if err := set.Validate(); err != nil {
			var verr *model.ValidationError
			if errors.As(err, &verr) {
				s.rejections = append(s.rejections, *verr)
			} else {
				s.rejections = append(s.rejections, model.ValidationError{
					CatalogNumber: set.CatalogNumber,
					Reason:        err.Error(),
				})
			}
			continue
		}
		if prev, ok := s.sets[set.CatalogNumber]; ok && !set.Epoch.After(prev.Epoch) {
			continue
		}
		s.sets[set.CatalogNumber] = set
	}

	s.order = make([]string, 0, len(s.sets))
	for num := range s.sets {
		s.order = append(s.order, num)
	}
	sort.Strings(s.order)
	return s
}

// Len returns the number of validated objects.
func (s *Snapshot) Len() int { return len(s.sets) }

// AsOf returns the catalog timestamp, typically the fetch or cache time.
func (s *Snapshot) AsOf() time.Time { return s.asOf }

// Source returns where the snapshot's elements came from.
func (s *Snapshot) Source() Source { return s.source }

// Get returns the element set for a catalog number.
func (s *Snapshot) Get(catalogNumber string) (model.OrbitalElementSet, bool) {
	set, ok := s.sets[catalogNumber]
	return set, ok
}

// Sets returns all validated element sets ordered by catalog number. The
// slice is freshly allocated; callers may keep it.
func (s *Snapshot) Sets() []model.OrbitalElementSet {
	out := make([]model.OrbitalElementSet, 0, len(s.order))
	for _, num := range s.order {
		out = append(out, s.sets[num])
	}
	return out
}

// Rejections returns the validation failures recorded at construction.
func (s *Snapshot) Rejections() []model.ValidationError {
	out := make([]model.ValidationError, len(s.rejections))
	copy(out, s.rejections)
	return out
}

// Filter returns a new snapshot restricted to sets the predicate keeps.
// Rejections carry over unchanged.
func (s *Snapshot) Filter(keep func(model.OrbitalElementSet) bool) *Snapshot {
	out := &Snapshot{
		sets:       make(map[string]model.OrbitalElementSet, len(s.sets)),
		asOf:       s.asOf,
		source:     s.source,
		rejections: s.rejections,
	}
	for _, num := range s.order {
		set := s.sets[num]
		if keep(set) {
			out.sets[num] = set
			out.order = append(out.order, num)
		}
	}
	return out
}

// Store holds the current snapshot and notifies subscribers when a
// refresh swaps it. Reads never block refreshes for long: the store only
// ever exchanges a pointer.
type Store struct {
	mu   sync.RWMutex
	cur  *Snapshot
	subs []func(*Snapshot)
}

// NewStore constructs a store. The initial snapshot may be nil.
func NewStore(initial *Snapshot) *Store {
	return &Store{cur: initial}
}

// Current returns the current snapshot, or nil before the first Replace.
func (st *Store) Current() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.cur
}

// Replace installs a new snapshot and notifies subscribers. Subscribers
// run outside the lock.
func (st *Store) Replace(s *Snapshot) {
	st.mu.Lock()
	st.cur = s
	subs := append([]func(*Snapshot){}, st.subs...)
	st.mu.Unlock()

	for _, sub := range subs {
		sub(s)
	}
}

// Subscribe registers a callback for snapshot replacements. It returns an
// unsubscribe function.
func (st *Store) Subscribe(fn func(*Snapshot)) (unsubscribe func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs = append(st.subs, fn)
	idx := len(st.subs) - 1

	return func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if idx < 0 || idx >= len(st.subs) {
			return
		}
		st.subs = append(st.subs[:idx], st.subs[idx+1:]...)
		idx = -1
	}
}
