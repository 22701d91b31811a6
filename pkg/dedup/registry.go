// Package dedup keeps track of evidence already surfaced for each candidate, so every item
// triggers at most one alert per candidate for the life of the process.
package dedup

import (
	"sort"
	"sync"

	"github.com/umputun/habemus/pkg/domain"
)

// Registry is the evidence registry: candidate full name -> set of surfaced item ids.
// By default it grows for the life of the process and never shrinks. With retainCycles > 0
// ids surfaced more than retainCycles cycles ago are evicted on NextCycle.
// Registry is safe for concurrent use.
type Registry struct {
	mu           sync.Mutex
	seen         map[string]map[string]uint64 // candidate -> item id -> cycle it was surfaced in
	cycle        uint64
	retainCycles int
}

// NewRegistry makes an empty registry, retainCycles 0 disables eviction
func NewRegistry(retainCycles int) *Registry {
	if retainCycles < 0 {
		retainCycles = 0
	}
	return &Registry{seen: make(map[string]map[string]uint64), retainCycles: retainCycles}
}

// FilterNew returns items not surfaced for candidate before and marks them as surfaced.
// Repeated ids inside items are kept once. Calling it twice with the same batch returns
// nothing on the second call.
func (r *Registry) FilterNew(candidate string, items []domain.ScoredItem) []domain.ScoredItem {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, ok := r.seen[candidate]
	if !ok {
		ids = make(map[string]uint64)
		r.seen[candidate] = ids
	}

	res := make([]domain.ScoredItem, 0, len(items))
	for _, it := range items {
		if _, dup := ids[it.ID]; dup {
			continue
		}
		ids[it.ID] = r.cycle
		res = append(res, it)
	}
	return res
}

// Forget un-marks ids for candidate, so they will be surfaced again by the next FilterNew
func (r *Registry) Forget(candidate string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen, ok := r.seen[candidate]
	if !ok {
		return
	}
	for _, id := range ids {
		delete(seen, id)
	}
}

// NextCycle advances the cycle counter and evicts expired ids. Returns sorted unique evicted ids.
func (r *Registry) NextCycle() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycle++
	if r.retainCycles == 0 {
		return nil
	}

	evicted := map[string]struct{}{}
	for _, ids := range r.seen {
		for id, c := range ids {
			if r.cycle-c > uint64(r.retainCycles) {
				delete(ids, id)
				evicted[id] = struct{}{}
			}
		}
	}
	if len(evicted) == 0 {
		return nil
	}
	res := make([]string, 0, len(evicted))
	for id := range evicted {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// Snapshot returns sorted ids per candidate, candidates without ids are omitted
func (r *Registry) Snapshot() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make(map[string][]string, len(r.seen))
	for cand, ids := range r.seen {
		if len(ids) == 0 {
			continue
		}
		list := make([]string, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		sort.Strings(list)
		res[cand] = list
	}
	return res
}

// Len returns total number of remembered ids across candidates
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ids := range r.seen {
		n += len(ids)
	}
	return n
}
