package strategy

import (
	"sort"
	"sync"

	"kujira-mm/pkg/types"
)

// Tracker maintains the worker's view of which venue orders it owns.
//
// Two sets are kept for the worker's lifetime: the ids returned by the
// most recent successful placement (currently tracked), and the union of
// all ids ever returned (tracked). Orders open on the venue that were
// tracked at some point but not re-placed last tick are stale and safe to
// cancel; orders never tracked are foreign and must not be touched.
type Tracker struct {
	mu        sync.Mutex
	currently map[string]bool
	tracked   map[string]bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		currently: make(map[string]bool),
		tracked:   make(map[string]bool),
	}
}

// Record registers the ids of a successful placement: they become the
// currently tracked set and join the cumulative tracked set.
func (t *Tracker) Record(ids []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.currently = make(map[string]bool, len(ids))
	for _, id := range ids {
		t.currently[id] = true
		t.tracked[id] = true
	}
}

// UntrackedOpen returns tracked ∩ open − currentlyTracked, sorted: the
// orders this worker placed on an earlier tick that are still open but
// were not part of the latest placement. Foreign ids pass through
// untouched because they never enter the tracked set.
func (t *Tracker) UntrackedOpen(openIDs []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var stale []string
	for _, id := range openIDs {
		if t.tracked[id] && !t.currently[id] {
			stale = append(stale, id)
		}
	}
	sort.Strings(stale)
	return stale
}

// Counts returns the sizes of the currently-tracked and tracked sets.
func (t *Tracker) Counts() (currently, tracked int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.currently), len(t.tracked)
}

// DuplicateOrderIDs scans open orders for client-id collisions: the venue
// can end up with several live orders echoing the same client id when a
// placement is retried. Within each group, sorted by venue id, all but
// the newest (highest id) are duplicates. Orders with the reserved manual
// client id "0" are never reported.
func DuplicateOrderIDs(openOrders map[string]types.Order) []string {
	byClientID := make(map[string][]string)
	for id, order := range openOrders {
		if order.ClientID == types.ManualClientID {
			continue
		}
		byClientID[order.ClientID] = append(byClientID[order.ClientID], id)
	}

	var duplicates []string
	for _, ids := range byClientID {
		if len(ids) < 2 {
			continue
		}
		sort.Strings(ids)
		duplicates = append(duplicates, ids[:len(ids)-1]...)
	}
	sort.Strings(duplicates)
	return duplicates
}
