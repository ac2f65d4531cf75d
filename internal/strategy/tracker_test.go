package strategy

import (
	"reflect"
	"testing"

	"kujira-mm/pkg/types"
)

func TestTrackerRecordReplacesCurrentSet(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Record([]string{"A", "B"})
	tr.Record([]string{"B", "C"})

	currently, tracked := tr.Counts()
	if currently != 2 {
		t.Errorf("currently = %d, want 2", currently)
	}
	if tracked != 3 {
		t.Errorf("tracked = %d, want 3", tracked)
	}
}

func TestUntrackedOpenCancelsOnlyStaleOwnOrders(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Record([]string{"A", "B"})
	tr.Record([]string{"B", "C"})

	// A is stale (tracked, open, not re-placed). B is current. D is a
	// foreign order the bot never placed.
	stale := tr.UntrackedOpen([]string{"A", "B", "D"})

	if !reflect.DeepEqual(stale, []string{"A"}) {
		t.Errorf("stale = %v, want [A]", stale)
	}
}

func TestUntrackedOpenEmptyWhenNothingStale(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Record([]string{"A"})

	if stale := tr.UntrackedOpen([]string{"A"}); len(stale) != 0 {
		t.Errorf("stale = %v, want empty", stale)
	}
	if stale := tr.UntrackedOpen(nil); len(stale) != 0 {
		t.Errorf("stale = %v, want empty", stale)
	}
}

func TestUntrackedOpenIgnoresClosedTrackedOrders(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.Record([]string{"A", "B"})
	tr.Record([]string{"C"})

	// A and B are stale but only B is still open.
	stale := tr.UntrackedOpen([]string{"B"})
	if !reflect.DeepEqual(stale, []string{"B"}) {
		t.Errorf("stale = %v, want [B]", stale)
	}
}

func TestDuplicateOrderIDs(t *testing.T) {
	t.Parallel()

	open := map[string]types.Order{
		"101": {ID: "101", ClientID: "1"},
		"102": {ID: "102", ClientID: "1"},
		"103": {ID: "103", ClientID: "2"},
	}

	// Client id 1 appears twice; the older venue id loses.
	got := DuplicateOrderIDs(open)
	if !reflect.DeepEqual(got, []string{"101"}) {
		t.Errorf("duplicates = %v, want [101]", got)
	}
}

func TestDuplicateOrderIDsSkipsManualOrders(t *testing.T) {
	t.Parallel()

	open := map[string]types.Order{
		"101": {ID: "101", ClientID: types.ManualClientID},
		"102": {ID: "102", ClientID: types.ManualClientID},
		"103": {ID: "103", ClientID: types.ManualClientID},
	}

	if got := DuplicateOrderIDs(open); len(got) != 0 {
		t.Errorf("duplicates = %v, want none for manual orders", got)
	}
}

func TestDuplicateOrderIDsMultipleGroups(t *testing.T) {
	t.Parallel()

	open := map[string]types.Order{
		"201": {ID: "201", ClientID: "1"},
		"202": {ID: "202", ClientID: "1"},
		"203": {ID: "203", ClientID: "1"},
		"301": {ID: "301", ClientID: "2"},
		"302": {ID: "302", ClientID: "2"},
	}

	got := DuplicateOrderIDs(open)
	if !reflect.DeepEqual(got, []string{"201", "202", "301"}) {
		t.Errorf("duplicates = %v, want [201 202 301]", got)
	}
}
