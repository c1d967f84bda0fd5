package car

import "liftsim/src/types"

// requestQueue is a FIFO view of pending requests of one kind (robot or
// tenant). It backs priority dispatch and statistics; the car's floor-request
// set remains the source of truth for which floors get visited. Entries are
// pruned whenever their floor is serviced so stale records cannot pile up.
type requestQueue struct {
	items []types.PendingRequest
}

func (q *requestQueue) enqueue(r types.PendingRequest) {
	q.items = append(q.items, r)
}

// peek returns the oldest pending request without removing it.
func (q *requestQueue) peek() (types.PendingRequest, bool) {
	if len(q.items) == 0 {
		return types.PendingRequest{}, false
	}
	return q.items[0], true
}

// pruneFloor drops every entry for the given floor.
func (q *requestQueue) pruneFloor(floor int) {
	kept := q.items[:0]
	for _, r := range q.items {
		if r.Floor != floor {
			kept = append(kept, r)
		}
	}
	q.items = kept
}

func (q *requestQueue) hasFloor(floor int) bool {
	for _, r := range q.items {
		if r.Floor == floor {
			return true
		}
	}
	return false
}

func (q *requestQueue) len() int { return len(q.items) }
