package model

import "time"

// PlayerID uniquely identifies a player across the system.
// IDs are caller-assigned (badge numbers at the event) and immutable.
type PlayerID string

// PlayerRecord is the ledger entry for one player.
//
// Total is the lifetime sum of all points ever awarded and is monotonically
// non-decreasing. Deducted is the lifetime sum of all points ever spent.
// Balance is the spendable remainder and always equals Total - Deducted;
// every mutating operation maintains that identity explicitly rather than
// recomputing it on read.
type PlayerRecord struct {
	ID        PlayerID        `json:"id"`
	Name      string          `json:"name"`
	PerStall  map[StallID]int `json:"per_stall"`
	Total     int             `json:"total"`
	Deducted  int             `json:"deducted"`
	Balance   int             `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`

	// Revision is the optimistic-concurrency token. The store increments it
	// on every committed write; conditional updates carry the revision the
	// caller read and fail if it has moved since.
	Revision int64 `json:"revision"`
}

// Clone returns a deep copy so callers can mutate a working copy without
// aliasing the stored record.
func (r *PlayerRecord) Clone() *PlayerRecord {
	c := *r
	c.PerStall = make(map[StallID]int, len(r.PerStall))
	for k, v := range r.PerStall {
		c.PerStall[k] = v
	}
	return &c
}
