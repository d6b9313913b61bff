package model

// RankDelta marks a transient change in a player's leaderboard position
// relative to the previous snapshot. Absence of a delta means "unchanged",
// not "zero".
type RankDelta string

const (
	RankUp   RankDelta = "up"
	RankDown RankDelta = "down"
)

// RankedPlayer is one row of a ranking snapshot. It carries the balance
// fields too so the presentation layer can render either the scores table or
// the balance table from the same snapshot.
type RankedPlayer struct {
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
	Total    int      `json:"total"`
	Deducted int      `json:"deducted"`
	Balance  int      `json:"balance"`
	Rank     int      `json:"rank"` // 1-based
}

// RankingSnapshot is an ephemeral ordered ranking of all players, sorted by
// Total descending with PlayerID ascending as the tie-break. It is never
// persisted; the only retained copy is the "previous snapshot" used for the
// next diff.
type RankingSnapshot []RankedPlayer

// RankOf returns the rank for a player, or 0 if the player is not present.
func (s RankingSnapshot) RankOf(id PlayerID) int {
	for _, p := range s {
		if p.PlayerID == id {
			return p.Rank
		}
	}
	return 0
}
