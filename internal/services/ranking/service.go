package ranking

import (
	"sort"

	"github.com/openkermesse/stallpoints/internal/model"
)

// Service computes leaderboard orderings. It is a pure function of the
// record set and the previous snapshot it is explicitly given; it keeps no
// state between calls.
type Service struct{}

// New creates a new ranking Service
func New() *Service {
	return &Service{}
}

// Rank sorts the records by lifetime total descending and assigns 1-based
// ranks. Ties break on player id ascending so the ordering is deterministic
// regardless of fetch order. For every player present in both the new and
// previous snapshots whose rank moved, a delta is emitted; absence of a
// delta means the rank is unchanged, and players new to the set produce no
// delta on first appearance.
func (s *Service) Rank(records []*model.PlayerRecord, previous model.RankingSnapshot) (model.RankingSnapshot, map[model.PlayerID]model.RankDelta) {
	snapshot := make(model.RankingSnapshot, 0, len(records))
	for _, rec := range records {
		snapshot = append(snapshot, model.RankedPlayer{
			PlayerID: rec.ID,
			Name:     rec.Name,
			Total:    rec.Total,
			Deducted: rec.Deducted,
			Balance:  rec.Balance,
		})
	}

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Total != snapshot[j].Total {
			return snapshot[i].Total > snapshot[j].Total
		}
		return snapshot[i].PlayerID < snapshot[j].PlayerID
	})

	for i := range snapshot {
		snapshot[i].Rank = i + 1
	}

	deltas := make(map[model.PlayerID]model.RankDelta)
	for _, p := range snapshot {
		oldRank := previous.RankOf(p.PlayerID)
		if oldRank == 0 {
			continue
		}
		switch {
		case p.Rank < oldRank:
			deltas[p.PlayerID] = model.RankUp
		case p.Rank > oldRank:
			deltas[p.PlayerID] = model.RankDown
		}
	}

	return snapshot, deltas
}
