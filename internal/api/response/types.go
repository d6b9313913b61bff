package response

import (
	"time"

	"github.com/openkermesse/stallpoints/internal/model"
	"github.com/openkermesse/stallpoints/internal/services/leaderboard"
)

// PlayerRecord represents a player's ledger record in API responses
type PlayerRecord struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	PerStall map[string]int `json:"per_stall"`
	Total    int            `json:"total"`
	Deducted int            `json:"deducted"`
	Balance  int            `json:"balance"`
}

// PlayerRecordFromModel converts a model.PlayerRecord to a response PlayerRecord
func PlayerRecordFromModel(rec *model.PlayerRecord) PlayerRecord {
	perStall := make(map[string]int, len(rec.PerStall))
	for id, pts := range rec.PerStall {
		perStall[string(id)] = pts
	}
	return PlayerRecord{
		ID:       string(rec.ID),
		Name:     rec.Name,
		PerStall: perStall,
		Total:    rec.Total,
		Deducted: rec.Deducted,
		Balance:  rec.Balance,
	}
}

// PlayerList is the response for listing players
type PlayerList struct {
	Players []PlayerRecord `json:"players"`
}

// PlayerListFromModel converts a record slice
func PlayerListFromModel(recs []*model.PlayerRecord) PlayerList {
	players := make([]PlayerRecord, len(recs))
	for i, rec := range recs {
		players[i] = PlayerRecordFromModel(rec)
	}
	return PlayerList{Players: players}
}

// Stall represents a stall in API responses. The credential hash never
// leaves the server.
type Stall struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Incharge    string    `json:"incharge"`
	CreatedAt   time.Time `json:"created_at"`
}

// StallFromModel converts a model.Stall to a response Stall
func StallFromModel(s *model.Stall) Stall {
	return Stall{
		ID:          string(s.ID),
		DisplayName: s.DisplayName,
		Incharge:    s.Incharge,
		CreatedAt:   s.CreatedAt,
	}
}

// StallList is the response for listing stalls
type StallList struct {
	Stalls []Stall `json:"stalls"`
}

// StallListFromModel converts a stall slice
func StallListFromModel(stalls []*model.Stall) StallList {
	out := make([]Stall, len(stalls))
	for i, s := range stalls {
		out[i] = StallFromModel(s)
	}
	return StallList{Stalls: out}
}

// RankedPlayer is one leaderboard row
type RankedPlayer struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Total    int    `json:"total"`
	Deducted int    `json:"deducted"`
	Balance  int    `json:"balance"`
	Rank     int    `json:"rank"`
	Delta    string `json:"delta,omitempty"`
}

// Scoreboard is the leaderboard snapshot response. Stale is set when a
// refresh failed and the rows shown are the last successful snapshot.
type Scoreboard struct {
	State   string         `json:"state"`
	Players []RankedPlayer `json:"players"`
	Stale   bool           `json:"stale,omitempty"`
}

// ScoreboardFromUpdate flattens a leaderboard update into response rows,
// attaching each player's transient rank delta.
func ScoreboardFromUpdate(state leaderboard.State, u leaderboard.Update) Scoreboard {
	players := make([]RankedPlayer, len(u.Snapshot))
	for i, p := range u.Snapshot {
		players[i] = RankedPlayer{
			PlayerID: string(p.PlayerID),
			Name:     p.Name,
			Total:    p.Total,
			Deducted: p.Deducted,
			Balance:  p.Balance,
			Rank:     p.Rank,
			Delta:    string(u.Deltas[p.PlayerID]),
		}
	}
	return Scoreboard{
		State:   string(state),
		Players: players,
		Stale:   u.Err != nil,
	}
}

// AuthResponse is the response for the login endpoint
type AuthResponse struct {
	SessionToken string    `json:"session_token"`
	Role         string    `json:"role"`
	StallID      string    `json:"stall_id,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s model.Session) AuthResponse {
	return AuthResponse{
		SessionToken: s.Token,
		Role:         string(s.Role),
		StallID:      string(s.StallID),
		ExpiresAt:    s.ExpiresAt,
	}
}
