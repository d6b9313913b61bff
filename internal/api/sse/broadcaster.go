package sse

import (
	"encoding/json"
	"log/slog"

	"github.com/openkermesse/stallpoints/internal/api/response"
	"github.com/openkermesse/stallpoints/internal/services/leaderboard"
)

// EventScores is the SSE event name carrying a scoreboard payload.
const EventScores = "scores"

// Broadcaster pumps leaderboard updates into the hub as SSE events.
type Broadcaster struct {
	hub     *Hub
	session *leaderboard.Session
	logger  *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub, session *leaderboard.Session, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hub:     hub,
		session: session,
		logger:  logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Run forwards updates until the leaderboard session closes. Run on its own
// goroutine.
func (b *Broadcaster) Run() {
	for {
		select {
		case u, ok := <-b.session.Updates():
			if !ok {
				return
			}
			msg, err := EncodeScoresEvent(b.session.State(), u)
			if err != nil {
				b.logger.Error("sse failed to encode scoreboard",
					slog.Any("error", err))
				continue
			}
			b.hub.Broadcast(msg)

		case <-b.session.Done():
			return
		}
	}
}

// EncodeScoresEvent renders an update as a wire-ready SSE scores event.
func EncodeScoresEvent(state leaderboard.State, u leaderboard.Update) ([]byte, error) {
	payload, err := json.Marshal(response.ScoreboardFromUpdate(state, u))
	if err != nil {
		return nil, err
	}
	return formatSSEMessage(EventScores, string(payload)), nil
}
