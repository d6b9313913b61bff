package leaderboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/openkermesse/stallpoints/internal/changefeed"
	"github.com/openkermesse/stallpoints/internal/dependencies/clock"
	"github.com/openkermesse/stallpoints/internal/model"
	"github.com/openkermesse/stallpoints/internal/services/ranking"
)

// State is the leaderboard session's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateClosed  State = "closed"
)

// Update is what the session hands to the presentation layer on every Ready
// transition: the current snapshot, transient rank deltas, and an error
// indicator when the snapshot shown is the last good one after a failed
// refresh.
type Update struct {
	Snapshot model.RankingSnapshot              `json:"snapshot"`
	Deltas   map[model.PlayerID]model.RankDelta `json:"deltas,omitempty"`
	Err      error                              `json:"-"`
}

// Fetcher is the full-record-set read the session refreshes from.
// Satisfied by datastore.Store.
type Fetcher interface {
	ListPlayers(ctx context.Context) ([]*model.PlayerRecord, error)
}

// Config holds the session's timing policy
type Config struct {
	// DeltaWindow is how long rank deltas stay attached before being
	// retired with a follow-up update.
	DeltaWindow time.Duration
	// FetchTimeout bounds each full-record-set read.
	FetchTimeout time.Duration
	// UpdateBuffer is the updates channel capacity.
	UpdateBuffer int
}

// DefaultConfig returns the default timing policy. The two-second delta
// window matches how long the up/down indicators are meant to flash.
func DefaultConfig() Config {
	return Config{
		DeltaWindow:  2 * time.Second,
		FetchTimeout: 5 * time.Second,
		UpdateBuffer: 8,
	}
}

// Session orchestrates the live leaderboard: it subscribes to the change
// feed, re-fetches the full record set on every signal, re-ranks against the
// previously held snapshot, and publishes the result. A refresh that is
// superseded by a newer signal is discarded so a slow response can never
// overwrite a more current snapshot. Refresh failures keep the session in a
// recoverable Ready state showing the last good snapshot.
type Session struct {
	fetcher Fetcher
	feed    *changefeed.Adapter
	ranker  *ranking.Service
	clock   clock.Clock
	logger  *slog.Logger
	cfg     Config

	updates chan Update
	refresh chan struct{}
	results chan fetchResult

	closeOnce sync.Once
	done      chan struct{}

	mu      sync.RWMutex
	state   State
	current Update
}

type fetchResult struct {
	gen     uint64
	records []*model.PlayerRecord
	err     error
}

// New creates a leaderboard session. Call Start to begin the initial load.
func New(fetcher Fetcher, feed *changefeed.Adapter, ranker *ranking.Service, clk clock.Clock, cfg Config, logger *slog.Logger) *Session {
	def := DefaultConfig()
	if cfg.DeltaWindow <= 0 {
		cfg.DeltaWindow = def.DeltaWindow
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.UpdateBuffer <= 0 {
		cfg.UpdateBuffer = def.UpdateBuffer
	}
	return &Session{
		fetcher: fetcher,
		feed:    feed,
		ranker:  ranker,
		clock:   clk,
		logger:  logger.With(slog.String("component", "leaderboard")),
		cfg:     cfg,
		updates: make(chan Update, cfg.UpdateBuffer),
		refresh: make(chan struct{}, 1),
		results: make(chan fetchResult, 1),
		done:    make(chan struct{}),
		state:   StateIdle,
	}
}

// Start launches the session loop and the initial load.
func (s *Session) Start() {
	go s.run()
}

// Updates delivers one Update per Ready transition.
func (s *Session) Updates() <-chan Update {
	return s.updates
}

// Refresh requests a manual re-fetch, e.g. from a refresh button.
func (s *Session) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the most recently published update, for consumers that
// attach after the session is already Ready.
func (s *Session) Current() Update {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Done is closed when the session terminates.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close unsubscribes from the change feed and terminates the session.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Session) run() {
	var gen uint64

	// A signal already pending at start is subsumed by the initial read.
	select {
	case <-s.feed.Changes():
	default:
	}

	// Idle → Loading: initial full read
	gen++
	s.setState(StateLoading)
	s.startFetch(gen)

	var deltaTimer clock.Timer
	var deltaC <-chan time.Time

	stopTimer := func() {
		if deltaTimer != nil {
			deltaTimer.Stop()
			deltaTimer = nil
			deltaC = nil
		}
	}

	for {
		select {
		case <-s.done:
			stopTimer()
			s.feed.Close()
			s.setState(StateClosed)
			s.logger.Info("leaderboard session closed")
			return

		case <-s.feed.Changes():
			// Any mutation triggers a full re-rank; in-flight fetches from
			// older generations are discarded when they land.
			gen++
			s.setState(StateLoading)
			s.startFetch(gen)

		case <-s.refresh:
			gen++
			s.setState(StateLoading)
			s.startFetch(gen)

		case res := <-s.results:
			if res.gen != gen {
				s.logger.Debug("discarding superseded refresh",
					slog.Uint64("result_gen", res.gen),
					slog.Uint64("current_gen", gen))
				continue
			}

			if res.err != nil {
				// Keep showing the last good snapshot with an error marker;
				// the subscription stays live and the next signal or manual
				// refresh retries.
				s.logger.Warn("leaderboard refresh failed",
					slog.String("error", res.err.Error()))
				prev := s.Current().Snapshot
				s.publish(Update{Snapshot: prev, Err: res.err})
				continue
			}

			snapshot, deltas := s.ranker.Rank(res.records, s.Current().Snapshot)
			if len(deltas) == 0 {
				deltas = nil
			}
			s.publish(Update{Snapshot: snapshot, Deltas: deltas})

			stopTimer()
			if deltas != nil {
				deltaTimer = s.clock.NewTimer(s.cfg.DeltaWindow)
				deltaC = deltaTimer.C()
			}

		case <-deltaC:
			// Display window over: retire the deltas, stay Ready.
			deltaTimer = nil
			deltaC = nil
			s.publish(Update{Snapshot: s.Current().Snapshot})
		}
	}
}

// startFetch reads the full record set off the loop goroutine so a newer
// change signal can supersede a slow read.
func (s *Session) startFetch(gen uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
		defer cancel()

		records, err := s.fetcher.ListPlayers(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			err = model.ErrTimeout
		}

		select {
		case s.results <- fetchResult{gen: gen, records: records, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) publish(u Update) {
	s.mu.Lock()
	s.state = StateReady
	s.current = u
	s.mu.Unlock()

	select {
	case s.updates <- u:
	default:
		s.logger.Warn("leaderboard update dropped - consumer too slow")
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
