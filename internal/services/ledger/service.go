package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/dependencies/clock"
	"github.com/openkermesse/stallpoints/internal/model"
)

// StallDirectory is the slice of the stall registry the ledger needs: the
// authoritative set of counters a new player record must be provisioned with.
type StallDirectory interface {
	ListStalls(ctx context.Context) ([]*model.Stall, error)
}

// Config holds the ledger's retry and timeout policy
type Config struct {
	// MaxAttempts bounds the optimistic read-modify-write cycle before the
	// operation fails with ErrConflictRetryExhausted.
	MaxAttempts int
	// OpTimeout bounds every store round-trip.
	OpTimeout time.Duration
}

// DefaultConfig returns the default retry and timeout policy
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		OpTimeout:   5 * time.Second,
	}
}

// Service applies point-award and point-deduction operations to player
// records, enforcing the ledger's arithmetic invariants:
//
//	Total and Deducted never decrease, Balance = Total - Deducted, and all
//	three are non-negative at every committed state.
//
// Concurrent mutations of the same record are reconciled with revision-
// guarded conditional writes retried a bounded number of times.
type Service struct {
	store  datastore.Store
	stalls StallDirectory
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config
}

// New creates a new ledger Service
func New(store datastore.Store, stalls StallDirectory, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultConfig().OpTimeout
	}
	return &Service{
		store:  store,
		stalls: stalls,
		clock:  clk,
		logger: logger.With(slog.String("component", "ledger")),
		cfg:    cfg,
	}
}

// VerifyPlayer trims and validates a raw player identifier and looks up the
// record. An unknown id is a normal outcome surfaced as ErrPlayerNotFound,
// not a system fault.
func (s *Service) VerifyPlayer(ctx context.Context, actor model.Session, rawID string) (*model.PlayerRecord, error) {
	if !actor.CanView() {
		return nil, model.ErrForbidden
	}

	id := strings.TrimSpace(rawID)
	if id == "" {
		return nil, model.ErrEmptyPlayerID
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	rec, err := s.store.GetPlayer(ctx, model.PlayerID(id))
	if err != nil {
		return nil, s.mapErr(err)
	}
	return rec, nil
}

// AwardPoints adds amount to the player's counter for stallID and to the
// lifetime total and balance, as one conditional write. On success the
// returned record is the committed state read back from the store.
func (s *Service) AwardPoints(ctx context.Context, actor model.Session, playerID model.PlayerID, stallID model.StallID, amount int) (*model.PlayerRecord, error) {
	if !actor.CanAward(stallID) {
		return nil, model.ErrForbidden
	}
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	committed, err := s.mutate(ctx, playerID, func(rec *model.PlayerRecord) error {
		if _, ok := rec.PerStall[stallID]; !ok {
			return model.ErrUnknownStall
		}
		rec.PerStall[stallID] += amount
		rec.Total += amount
		rec.Balance += amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("points awarded",
		slog.String("player_id", string(playerID)),
		slog.String("stall_id", string(stallID)),
		slog.Int("amount", amount),
		slog.Int("total", committed.Total))
	return committed, nil
}

// DeductPoints removes amount from the player's spendable balance and adds it
// to the lifetime deducted counter. The balance check runs against the record
// read in the same attempt that commits, so a concurrent spend cannot drive
// the balance negative.
func (s *Service) DeductPoints(ctx context.Context, actor model.Session, playerID model.PlayerID, amount int) (*model.PlayerRecord, error) {
	if !actor.CanDeduct() {
		return nil, model.ErrForbidden
	}
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}

	committed, err := s.mutate(ctx, playerID, func(rec *model.PlayerRecord) error {
		if amount > rec.Balance {
			return model.ErrInsufficientBalance
		}
		rec.Balance -= amount
		rec.Deducted += amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("points deducted",
		slog.String("player_id", string(playerID)),
		slog.Int("amount", amount),
		slog.Int("balance", committed.Balance))
	return committed, nil
}

// CreatePlayer creates a zeroed record with one counter per currently
// registered stall. The stall registry, not the stored data, decides which
// counters exist.
func (s *Service) CreatePlayer(ctx context.Context, actor model.Session, rawID, name string) (*model.PlayerRecord, error) {
	if !actor.CanManage() {
		return nil, model.ErrForbidden
	}

	id := strings.TrimSpace(rawID)
	if id == "" {
		return nil, model.ErrEmptyPlayerID
	}
	if strings.TrimSpace(name) == "" {
		return nil, model.ErrEmptyName
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	stalls, err := s.stalls.ListStalls(ctx)
	if err != nil {
		return nil, s.mapErr(err)
	}

	rec := &model.PlayerRecord{
		ID:        model.PlayerID(id),
		Name:      strings.TrimSpace(name),
		PerStall:  make(map[model.StallID]int, len(stalls)),
		CreatedAt: s.clock.Now(),
	}
	for _, stall := range stalls {
		rec.PerStall[stall.ID] = 0
	}

	if err := s.store.InsertPlayer(ctx, rec); err != nil {
		return nil, s.mapErr(err)
	}

	s.logger.Info("player created",
		slog.String("player_id", id),
		slog.Int("stall_counters", len(stalls)))
	return rec, nil
}

// DeletePlayer removes the record. Deleting an absent id reports
// ErrPlayerNotFound rather than succeeding silently.
func (s *Service) DeletePlayer(ctx context.Context, actor model.Session, playerID model.PlayerID) error {
	if !actor.CanManage() {
		return model.ErrForbidden
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.store.DeletePlayer(ctx, playerID); err != nil {
		return s.mapErr(err)
	}

	s.logger.Info("player deleted", slog.String("player_id", string(playerID)))
	return nil
}

// ListPlayers returns every player record, for the administrative view.
func (s *Service) ListPlayers(ctx context.Context, actor model.Session) ([]*model.PlayerRecord, error) {
	if !actor.CanManage() {
		return nil, model.ErrForbidden
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	records, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return records, nil
}

// mutate runs the optimistic read-modify-write cycle: read the record, apply
// the change to a working copy, commit conditionally on the revision read,
// and retry from a fresh read on a concurrent-write conflict. Validation
// inside apply runs on every attempt, so commit-time state is what gets
// checked.
func (s *Service) mutate(ctx context.Context, playerID model.PlayerID, apply func(*model.PlayerRecord) error) (*model.PlayerRecord, error) {
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		opCtx, cancel := s.opContext(ctx)
		rec, err := s.store.GetPlayer(opCtx, playerID)
		if err != nil {
			cancel()
			return nil, s.mapErr(err)
		}

		if err := apply(rec); err != nil {
			cancel()
			return nil, err
		}

		committed, err := s.store.UpdatePlayer(opCtx, rec, rec.Revision)
		cancel()
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, model.ErrPreconditionFailed) {
			s.logger.Debug("write conflict, retrying",
				slog.String("player_id", string(playerID)),
				slog.Int("attempt", attempt+1))
			continue
		}
		return nil, s.mapErr(err)
	}

	s.logger.Warn("conflict retries exhausted", slog.String("player_id", string(playerID)))
	return nil, model.ErrConflictRetryExhausted
}

func (s *Service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.OpTimeout)
}

func (s *Service) mapErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrTimeout
	}
	return err
}
