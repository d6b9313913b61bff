package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/dependencies/clock"
	"github.com/openkermesse/stallpoints/internal/model"
)

// Config holds the registry's timeout policy
type Config struct {
	OpTimeout time.Duration
}

// DefaultConfig returns default registry configuration
func DefaultConfig() Config {
	return Config{OpTimeout: 5 * time.Second}
}

// Service is the single source of truth for which stalls exist and therefore
// which per-stall counters live on every player record. Registering or
// deregistering a stall is a two-phase change (identity record plus counter
// provisioning) with a compensating rollback if the second phase fails.
type Service struct {
	store  datastore.Store
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config
}

// New creates a new registry Service
func New(store datastore.Store, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultConfig().OpTimeout
	}
	return &Service{
		store:  store,
		clock:  clk,
		logger: logger.With(slog.String("component", "registry")),
		cfg:    cfg,
	}
}

// RegisterStall creates the stall identity record, then provisions a
// zero-initialized counter on every existing player record. If provisioning
// fails the identity record is deleted again and the failure is reported as
// rolled back; if that compensating delete also fails the error is the
// distinct unrecoverable variant, which callers must surface to an operator.
func (s *Service) RegisterStall(ctx context.Context, actor model.Session, id model.StallID, displayName, incharge, credential string) (*model.Stall, error) {
	if !actor.CanManage() {
		return nil, model.ErrForbidden
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(displayName) == "" || strings.TrimSpace(incharge) == "" || credential == "" {
		return nil, model.ErrMissingField
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	stall := &model.Stall{
		ID:             id,
		DisplayName:    strings.TrimSpace(displayName),
		Incharge:       strings.TrimSpace(incharge),
		CredentialHash: string(hash),
		CreatedAt:      s.clock.Now(),
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.store.InsertStall(opCtx, stall); err != nil {
		return nil, s.mapErr(err)
	}

	if err := s.store.AddStallCounter(opCtx, id); err != nil {
		return nil, s.compensateRegister(ctx, id, err)
	}

	s.logger.Info("stall registered",
		slog.String("stall_id", string(id)),
		slog.String("incharge", stall.Incharge))
	return stall, nil
}

// compensateRegister removes the identity record inserted before counter
// provisioning failed. It runs on a fresh timeout: the original context may
// already be the reason the provisioning failed.
func (s *Service) compensateRegister(ctx context.Context, id model.StallID, cause error) error {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OpTimeout)
	defer cancel()

	if delErr := s.store.DeleteStall(opCtx, id); delErr != nil {
		s.logger.Error("stall registration rollback failed; stall identity and counters disagree",
			slog.String("stall_id", string(id)),
			slog.String("cause", cause.Error()),
			slog.String("rollback_error", delErr.Error()))
		return fmt.Errorf("%w: provisioning counters: %v; deleting identity: %v",
			model.ErrPartialCreateUnrecoverable, cause, delErr)
	}

	s.logger.Warn("stall registration rolled back",
		slog.String("stall_id", string(id)),
		slog.String("cause", cause.Error()))
	return fmt.Errorf("%w: provisioning counters: %v", model.ErrPartialCreateRolledBack, cause)
}

// DeregisterStall mirrors registration: drop the counter field from every
// player record first, then the identity record. If the identity delete
// fails after the counters are gone, the counter field is restored; a failed
// restore is the unrecoverable variant.
func (s *Service) DeregisterStall(ctx context.Context, actor model.Session, id model.StallID) error {
	if !actor.CanManage() {
		return model.ErrForbidden
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.store.GetStall(opCtx, id); err != nil {
		return s.mapErr(err)
	}

	if err := s.store.RemoveStallCounter(opCtx, id); err != nil {
		return s.mapErr(err)
	}

	if err := s.store.DeleteStall(opCtx, id); err != nil {
		return s.compensateDeregister(ctx, id, err)
	}

	s.logger.Info("stall deregistered", slog.String("stall_id", string(id)))
	return nil
}

func (s *Service) compensateDeregister(ctx context.Context, id model.StallID, cause error) error {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OpTimeout)
	defer cancel()

	if addErr := s.store.AddStallCounter(opCtx, id); addErr != nil {
		s.logger.Error("stall deregistration rollback failed; stall identity and counters disagree",
			slog.String("stall_id", string(id)),
			slog.String("cause", cause.Error()),
			slog.String("rollback_error", addErr.Error()))
		return fmt.Errorf("%w: deleting identity: %v; restoring counters: %v",
			model.ErrPartialCreateUnrecoverable, cause, addErr)
	}

	s.logger.Warn("stall deregistration rolled back",
		slog.String("stall_id", string(id)),
		slog.String("cause", cause.Error()))
	return fmt.Errorf("%w: deleting identity: %v", model.ErrPartialCreateRolledBack, cause)
}

// UpdateStall changes the stall's display name, incharge, and optionally its
// credential. The stall id is the schema key and is immutable.
func (s *Service) UpdateStall(ctx context.Context, actor model.Session, id model.StallID, displayName, incharge, credential string) (*model.Stall, error) {
	if !actor.CanManage() {
		return nil, model.ErrForbidden
	}
	if strings.TrimSpace(displayName) == "" || strings.TrimSpace(incharge) == "" {
		return nil, model.ErrMissingField
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	stall, err := s.store.GetStall(opCtx, id)
	if err != nil {
		return nil, s.mapErr(err)
	}

	stall.DisplayName = strings.TrimSpace(displayName)
	stall.Incharge = strings.TrimSpace(incharge)
	if credential != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		stall.CredentialHash = string(hash)
	}

	if err := s.store.UpdateStall(opCtx, stall); err != nil {
		return nil, s.mapErr(err)
	}

	s.logger.Info("stall updated", slog.String("stall_id", string(id)))
	return stall, nil
}

// GetStall returns a stall identity record.
func (s *Service) GetStall(ctx context.Context, id model.StallID) (*model.Stall, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	stall, err := s.store.GetStall(opCtx, id)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return stall, nil
}

// ListStalls returns all registered stalls. This is the authoritative
// counter set for player records; nothing ever infers it from stored data.
func (s *Service) ListStalls(ctx context.Context) ([]*model.Stall, error) {
	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	stalls, err := s.store.ListStalls(opCtx)
	if err != nil {
		return nil, s.mapErr(err)
	}
	return stalls, nil
}

// Authenticate checks a stall operator's credential and returns the stall.
func (s *Service) Authenticate(ctx context.Context, id model.StallID, credential string) (*model.Stall, error) {
	stall, err := s.GetStall(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrStallNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(stall.CredentialHash), []byte(credential)); err != nil {
		return nil, model.ErrInvalidCredentials
	}
	return stall, nil
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
