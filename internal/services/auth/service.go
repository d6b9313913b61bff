package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/openkermesse/stallpoints/internal/dependencies/clock"
	"github.com/openkermesse/stallpoints/internal/model"
)

// StallAuthenticator checks a stall operator's credential. Implemented by
// the stall registry.
type StallAuthenticator interface {
	Authenticate(ctx context.Context, id model.StallID, credential string) (*model.Stall, error)
}

// Config holds configuration for the auth service. Admin and gift-counter
// are fixed operator accounts configured at startup; every other username is
// treated as a stall id and resolved through the registry.
type Config struct {
	AdminUsername     string
	AdminPasswordHash string

	GiftCounterUsername     string
	GiftCounterPasswordHash string

	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		AdminUsername:       "admin",
		GiftCounterUsername: "giftcounter",
		SessionDuration:     12 * time.Hour,
	}
}

// HashCredential hashes a plaintext credential for storage in Config.
func HashCredential(credential string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Service handles operator login and session management. Sessions are the
// explicit capability grants checked by every ledger and registry operation.
type Service struct {
	stalls StallAuthenticator
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config

	mu       sync.RWMutex
	sessions map[string]model.Session
}

// New creates a new auth Service
func New(stalls StallAuthenticator, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		stalls:   stalls,
		clock:    clk,
		logger:   logger.With(slog.String("component", "auth")),
		cfg:      cfg,
		sessions: make(map[string]model.Session),
	}
}

// Login authenticates an operator and returns a capability session.
func (s *Service) Login(ctx context.Context, username, password string) (model.Session, error) {
	switch username {
	case s.cfg.AdminUsername:
		if !matches(s.cfg.AdminPasswordHash, password) {
			return model.Session{}, model.ErrInvalidCredentials
		}
		return s.createSession(model.RoleAdmin, ""), nil

	case s.cfg.GiftCounterUsername:
		if !matches(s.cfg.GiftCounterPasswordHash, password) {
			return model.Session{}, model.ErrInvalidCredentials
		}
		return s.createSession(model.RoleGiftCounter, ""), nil

	default:
		stall, err := s.stalls.Authenticate(ctx, model.StallID(username), password)
		if err != nil {
			return model.Session{}, err
		}
		return s.createSession(model.RoleStall, stall.ID), nil
	}
}

// ValidateSession resolves a token to its session, expiring it if stale.
func (s *Service) ValidateSession(token string) (model.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return model.Session{}, model.ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return model.Session{}, model.ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session (logout)
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}

func (s *Service) createSession(role model.Role, stallID model.StallID) model.Session {
	now := s.clock.Now()
	session := model.Session{
		Token:     generateToken(),
		Role:      role,
		StallID:   stallID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	s.logger.Info("session created",
		slog.String("role", string(role)),
		slog.String("stall_id", string(stallID)))
	return session
}

func matches(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func generateToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "sess_" + base64.RawURLEncoding.EncodeToString(b)
}
