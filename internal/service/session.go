package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mentoria/mentoria-go/internal/crypto"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/repository"
)

// DefaultSessionTTL is how long a login stays valid.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, s *model.Session) error
	Lookup(ctx context.Context, token string) (model.SessionInfo, error)
	Delete(ctx context.Context, token string) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

// SessionCache is an optional read-through cache in front of the SessionStore.
type SessionCache interface {
	Get(ctx context.Context, token string) (*model.SessionInfo, error)
	Set(ctx context.Context, token string, info model.SessionInfo) error
	Delete(ctx context.Context, token string) error
	DeleteUser(ctx context.Context, userID int64) error
}

// SessionService issues, validates and revokes opaque bearer tokens.
// Expired sessions are rejected at validation time and never swept here.
type SessionService struct {
	store  SessionStore
	cache  SessionCache
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewSessionService creates a SessionService issuing tokens valid for ttl.
func NewSessionService(store SessionStore, ttl time.Duration, logger *slog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		store:  store,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// WithCache puts cache in front of the store.
func (s *SessionService) WithCache(cache SessionCache) *SessionService {
	s.cache = cache
	return s
}

// Create starts a session with the default TTL.
func (s *SessionService) Create(ctx context.Context, userID int64) (model.Session, error) {
	return s.CreateWithTTL(ctx, userID, s.ttl)
}

// CreateWithTTL starts a session expiring ttl from now. A ttl of zero or less
// yields a session that is already expired.
func (s *SessionService) CreateWithTTL(ctx context.Context, userID int64, ttl time.Duration) (model.Session, error) {
	token, err := crypto.NewSessionToken()
	if err != nil {
		return model.Session{}, err
	}
	now := s.now()
	session := model.Session{
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(max(ttl, 0)),
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, &session); err != nil {
		return model.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

// Validate resolves token to the identity it was issued for.
func (s *SessionService) Validate(ctx context.Context, token string) (model.SessionInfo, error) {
	if token == "" {
		return model.SessionInfo{}, ErrMissingToken
	}
	now := s.now()

	if s.cache != nil {
		info, err := s.cache.Get(ctx, token)
		switch {
		case err != nil:
			s.logger.Warn("session cache read failed", "error", err)
		case info != nil && !info.Expired(now):
			return *info, nil
		}
	}

	info, err := s.store.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return model.SessionInfo{}, ErrInvalidToken
		}
		return model.SessionInfo{}, err
	}
	if info.Expired(now) {
		return model.SessionInfo{}, ErrInvalidToken
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, token, info); err != nil {
			s.logger.Warn("session cache write failed", "error", err)
		}
	}
	return info, nil
}

// Delete revokes one token. Unknown tokens are ignored.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, token); err != nil {
			s.logger.Warn("session cache delete failed", "error", err)
		}
	}
	return nil
}

// RevokeUser deletes every session of a user.
func (s *SessionService) RevokeUser(ctx context.Context, userID int64) error {
	if _, err := s.store.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	s.EvictUser(ctx, userID)
	return nil
}

// EvictUser drops cached sessions of a user whose rows are already gone or
// who can no longer authenticate.
func (s *SessionService) EvictUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteUser(ctx, userID); err != nil {
		s.logger.Warn("session cache eviction failed", "user_id", userID, "error", err)
	}
}
