package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mentoria/mentoria-go/internal/crypto"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/repository"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdateUsername(ctx context.Context, userID int64, username string) error
	UpdateEmail(ctx context.Context, userID int64, email string) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateProfile(ctx context.Context, userID int64, changes model.ProfileChanges) error
	GetSettings(ctx context.Context, userID int64) (model.UserSettings, error)
	SetTheme(ctx context.Context, userID int64, theme string) error
	Delete(ctx context.Context, userID int64) error
}

type rehasher interface {
	NeedsRehash(encoded string) bool
}

// AuthService handles registration, login and account lifecycle.
type AuthService struct {
	users    UserStore
	sessions *SessionService
	hasher   crypto.Hasher
	logger   *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, sessions *SessionService, hasher crypto.Hasher, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{users: users, sessions: sessions, hasher: hasher, logger: logger}
}

// Register creates an active account and returns its id.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (int64, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || req.Password == "" {
		return 0, ErrMissingFields
	}
	if utf8.RuneCountInString(username) < minUsernameLength {
		return 0, ErrInvalidUsername
	}
	if !emailPattern.MatchString(email) {
		return 0, ErrInvalidEmail
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return 0, ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return 0, err
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return 0, ErrUserExists
		}
		return 0, err
	}
	return user.ID, nil
}

// Login checks credentials and opens a session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return model.LoginResponse{}, ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.LoginResponse{}, ErrUserNotFound
		}
		return model.LoginResponse{}, err
	}

	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return model.LoginResponse{}, err
	}
	if !match {
		return model.LoginResponse{}, ErrIncorrectPassword
	}
	s.upgradeHash(ctx, user, req.Password)

	session, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return model.LoginResponse{}, err
	}
	return model.LoginResponse{Token: session.Token, ExpiresAt: session.ExpiresAt}, nil
}

// upgradeHash replaces a legacy hash after a successful login. Failure only
// means the upgrade is retried on the next login.
func (s *AuthService) upgradeHash(ctx context.Context, user *model.User, password string) {
	r, ok := s.hasher.(rehasher)
	if !ok || !r.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
	}
}

// Logout revokes token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, strings.TrimSpace(token))
}

// UserInfo returns the public profile of a user.
func (s *AuthService) UserInfo(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}
	return model.UserResponse{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// DeleteAccount removes the user and everything they own.
func (s *AuthService) DeleteAccount(ctx context.Context, userID int64) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	s.sessions.EvictUser(ctx, userID)
	return nil
}
