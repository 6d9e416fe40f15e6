package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/mentoria/mentoria-go/internal/crypto"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/repository"
)

// ProfileService edits account fields and preferences.
type ProfileService struct {
	users    UserStore
	sessions *SessionService
	hasher   crypto.Hasher
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users UserStore, sessions *SessionService, hasher crypto.Hasher) *ProfileService {
	return &ProfileService{users: users, sessions: sessions, hasher: hasher}
}

func validUsername(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) < minUsernameLength {
		return "", ErrInvalidUsername
	}
	return s, nil
}

// validEmail checks the address as given and returns it trimmed and lowercased.
func validEmail(s string) (string, error) {
	if !emailPattern.MatchString(s) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(strings.TrimSpace(s)), nil
}

func mapUserErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateUsername):
		return ErrUsernameTaken
	case errors.Is(err, repository.ErrDuplicateEmail):
		return ErrEmailTaken
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	}
	return err
}

// UpdateUsername renames the user.
func (s *ProfileService) UpdateUsername(ctx context.Context, userID int64, newUsername string) error {
	username, err := validUsername(newUsername)
	if err != nil {
		return err
	}
	if err := s.users.UpdateUsername(ctx, userID, username); err != nil {
		return mapUserErr(err)
	}
	s.sessions.EvictUser(ctx, userID)
	return nil
}

// UpdateEmail changes the login email.
func (s *ProfileService) UpdateEmail(ctx context.Context, userID int64, newEmail string) error {
	email, err := validEmail(newEmail)
	if err != nil {
		return err
	}
	if err := s.users.UpdateEmail(ctx, userID, email); err != nil {
		return mapUserErr(err)
	}
	s.sessions.EvictUser(ctx, userID)
	return nil
}

// UpdatePassword changes the password after re-verifying the current one and
// revokes every session of the user.
func (s *ProfileService) UpdatePassword(ctx context.Context, userID int64, current, next string) error {
	if current == "" || next == "" {
		return ErrPasswordsRequired
	}
	if utf8.RuneCountInString(next) < minPasswordLength {
		return ErrPasswordTooShort
	}
	if err := s.verifyCurrent(ctx, userID, current); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return mapUserErr(err)
	}
	return s.sessions.RevokeUser(ctx, userID)
}

func (s *ProfileService) verifyCurrent(ctx context.Context, userID int64, password string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return mapUserErr(err)
	}
	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWrongCurrentPassword
	}
	return nil
}

// UpdateAll validates every supplied field, reports all failures together as
// ProfileErrors, and otherwise applies the changes in one transaction.
func (s *ProfileService) UpdateAll(ctx context.Context, userID int64, req model.UpdateProfileRequest) (model.ProfileUpdateResponse, error) {
	var (
		changes model.ProfileChanges
		fields  []string
		errs    ProfileErrors
	)

	if strings.TrimSpace(req.NewUsername) != "" {
		if username, err := validUsername(req.NewUsername); err != nil {
			errs = append(errs, err)
		} else {
			changes.Username = &username
			fields = append(fields, model.FieldUsername)
		}
	}

	if strings.TrimSpace(req.NewEmail) != "" {
		if email, err := validEmail(req.NewEmail); err != nil {
			errs = append(errs, err)
		} else {
			changes.Email = &email
			fields = append(fields, model.FieldEmail)
		}
	}

	if req.NewPassword != "" {
		switch {
		case req.CurrentPassword == "":
			errs = append(errs, ErrCurrentPasswordRequired)
		case utf8.RuneCountInString(req.NewPassword) < minPasswordLength:
			errs = append(errs, ErrPasswordTooShort)
		default:
			err := s.verifyCurrent(ctx, userID, req.CurrentPassword)
			if errors.Is(err, ErrWrongCurrentPassword) {
				errs = append(errs, err)
				break
			}
			if err != nil {
				return model.ProfileUpdateResponse{}, err
			}
			hash, err := s.hasher.Hash(req.NewPassword)
			if err != nil {
				return model.ProfileUpdateResponse{}, err
			}
			changes.PasswordHash = &hash
			fields = append(fields, model.FieldPassword)
		}
	}

	if len(errs) > 0 {
		return model.ProfileUpdateResponse{}, errs
	}
	if changes.Empty() {
		return model.ProfileUpdateResponse{}, ErrNothingToUpdate
	}

	if err := s.users.UpdateProfile(ctx, userID, changes); err != nil {
		var conflicts ProfileErrors
		if errors.Is(err, repository.ErrDuplicateUsername) {
			conflicts = append(conflicts, ErrUsernameTaken)
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			conflicts = append(conflicts, ErrEmailTaken)
		}
		if len(conflicts) > 0 {
			return model.ProfileUpdateResponse{}, conflicts
		}
		return model.ProfileUpdateResponse{}, mapUserErr(err)
	}

	// Cached sessions carry the old username and email.
	relogin := changes.PasswordHash != nil
	if relogin {
		if err := s.sessions.RevokeUser(ctx, userID); err != nil {
			return model.ProfileUpdateResponse{}, err
		}
	} else {
		s.sessions.EvictUser(ctx, userID)
	}

	return model.ProfileUpdateResponse{
		Message:         "Perfil actualizado correctamente. Campos actualizados: " + strings.Join(fields, ", "),
		UpdatedFields:   fields,
		RequiresRelogin: relogin,
	}, nil
}

// Settings returns the user's preferences.
func (s *ProfileService) Settings(ctx context.Context, userID int64) (model.SettingsResponse, error) {
	settings, err := s.users.GetSettings(ctx, userID)
	if err != nil {
		return model.SettingsResponse{}, err
	}
	return model.SettingsResponse{ThemeMode: settings.ThemeMode}, nil
}

// SetTheme stores the preferred theme mode.
func (s *ProfileService) SetTheme(ctx context.Context, userID int64, theme string) (model.SettingsResponse, error) {
	if theme != model.ThemeLight && theme != model.ThemeDark {
		return model.SettingsResponse{}, ErrInvalidTheme
	}
	if err := s.users.SetTheme(ctx, userID, theme); err != nil {
		return model.SettingsResponse{}, err
	}
	return model.SettingsResponse{ThemeMode: theme}, nil
}
