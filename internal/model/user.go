package model

import "time"

// Theme modes stored in user_settings.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// User represents a user in the database.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// UserSettings holds per-user preferences.
type UserSettings struct {
	UserID    int64
	ThemeMode string
}

// RegisterRequest represents a user registration request.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the opaque session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LogoutRequest names the session token to revoke.
type LogoutRequest struct {
	Token string `json:"token" validate:"required"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile field labels reported in ProfileUpdateResponse.UpdatedFields.
const (
	FieldUsername = "nombre de usuario"
	FieldEmail    = "email"
	FieldPassword = "contraseña"
)

// UpdateUsernameRequest is the body of PUT /profile/username.
type UpdateUsernameRequest struct {
	NewUsername string `json:"newUsername"`
}

// UpdateEmailRequest is the body of PUT /profile/email.
type UpdateEmailRequest struct {
	NewEmail string `json:"newEmail"`
}

// UpdatePasswordRequest requires the current password alongside the new one.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdateProfileRequest combines every editable profile field. Empty fields are left unchanged.
type UpdateProfileRequest struct {
	NewUsername     string `json:"newUsername"`
	NewEmail        string `json:"newEmail"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileChanges is the validated set of column updates applied in one transaction.
type ProfileChanges struct {
	Username     *string
	Email        *string
	PasswordHash *string
}

// Empty reports whether no column would change.
func (c ProfileChanges) Empty() bool {
	return c.Username == nil && c.Email == nil && c.PasswordHash == nil
}

// ProfileUpdateResponse lists the applied fields and whether the user must log in again.
type ProfileUpdateResponse struct {
	Message         string   `json:"message"`
	UpdatedFields   []string `json:"updatedFields"`
	RequiresRelogin bool     `json:"requiresRelogin"`
}

// SettingsRequest is the body of PUT /profile/settings.
type SettingsRequest struct {
	ThemeMode string `json:"themeMode" validate:"required,oneof=light dark"`
}

// SettingsResponse exposes the user's preferences.
type SettingsResponse struct {
	ThemeMode string `json:"themeMode"`
}

// MessageResponse is a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}
