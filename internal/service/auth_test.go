package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mentoria/mentoria-go/internal/model"
)

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  model.RegisterRequest
		want error
	}{
		{"missing username", model.RegisterRequest{Email: "a@x.com", Password: "secret1"}, ErrMissingFields},
		{"blank email", model.RegisterRequest{Username: "alice", Email: "  ", Password: "secret1"}, ErrMissingFields},
		{"missing password", model.RegisterRequest{Username: "alice", Email: "a@x.com"}, ErrMissingFields},
		{"short username", model.RegisterRequest{Username: "al", Email: "a@x.com", Password: "secret1"}, ErrInvalidUsername},
		{"bad email", model.RegisterRequest{Username: "alice", Email: "alice@x", Password: "secret1"}, ErrInvalidEmail},
		{"short password", model.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "12345"}, ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@x.com", "secret1")

	_, err := env.auth.Register(context.Background(), model.RegisterRequest{
		Username: "someone-else", Email: "alice@x.com", Password: "secret1",
	})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(t, "alice", "alice@x.com", "secret1")

	user, err := env.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Contains(t, user.PasswordHash, "$argon2id$")
}

func TestLoginLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice", "alice@x.com", "secret1")

	_, err := env.auth.Login(ctx, model.LoginRequest{Email: "alice@x.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	_, err = env.auth.Login(ctx, model.LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.auth.Login(ctx, model.LoginRequest{Email: "alice@x.com"})
	assert.ErrorIs(t, err, ErrMissingFields)

	resp, err := env.auth.Login(ctx, model.LoginRequest{Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Len(t, resp.Token, 64)

	info, err := env.sessions.Validate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, id, info.UserID)
	assert.Equal(t, "alice", info.Username)

	me, err := env.auth.UserInfo(ctx, info.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.UserResponse{ID: id, Username: "alice", Email: "alice@x.com"}, me)

	require.NoError(t, env.auth.Logout(ctx, resp.Token))
	_, err = env.sessions.Validate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Logging out twice is harmless.
	assert.NoError(t, env.auth.Logout(ctx, resp.Token))
	assert.ErrorIs(t, env.auth.Logout(ctx, ""), ErrMissingToken)
}

func TestLoginUpgradesBcryptHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &model.User{Username: "bob", Email: "bob@x.com", PasswordHash: string(legacy)}
	require.NoError(t, env.users.Create(ctx, user))

	_, err = env.auth.Login(ctx, model.LoginRequest{Email: "bob@x.com", Password: "secret1"})
	require.NoError(t, err)

	stored, err := env.users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.PasswordHash, "$argon2id$")

	_, err = env.auth.Login(ctx, model.LoginRequest{Email: "bob@x.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice", "alice@x.com", "secret1")
	resp, err := env.auth.Login(ctx, model.LoginRequest{Email: "alice@x.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, env.auth.DeleteAccount(ctx, id))

	_, err = env.sessions.Validate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = env.auth.UserInfo(ctx, id)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, env.auth.DeleteAccount(ctx, id), ErrUserNotFound)
}
