package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoria/mentoria-go/internal/repository"
)

func TestSessionExpiredImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice", "alice@x.com", "secret1")

	session, err := env.sessions.CreateWithTTL(ctx, id, 0)
	require.NoError(t, err)

	_, err = env.sessions.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionExpiresWithClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice", "alice@x.com", "secret1")

	session, err := env.sessions.CreateWithTTL(ctx, id, time.Hour)
	require.NoError(t, err)
	_, err = env.sessions.Validate(ctx, session.Token)
	require.NoError(t, err)

	env.sessions.now = func() time.Time { return session.ExpiresAt }
	_, err = env.sessions.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionValidateUnknownAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.sessions.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = env.sessions.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionRejectsInactiveUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice", "alice@x.com", "secret1")
	resp, err := env.auth.Login(ctx, loginReq("alice@x.com", "secret1"))
	require.NoError(t, err)

	_, err = env.users.SetActive(ctx, "alice@x.com", false)
	require.NoError(t, err)

	_, err = env.sessions.Validate(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionCacheReadThrough(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	env.sessions.WithCache(repository.NewSessionCache(client, time.Hour))
	id := env.register(t, "alice", "alice@x.com", "secret1")

	session, err := env.sessions.Create(ctx, id)
	require.NoError(t, err)
	_, err = env.sessions.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Len(t, mr.Keys(), 2, "session entry and user index")

	require.NoError(t, env.sessions.RevokeUser(ctx, id))
	_, err = env.sessions.Validate(ctx, session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionCacheOutageFallsBackToStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	env.sessions.WithCache(repository.NewSessionCache(client, time.Hour))
	id := env.register(t, "alice", "alice@x.com", "secret1")
	session, err := env.sessions.Create(ctx, id)
	require.NoError(t, err)

	mr.Close()
	info, err := env.sessions.Validate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, id, info.UserID)
}
