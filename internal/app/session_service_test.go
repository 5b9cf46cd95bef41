package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"seochat/internal/pkg/apperr"
)

func TestLoginThenValidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw1", "bob@x.com")

	for _, login := range []string{"bob", "bob@x.com"} {
		t.Run(login, func(t *testing.T) {
			result, err := env.sessions.Login(ctx, login, "pw1")
			require.NoError(t, err)
			assert.Len(t, result.SessionID, 43)
			assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), result.ExpiresAt, time.Minute)

			profile, err := env.sessions.Validate(ctx, result.SessionID)
			require.NoError(t, err)
			assert.Equal(t, "bob", profile.Username)
			assert.Equal(t, "bob", profile.CompanyName)
			assert.NotEmpty(t, profile.ClientID)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "bob", "pw1", "bob@x.com")

	_, err := env.sessions.Login(context.Background(), "bob", "wrong")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	_, err = env.sessions.Login(context.Background(), "nobody", "pw1")
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))
}

func TestValidateExpiredMatchesUnknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw1", "bob@x.com")

	clock := &fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	env.sessions.WithClock(clock.now)

	result, err := env.sessions.Login(ctx, "bob", "pw1")
	require.NoError(t, err)

	clock.t = result.ExpiresAt.Add(-time.Second)
	_, err = env.sessions.Validate(ctx, result.SessionID)
	require.NoError(t, err)

	clock.t = result.ExpiresAt
	_, expiredErr := env.sessions.Validate(ctx, result.SessionID)
	_, unknownErr := env.sessions.Validate(ctx, "no-such-session")
	_, emptyErr := env.sessions.Validate(ctx, "")

	assert.ErrorIs(t, expiredErr, ErrSessionInvalid)
	assert.Equal(t, expiredErr, unknownErr)
	assert.Equal(t, expiredErr, emptyErr)
}

func TestRevokeIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw1", "bob@x.com")

	result, err := env.sessions.Login(ctx, "bob", "pw1")
	require.NoError(t, err)

	require.NoError(t, env.sessions.Revoke(ctx, result.SessionID))
	require.NoError(t, env.sessions.Revoke(ctx, result.SessionID))
	require.NoError(t, env.sessions.Revoke(ctx, ""))

	_, err = env.sessions.Validate(ctx, result.SessionID)
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw1", "bob@x.com")

	a, err := env.sessions.Login(ctx, "bob", "pw1")
	require.NoError(t, err)
	b, err := env.sessions.Login(ctx, "bob", "pw1")
	require.NoError(t, err)
	assert.NotEqual(t, a.SessionID, b.SessionID)

	require.NoError(t, env.sessions.Revoke(ctx, a.SessionID))
	_, err = env.sessions.Validate(ctx, b.SessionID)
	assert.NoError(t, err)
}

func TestPurgeExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw1", "bob@x.com")

	clock := &fixedClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	env.sessions.WithClock(clock.now)
	_, err := env.sessions.Login(ctx, "bob", "pw1")
	require.NoError(t, err)

	clock.t = clock.t.Add(24 * time.Hour)
	live, err := env.sessions.Login(ctx, "bob", "pw1")
	require.NoError(t, err)

	clock.t = clock.t.Add(7*24*time.Hour - time.Hour)
	n, err := env.sessions.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = env.sessions.Validate(ctx, live.SessionID)
	assert.NoError(t, err)
}

func TestLoginThrottle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "bob", "pw1", "bob@x.com")

	t.Run("blocked", func(t *testing.T) {
		throttle := &fakeThrottle{allowed: false}
		svc := NewSessionService(env.store.Sessions(), env.identity, throttle, time.Hour, zap.NewNop())

		_, err := svc.Login(ctx, "bob", "pw1")
		assert.ErrorIs(t, err, ErrTooManyAttempts)
		assert.Equal(t, apperr.CodeTooManyRequests, apperr.CodeOf(err))
	})

	t.Run("records failures and resets on success", func(t *testing.T) {
		throttle := &fakeThrottle{allowed: true}
		svc := NewSessionService(env.store.Sessions(), env.identity, throttle, time.Hour, zap.NewNop())

		_, err := svc.Login(ctx, " BOB ", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredential)
		assert.Equal(t, []string{"bob"}, throttle.fails)

		_, err = svc.Login(ctx, "bob", "pw1")
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, throttle.resets)
	})

	t.Run("backend errors fail open", func(t *testing.T) {
		throttle := &fakeThrottle{allowErr: errors.New("redis down")}
		svc := NewSessionService(env.store.Sessions(), env.identity, throttle, time.Hour, zap.NewNop())

		_, err := svc.Login(ctx, "bob", "pw1")
		assert.NoError(t, err)
	})
}
