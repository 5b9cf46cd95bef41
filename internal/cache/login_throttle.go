package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per identifier in fixed windows.
type LoginThrottle struct {
	client      *redisv9.Client
	maxAttempts int64
	window      time.Duration
}

func NewLoginThrottle(client *redisv9.Client, maxAttempts int, window time.Duration) *LoginThrottle {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &LoginThrottle{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

func (t *LoginThrottle) Allow(ctx context.Context, login string) (bool, error) {
	n, err := t.client.Get(ctx, t.key(login)).Int64()
	if err == redisv9.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get login failures failed: %w", err)
	}
	return n < t.maxAttempts, nil
}

// Fail records one failure. The window starts at the first failure and is
// not extended by later ones.
func (t *LoginThrottle) Fail(ctx context.Context, login string) error {
	key := t.key(login)
	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis record login failure failed: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return fmt.Errorf("redis expire login failures failed: %w", err)
		}
	}
	return nil
}

func (t *LoginThrottle) Reset(ctx context.Context, login string) error {
	if err := t.client.Del(ctx, t.key(login)).Err(); err != nil {
		return fmt.Errorf("redis reset login failures failed: %w", err)
	}
	return nil
}

func (t *LoginThrottle) key(login string) string {
	return "login:fail:" + login
}
