package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"seochat/internal/model"
	"seochat/internal/pkg/token"
)

type CredentialVerifier interface {
	Verify(ctx context.Context, login, password string) (*model.User, error)
}

// LoginThrottle counts failed logins per login identifier.
type LoginThrottle interface {
	Allow(ctx context.Context, login string) (bool, error)
	Fail(ctx context.Context, login string) error
	Reset(ctx context.Context, login string) error
}

type SessionService struct {
	sessions SessionStore
	verifier CredentialVerifier
	throttle LoginThrottle
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

type LoginResult struct {
	SessionID string
	ExpiresAt time.Time
	User      *model.User
}

func NewSessionService(sessions SessionStore, verifier CredentialVerifier, throttle LoginThrottle, ttl time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		verifier: verifier,
		throttle: throttle,
		ttl:      ttl,
		now:      utcNow,
		logger:   logger,
	}
}

// WithClock replaces the time source.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

func (s *SessionService) TTL() time.Duration { return s.ttl }

// Login verifies credentials and opens a new session. Throttle backend
// failures are logged and do not block the login.
func (s *SessionService) Login(ctx context.Context, login, password string) (*LoginResult, error) {
	key := strings.ToLower(strings.TrimSpace(login))

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, key)
		if err != nil {
			s.logger.Warn("login throttle check failed", zap.Error(err))
		} else if !allowed {
			return nil, ErrTooManyAttempts
		}
	}

	user, err := s.verifier.Verify(ctx, login, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) && s.throttle != nil {
			if ferr := s.throttle.Fail(ctx, key); ferr != nil {
				s.logger.Warn("login throttle record failed", zap.Error(ferr))
			}
		}
		return nil, err
	}

	if s.throttle != nil {
		if rerr := s.throttle.Reset(ctx, key); rerr != nil {
			s.logger.Warn("login throttle reset failed", zap.Error(rerr))
		}
	}

	session, err := s.Create(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{SessionID: session.ID, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (s *SessionService) Create(ctx context.Context, userID uint) (*model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	id, err := token.SessionID()
	if err != nil {
		return nil, err
	}
	now := s.now()
	session := &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate is evaluated against the store on every call; an unknown and an
// expired session are indistinguishable to the caller.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (*model.UserProfile, error) {
	if sessionID == "" {
		return nil, ErrSessionInvalid
	}
	profile, err := s.sessions.GetProfile(ctx, sessionID, s.now())
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrSessionInvalid
	}
	return profile, nil
}

// Revoke deletes the session. Revoking an absent session is not an error.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sessionID)
}

// PurgeExpired removes expired rows; validity never depends on it.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}
