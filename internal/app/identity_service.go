package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"seochat/internal/model"
	"seochat/internal/pkg/token"
	"seochat/internal/repository"
)

// bcrypt ignores input past 72 bytes; longer passwords are rejected instead
// of being silently shortened.
const maxPasswordBytes = 72

type EmbedKeyBinder interface {
	BindEmbedKey(ctx context.Context, name, embedKey string) error
}

type IdentityService struct {
	users      UserStore
	binder     EmbedKeyBinder
	scriptURL  string
	bcryptCost int
	logger     *zap.Logger
}

type RegisterInput struct {
	Username string
	Password string
	Email    string
	Website  string
}

type RegisterResult struct {
	User     *model.User
	EmbedKey string
}

type EmbedSnippet struct {
	EmbedKey string
	Snippet  string
}

func NewIdentityService(users UserStore, binder EmbedKeyBinder, scriptURL string, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		users:      users,
		binder:     binder,
		scriptURL:  scriptURL,
		bcryptCost: bcrypt.DefaultCost,
		logger:     logger,
	}
}

// WithBcryptCost overrides the hashing cost; tests use bcrypt.MinCost.
func (s *IdentityService) WithBcryptCost(cost int) *IdentityService {
	s.bcryptCost = cost
	return s
}

// Register creates the account and provisions its client and document rows
// in one transaction. The embed key is generated up front so all three rows
// carry the same value.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	website := strings.TrimSpace(input.Website)
	password := input.Password

	if username == "" || len(username) > 64 || email == "" || len(email) > 128 {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidInput
	}
	if password == "" || len(password) > maxPasswordBytes {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password failed: %w", err)
	}
	embedKey, err := token.EmbedKey()
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		EmbedKey:     &embedKey,
	}
	if err := s.users.CreateWithTenant(ctx, user, website); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, s.conflictFor(ctx, username)
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("username", username))
	return &RegisterResult{User: user, EmbedKey: embedKey}, nil
}

// conflictFor names the unique field a duplicate registration hit.
func (s *IdentityService) conflictFor(ctx context.Context, username string) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("resolve registration conflict failed: %w", err)
	}
	if existing == nil {
		return ErrEmailExists
	}
	return ErrUsernameExists
}

// Verify resolves login as either username or email and checks the password.
func (s *IdentityService) Verify(ctx context.Context, login, password string) (*model.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredential
	}

	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredential
	}
	return user, nil
}

// EnsureEmbedKey returns the user's embed key, assigning one on first use.
func (s *IdentityService) EnsureEmbedKey(ctx context.Context, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrInvalidInput
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUserNotFound
	}
	if user.EmbedKey != nil && *user.EmbedKey != "" {
		return *user.EmbedKey, nil
	}

	candidate, err := token.EmbedKey()
	if err != nil {
		return "", err
	}
	key, err := s.users.SetEmbedKeyIfAbsent(ctx, username, candidate)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", ErrUserNotFound
	}
	return key, nil
}

// GenerateEmbed ensures the embed key, binds it to the client of the same
// name and renders the widget script tag.
func (s *IdentityService) GenerateEmbed(ctx context.Context, username string) (*EmbedSnippet, error) {
	key, err := s.EnsureEmbedKey(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.binder.BindEmbedKey(ctx, strings.TrimSpace(username), key); err != nil {
		return nil, err
	}

	snippet := fmt.Sprintf(`<script src="%s" data-embed-key="%s" defer></script>`,
		html.EscapeString(s.scriptURL), html.EscapeString(key))
	return &EmbedSnippet{EmbedKey: key, Snippet: snippet}, nil
}
