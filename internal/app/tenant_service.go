package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"seochat/internal/model"
	"seochat/internal/pkg/apperr"
)

// TextExtractor fetches a page and returns its visible text.
type TextExtractor interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type TenantService struct {
	clients   ClientStore
	extractor TextExtractor
	now       func() time.Time
	logger    *zap.Logger
}

type UpsertResult struct {
	ClientID string
	Created  bool
}

func NewTenantService(clients ClientStore, extractor TextExtractor, logger *zap.Logger) *TenantService {
	return &TenantService{
		clients:   clients,
		extractor: extractor,
		now:       utcNow,
		logger:    logger,
	}
}

// RegisterWebsite scrapes website and upserts the client profile with the
// result. Scrape failures surface as BAD_UPSTREAM and nothing is written.
func (s *TenantService) RegisterWebsite(ctx context.Context, name, website string) (*UpsertResult, error) {
	name = strings.TrimSpace(name)
	website = strings.TrimSpace(website)
	if name == "" || website == "" {
		return nil, ErrInvalidInput
	}

	text, err := s.extractor.Fetch(ctx, website)
	if err != nil {
		s.logger.Warn("website extraction failed", zap.String("client", name), zap.String("website", website), zap.Error(err))
		return nil, apperr.BadUpstream("could not extract text from website", err)
	}
	return s.UpsertProfile(ctx, name, website, text)
}

func (s *TenantService) UpsertProfile(ctx context.Context, name, website, extractedText string) (*UpsertResult, error) {
	if name == "" {
		return nil, ErrInvalidInput
	}
	client, created, err := s.clients.UpsertProfile(ctx, name, website, truncate(extractedText, model.MaxExtractedTextChars), s.now())
	if err != nil {
		return nil, err
	}
	return &UpsertResult{ClientID: client.ID, Created: created}, nil
}

// SetPrompt overwrites the custom prompt; only the first 2000 characters
// are kept.
func (s *TenantService) SetPrompt(ctx context.Context, name, prompt string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}
	return s.clients.SetPrompt(ctx, name, truncate(prompt, model.MaxCustomPromptChars), s.now())
}

func (s *TenantService) UpdateExtractedText(ctx context.Context, name, text string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidInput
	}
	return s.clients.SetExtractedText(ctx, name, truncate(text, model.MaxExtractedTextChars), s.now())
}

func (s *TenantService) GetProfile(ctx context.Context, name string) (*model.Client, error) {
	client, err := s.clients.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

func (s *TenantService) GetByEmbedKey(ctx context.Context, embedKey string) (*model.Client, error) {
	if embedKey == "" {
		return nil, ErrClientNotFound
	}
	client, err := s.clients.GetByEmbedKey(ctx, embedKey)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}
	return client, nil
}

// BindEmbedKey keeps the client's embed key in lockstep with its user's.
func (s *TenantService) BindEmbedKey(ctx context.Context, name, embedKey string) error {
	if name == "" || embedKey == "" {
		return ErrInvalidInput
	}
	return s.clients.BindEmbedKey(ctx, name, embedKey)
}
