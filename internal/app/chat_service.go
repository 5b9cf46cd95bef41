package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"seochat/internal/ai"
	"seochat/internal/model"
	"seochat/internal/pkg/apperr"
)

const (
	defaultChatListLimit = 100
	maxChatMessages      = 50
)

// Completer is the stateless language-model call used by the widget.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// TranscriptPublisher hands a transcript to the async persistence path.
type TranscriptPublisher interface {
	Publish(ctx context.Context, chat model.Chat) error
}

type ChatService struct {
	chats     ChatStore
	clients   ClientStore
	documents DocumentStore
	llm       Completer
	publisher TranscriptPublisher
	now       func() time.Time
	logger    *zap.Logger
}

type ReplyInput struct {
	EmbedKey string
	Messages []model.ChatMessage
}

type ReplyResult struct {
	Reply    string
	ClientID string
}

func NewChatService(chats ChatStore, clients ClientStore, documents DocumentStore, llm Completer, publisher TranscriptPublisher, logger *zap.Logger) *ChatService {
	return &ChatService{
		chats:     chats,
		clients:   clients,
		documents: documents,
		llm:       llm,
		publisher: publisher,
		now:       utcNow,
		logger:    logger,
	}
}

// Append stores the full message list as one transcript entry.
func (s *ChatService) Append(ctx context.Context, clientID, embedKey string, messages []model.ChatMessage) (*model.Chat, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || len(messages) == 0 {
		return nil, ErrInvalidInput
	}
	chat := s.newChat(clientID, embedKey, messages)
	if err := s.chats.Create(ctx, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// List returns transcripts newest first. A nil clientID spans every tenant
// and is meant for internal callers only.
func (s *ChatService) List(ctx context.Context, clientID *string, limit int) ([]model.Chat, error) {
	if limit <= 0 {
		limit = defaultChatListLimit
	}
	return s.chats.List(ctx, clientID, limit)
}

// ListForProfile scopes the listing to the caller's own client. Asking for
// another client's transcripts is forbidden.
func (s *ChatService) ListForProfile(ctx context.Context, profile *model.UserProfile, clientID string, limit int) ([]model.Chat, error) {
	if profile == nil {
		return nil, ErrSessionInvalid
	}
	clientID = strings.TrimSpace(clientID)
	if profile.ClientID == "" {
		if clientID != "" {
			return nil, ErrChatForbidden
		}
		return []model.Chat{}, nil
	}
	if clientID != "" && clientID != profile.ClientID {
		return nil, ErrChatForbidden
	}
	own := profile.ClientID
	return s.List(ctx, &own, limit)
}

// Reply answers a widget conversation for the tenant owning embedKey. The
// transcript is recorded best-effort after the reply is produced.
func (s *ChatService) Reply(ctx context.Context, input ReplyInput) (*ReplyResult, error) {
	embedKey := strings.TrimSpace(input.EmbedKey)
	if embedKey == "" || len(input.Messages) == 0 || len(input.Messages) > maxChatMessages {
		return nil, ErrInvalidInput
	}
	for _, m := range input.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			return nil, apperr.Validation("message role must be user or assistant")
		}
		if strings.TrimSpace(m.Content) == "" {
			return nil, apperr.Validation("message content is empty")
		}
	}

	var (
		client *model.Client
		doc    *model.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.clients.GetByEmbedKey(gctx, embedKey)
		client = c
		return err
	})
	g.Go(func() error {
		d, err := s.documents.LatestByEmbedKey(gctx, embedKey)
		doc = d
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrClientNotFound
	}

	prompt := []ai.ChatMessage{{Role: "system", Content: systemPrompt(client, doc)}}
	for _, m := range input.Messages {
		prompt = append(prompt, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("chat completion failed", zap.String("client_id", client.ID), zap.Error(err))
		return nil, apperr.BadUpstream("chat completion failed", err)
	}

	transcript := append(append([]model.ChatMessage{}, input.Messages...), model.ChatMessage{Role: "assistant", Content: reply})
	s.record(ctx, s.newChat(client.ID, embedKey, transcript))

	return &ReplyResult{Reply: reply, ClientID: client.ID}, nil
}

// record never fails the caller; a lost transcript is only logged.
func (s *ChatService) record(ctx context.Context, chat model.Chat) {
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, chat)
		if err == nil {
			return
		}
		s.logger.Warn("publish transcript failed, writing directly", zap.String("chat_id", chat.ID), zap.Error(err))
	}
	if err := s.chats.Create(ctx, &chat); err != nil {
		s.logger.Error("persist transcript failed", zap.String("chat_id", chat.ID), zap.String("client_id", chat.ClientID), zap.Error(err))
	}
}

func (s *ChatService) newChat(clientID, embedKey string, messages []model.ChatMessage) model.Chat {
	return model.Chat{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		EmbedKey:  embedKey,
		Messages:  messages,
		CreatedAt: s.now(),
	}
}

func systemPrompt(client *model.Client, doc *model.Document) string {
	var b strings.Builder
	if client.CustomPrompt != "" {
		b.WriteString(client.CustomPrompt)
	} else {
		b.WriteString("You are a helpful assistant answering visitor questions for " + client.Name + ".")
	}
	if client.ExtractedText != "" {
		b.WriteString("\n\nWebsite content:\n")
		b.WriteString(client.ExtractedText)
	}
	if doc != nil && doc.PDFText != "" {
		b.WriteString("\n\nDocument content:\n")
		b.WriteString(doc.PDFText)
	}
	return b.String()
}
