package app

import (
	"context"
	"time"

	"seochat/internal/model"
)

type UserStore interface {
	CreateWithTenant(ctx context.Context, user *model.User, website string) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	SetEmbedKeyIfAbsent(ctx context.Context, username, key string) (string, error)
}

type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	GetProfile(ctx context.Context, sessionID string, now time.Time) (*model.UserProfile, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type ClientStore interface {
	UpsertProfile(ctx context.Context, name, website, text string, at time.Time) (*model.Client, bool, error)
	SetPrompt(ctx context.Context, name, prompt string, at time.Time) error
	SetExtractedText(ctx context.Context, name, text string, at time.Time) error
	GetByName(ctx context.Context, name string) (*model.Client, error)
	GetByEmbedKey(ctx context.Context, embedKey string) (*model.Client, error)
	BindEmbedKey(ctx context.Context, name, embedKey string) error
}

type DocumentStore interface {
	Create(ctx context.Context, doc *model.Document) error
	Latest(ctx context.Context, clientName string) (*model.Document, error)
	LatestByEmbedKey(ctx context.Context, embedKey string) (*model.Document, error)
	UpdateLatestText(ctx context.Context, clientName, text string) (bool, error)
}

type ChatStore interface {
	Create(ctx context.Context, chat *model.Chat) error
	List(ctx context.Context, clientID *string, limit int) ([]model.Chat, error)
}

// Stores groups one implementation of every store, SQL-backed or in-memory.
type Stores struct {
	Users     UserStore
	Sessions  SessionStore
	Clients   ClientStore
	Documents DocumentStore
	Chats     ChatStore
}
