package repository

import (
	"context"

	"gorm.io/gorm"

	"seochat/internal/model"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, chat *model.Chat) error {
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return wrap("create chat", err)
	}
	return nil
}

// List returns transcripts newest first. Transcripts with the same
// created_at are ordered by id, which is random, not by insertion. A nil
// clientID lists every tenant; limit <= 0 means no limit.
func (r *ChatRepository) List(ctx context.Context, clientID *string, limit int) ([]model.Chat, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if clientID != nil {
		q = q.Where("client_id = ?", *clientID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	chats := make([]model.Chat, 0)
	if err := q.Find(&chats).Error; err != nil {
		return nil, wrap("list chats", err)
	}
	return chats, nil
}
