package model

import (
	"time"

	"gorm.io/datatypes"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat is one appended transcript. The full message list is supplied by the
// caller on every append.
type Chat struct {
	ID        string                           `gorm:"primaryKey;size:36" json:"id"`
	ClientID  string                           `gorm:"size:36;not null;index:idx_chats_client_created,priority:1" json:"client_id"`
	EmbedKey  string                           `gorm:"size:64" json:"embed_key,omitempty"`
	Messages  datatypes.JSONSlice[ChatMessage] `json:"messages"`
	CreatedAt time.Time                        `gorm:"index:idx_chats_client_created,priority:2" json:"timestamp"`
}
