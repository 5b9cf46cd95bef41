package model

import "time"

const (
	MaxExtractedTextChars = 8000
	MaxCustomPromptChars  = 2000
)

type Client struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	Name            string     `gorm:"size:191;not null;uniqueIndex" json:"name"`
	Website         string     `gorm:"size:512" json:"website"`
	ExtractedText   string     `gorm:"type:text" json:"extracted_text"`
	ExtractedTextAt *time.Time `json:"extracted_text_timestamp,omitempty"`
	CustomPrompt    string     `gorm:"type:text" json:"custom_prompt"`
	CustomPromptAt  *time.Time `json:"custom_prompt_timestamp,omitempty"`
	EmbedKey        *string    `gorm:"size:64;uniqueIndex" json:"embed_key,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
