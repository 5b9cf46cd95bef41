package model

import "time"

type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Active reports whether the session is still usable at now.
func (s *Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
