package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"seochat/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return wrap("create session", err)
	}
	return nil
}

// GetProfile joins an unexpired session to its user and the client of the
// same name. Returns nil, nil when the session is unknown or expired.
func (r *SessionRepository) GetProfile(ctx context.Context, sessionID string, now time.Time) (*model.UserProfile, error) {
	var rows []model.UserProfile
	err := r.db.WithContext(ctx).
		Table("sessions AS s").
		Select("u.id AS user_id, u.username, u.email, "+
			"COALESCE(c.name, u.username) AS company_name, "+
			"COALESCE(c.website, '') AS website, "+
			"COALESCE(c.id, '') AS client_id").
		Joins("JOIN users AS u ON u.id = s.user_id").
		Joins("LEFT JOIN clients AS c ON c.name = u.username").
		Where("s.id = ? AND s.expires_at > ?", sessionID, now).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("query session profile", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&model.Session{}).Error; err != nil {
		return wrap("delete session", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.Session{})
	if res.Error != nil {
		return 0, wrap("delete expired sessions", res.Error)
	}
	return res.RowsAffected, nil
}
