package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seochat/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithTenant inserts the user and, in the same transaction, upserts the
// client registered under the username and attaches the embed key to that
// client's documents (inserting a placeholder when it has none).
func (r *UserRepository) CreateWithTenant(ctx context.Context, user *model.User, website string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		client := &model.Client{
			ID:       uuid.NewString(),
			Name:     user.Username,
			Website:  website,
			EmbedKey: user.EmbedKey,
		}
		updates := []string{"embed_key", "updated_at"}
		if website != "" {
			updates = append(updates, "website")
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).Create(client).Error; err != nil {
			return err
		}

		res := tx.Model(&model.Document{}).
			Where("client_name = ?", user.Username).
			Update("embed_key", user.EmbedKey)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		return tx.Create(&model.Document{
			ClientName:  user.Username,
			EmbedKey:    user.EmbedKey,
			Placeholder: true,
			UploadedAt:  now,
		}).Error
	})
	if err != nil {
		return wrap("create user", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrap("query user by username", err)
	}
	return &user, nil
}

// GetByLogin matches login against username or email in one query. Emails
// are stored lowercased.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrap("query user by login", err)
	}
	return &user, nil
}

// SetEmbedKeyIfAbsent assigns key only when the user has none yet and returns
// the key stored afterwards. Concurrent callers converge on the first write.
// An empty result with a nil error means the user does not exist.
func (r *UserRepository) SetEmbedKeyIfAbsent(ctx context.Context, username, key string) (string, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&model.User{}).
		Where("username = ? AND embed_key IS NULL", username).
		Update("embed_key", key).Error; err != nil {
		return "", wrap("set embed key", err)
	}

	user, err := r.GetByUsername(ctx, username)
	if err != nil || user == nil {
		return "", err
	}
	if user.EmbedKey == nil {
		return "", errors.New("set embed key failed: key not persisted")
	}
	return *user.EmbedKey, nil
}
