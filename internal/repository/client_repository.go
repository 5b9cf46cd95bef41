package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seochat/internal/model"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

// UpsertProfile inserts the client or, when the name exists, overwrites
// website and extracted text in place. created is true when a new row was
// inserted.
func (r *ClientRepository) UpsertProfile(ctx context.Context, name, website, text string, at time.Time) (*model.Client, bool, error) {
	candidate := &model.Client{
		ID:              uuid.NewString(),
		Name:            name,
		Website:         website,
		ExtractedText:   text,
		ExtractedTextAt: &at,
	}

	var stored model.Client
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"website", "extracted_text", "extracted_text_at", "updated_at"}),
		}).Create(candidate).Error; err != nil {
			return err
		}
		return tx.Where("name = ?", name).First(&stored).Error
	})
	if err != nil {
		return nil, false, wrap("upsert client", err)
	}
	return &stored, stored.ID == candidate.ID, nil
}

func (r *ClientRepository) SetPrompt(ctx context.Context, name, prompt string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Client{}).
		Where("name = ?", name).
		Updates(map[string]any{"custom_prompt": prompt, "custom_prompt_at": at}).Error; err != nil {
		return wrap("set client prompt", err)
	}
	return nil
}

func (r *ClientRepository) SetExtractedText(ctx context.Context, name, text string, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&model.Client{}).
		Where("name = ?", name).
		Updates(map[string]any{"extracted_text": text, "extracted_text_at": at}).Error; err != nil {
		return wrap("set client extracted text", err)
	}
	return nil
}

func (r *ClientRepository) GetByName(ctx context.Context, name string) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrap("query client by name", err)
	}
	return &client, nil
}

func (r *ClientRepository) GetByEmbedKey(ctx context.Context, embedKey string) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).Where("embed_key = ?", embedKey).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrap("query client by embed key", err)
	}
	return &client, nil
}

// BindEmbedKey upserts the client by name, setting embed_key on conflict, and
// copies the key onto every document of that client.
func (r *ClientRepository) BindEmbedKey(ctx context.Context, name, embedKey string) error {
	key := embedKey
	client := &model.Client{
		ID:       uuid.NewString(),
		Name:     name,
		EmbedKey: &key,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"embed_key", "updated_at"}),
		}).Create(client).Error; err != nil {
			return err
		}
		return tx.Model(&model.Document{}).
			Where("client_name = ?", name).
			Update("embed_key", key).Error
	})
	if err != nil {
		return wrap("bind client embed key", err)
	}
	return nil
}
