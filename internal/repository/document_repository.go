package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"seochat/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *model.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return wrap("create document", err)
	}
	return nil
}

func (r *DocumentRepository) Latest(ctx context.Context, clientName string) (*model.Document, error) {
	return r.latest(r.db.WithContext(ctx), "client_name = ?", clientName)
}

func (r *DocumentRepository) LatestByEmbedKey(ctx context.Context, embedKey string) (*model.Document, error) {
	return r.latest(r.db.WithContext(ctx), "embed_key = ?", embedKey)
}

// UpdateLatestText overwrites pdf_text of the most recent document only.
// Reports false when the client has no document.
func (r *DocumentRepository) UpdateLatestText(ctx context.Context, clientName, text string) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doc, err := r.latest(tx, "client_name = ?", clientName)
		if err != nil || doc == nil {
			return err
		}
		found = true
		return tx.Model(&model.Document{}).Where("id = ?", doc.ID).Update("pdf_text", text).Error
	})
	if err != nil {
		return false, wrap("update latest document text", err)
	}
	return found, nil
}

func (r *DocumentRepository) latest(db *gorm.DB, cond string, arg any) (*model.Document, error) {
	var doc model.Document
	err := db.Where(cond, arg).
		Where("placeholder = ?", false).
		Order("uploaded_at DESC").
		Order("id DESC").
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, wrap("query latest document", err)
	}
	return &doc, nil
}
