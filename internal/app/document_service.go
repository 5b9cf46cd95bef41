package app

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"seochat/internal/model"
	"seochat/internal/pkg/apperr"
)

const maxPDFSize = 10 << 20 // 10 MB

type PDFTextExtractor interface {
	Extract(data []byte) (string, error)
}

// BlobStore keeps raw document bytes outside the database.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

type DocumentService struct {
	documents  DocumentStore
	clients    ClientStore
	extractor  PDFTextExtractor
	blobs      BlobStore
	blobPrefix string
	now        func() time.Time
	logger     *zap.Logger
}

type UploadInput struct {
	ClientName  string
	FileName    string
	ContentType string
	Data        []byte
}

type StoredFile struct {
	FileName string
	Data     []byte
}

// NewDocumentService stores bytes inline when blobs is nil.
func NewDocumentService(documents DocumentStore, clients ClientStore, extractor PDFTextExtractor, blobs BlobStore, blobPrefix string, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		documents:  documents,
		clients:    clients,
		extractor:  extractor,
		blobs:      blobs,
		blobPrefix: blobPrefix,
		now:        utcNow,
		logger:     logger,
	}
}

// Upload validates the PDF, extracts its text and stores a new version.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	clientName := strings.TrimSpace(input.ClientName)
	if clientName == "" || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}
	if len(input.Data) > maxPDFSize {
		return nil, apperr.Validation("file too large (max 10MB)")
	}
	if !looksLikePDF(input) {
		return nil, ErrNotPDF
	}

	text, err := s.extractor.Extract(input.Data)
	if err != nil {
		s.logger.Warn("pdf text extraction failed", zap.String("client", clientName), zap.String("file", input.FileName), zap.Error(err))
		return nil, apperr.Wrap(apperr.CodeValidation, "failed to extract text from PDF", err)
	}
	return s.Put(ctx, clientName, filepath.Base(input.FileName), input.Data, text)
}

// Put inserts a new document row; earlier versions are kept untouched.
func (s *DocumentService) Put(ctx context.Context, clientName, fileName string, data []byte, text string) (*model.Document, error) {
	if clientName == "" {
		return nil, ErrInvalidInput
	}

	doc := &model.Document{
		ClientName: clientName,
		FileName:   fileName,
		PDFText:    truncate(text, model.MaxPDFTextChars),
		UploadedAt: s.now(),
	}

	client, err := s.clients.GetByName(ctx, clientName)
	if err != nil {
		return nil, err
	}
	if client != nil && client.EmbedKey != nil {
		key := *client.EmbedKey
		doc.EmbedKey = &key
	}

	if s.blobs != nil {
		key := path.Join(s.blobPrefix, clientName, uuid.NewString()+".pdf")
		if err := s.blobs.Put(ctx, key, data, "application/pdf"); err != nil {
			return nil, fmt.Errorf("store document bytes failed: %w", err)
		}
		doc.ObjectKey = key
	} else {
		doc.FileData = data
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) GetLatest(ctx context.Context, clientName string) (*StoredFile, error) {
	doc, err := s.latest(ctx, clientName)
	if err != nil {
		return nil, err
	}

	data := doc.FileData
	if doc.ObjectKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("document %d is in object storage but no blob store is configured", doc.ID)
		}
		if data, err = s.blobs.Get(ctx, doc.ObjectKey); err != nil {
			return nil, fmt.Errorf("load document bytes failed: %w", err)
		}
	}
	return &StoredFile{FileName: doc.FileName, Data: data}, nil
}

func (s *DocumentService) GetLatestText(ctx context.Context, clientName string) (string, error) {
	doc, err := s.latest(ctx, clientName)
	if err != nil {
		return "", err
	}
	return doc.PDFText, nil
}

// UpdateLatestText edits pdf_text of the newest document only.
func (s *DocumentService) UpdateLatestText(ctx context.Context, clientName, text string) error {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return ErrInvalidInput
	}
	found, err := s.documents.UpdateLatestText(ctx, clientName, truncate(text, model.MaxPDFTextChars))
	if err != nil {
		return err
	}
	if !found {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *DocumentService) latest(ctx context.Context, clientName string) (*model.Document, error) {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.documents.Latest(ctx, clientName)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func looksLikePDF(input UploadInput) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(input.ContentType, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(input.FileName))
	if ct != "application/pdf" && ext != ".pdf" {
		return false
	}
	return bytes.HasPrefix(input.Data, []byte("%PDF-"))
}
