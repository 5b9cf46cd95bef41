package model

import "time"

const MaxPDFTextChars = 1_000_000

// Document is one uploaded artifact. Rows are never overwritten; the latest
// non-placeholder row per client is the addressable one.
type Document struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClientName  string    `gorm:"size:191;not null;index:idx_documents_client_uploaded,priority:1" json:"client_name"`
	EmbedKey    *string   `gorm:"size:64;index" json:"embed_key,omitempty"`
	FileName    string    `gorm:"size:255" json:"file_name"`
	FileData    []byte    `json:"-"`
	ObjectKey   string    `gorm:"size:512" json:"-"`
	PDFText     string    `gorm:"size:4000000" json:"pdf_text"`
	Placeholder bool      `gorm:"not null;default:false" json:"-"`
	UploadedAt  time.Time `gorm:"not null;index:idx_documents_client_uploaded,priority:2" json:"uploaded_at"`
}
