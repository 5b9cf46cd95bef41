package handler

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"seochat/internal/app"
	"seochat/internal/pkg/apperr"
	"seochat/internal/transport/http/response"
)

const maxUploadBytes = 10<<20 + 1

type DocumentHandler struct {
	documents *app.DocumentService
}

type UpdatePDFTextRequest struct {
	Name    string `form:"name" json:"name" binding:"required"`
	PDFText string `form:"pdf_text" json:"pdf_text"`
}

func NewDocumentHandler(documents *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

// Upload reads the multipart field "file", or "pdf_file" for older forms.
func (h *DocumentHandler) Upload(c *gin.Context) {
	clientName := c.PostForm("client_name")
	header, err := c.FormFile("file")
	if err != nil {
		header, err = c.FormFile("pdf_file")
	}
	if err != nil {
		response.Error(c, apperr.Validation("file is required"))
		return
	}

	data, err := readUpload(header)
	if err != nil {
		response.Error(c, err)
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), app.UploadInput{
		ClientName:  clientName,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": fmt.Sprintf("uploaded %s", doc.FileName)})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	file, err := h.documents.GetLatest(c.Request.Context(), c.Param("client_name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition(file.FileName))
	c.Data(http.StatusOK, "application/pdf", file.Data)
}

func (h *DocumentHandler) GetText(c *gin.Context) {
	text, err := h.documents.GetLatestText(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"pdf_text": text})
}

func (h *DocumentHandler) UpdateText(c *gin.Context) {
	var req UpdatePDFTextRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, app.ErrInvalidInput)
		return
	}
	if err := h.documents.UpdateLatestText(c.Request.Context(), req.Name, req.PDFText); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "pdf text updated"})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload failed: %w", err)
	}
	defer f.Close()

	// one byte past the limit lets the service reject oversize files
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read upload failed: %w", err)
	}
	return data, nil
}

// contentDisposition marks the response as a download; non-ASCII names are
// sent as an RFC 2231 filename* parameter.
func contentDisposition(fileName string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": sanitizeFileName(fileName)}); v != "" {
		return v
	}
	return "attachment"
}

func sanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "document.pdf"
	}
	return name
}
