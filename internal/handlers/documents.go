package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/dto"
	apierrors "github.com/parks-gardens/fieldops-api/internal/errors"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/services"
)

// multipartOverhead allows for form boundaries and headers around the file.
const multipartOverhead = 1 << 20

// DocumentHandler serves one kind of safety document
type DocumentHandler[T models.SafetyDocument, P models.MutableDocument[T]] struct {
	documentService *services.DocumentService[T, P]
}

func NewDocumentHandler[T models.SafetyDocument, P models.MutableDocument[T]](documentService *services.DocumentService[T, P]) *DocumentHandler[T, P] {
	return &DocumentHandler[T, P]{documentService: documentService}
}

// ListDocuments returns documents newest first
func (h *DocumentHandler[T, P]) ListDocuments(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

// ListByTitle returns documents alphabetically, for task form pickers
func (h *DocumentHandler[T, P]) ListByTitle(c *gin.Context) {
	docs, err := h.documentService.ListByTitle(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

// GetDocument returns one document
func (h *DocumentHandler[T, P]) GetDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// CreateDocument creates a document
func (h *DocumentHandler[T, P]) CreateDocument(c *gin.Context) {
	var req models.DocumentFields
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	doc, err := h.documentService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// UpdateDocument replaces a document's fields
func (h *DocumentHandler[T, P]) UpdateDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req models.DocumentFields
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	doc, err := h.documentService.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document that no task references
func (h *DocumentHandler[T, P]) DeleteDocument(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s deleted successfully", h.documentService.Kind().Label()),
		"id":      id,
	})
}

// UploadFile stores a PDF against the document
func (h *DocumentHandler[T, P]) UploadFile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.documentService.MaxBytes()+multipartOverhead)
	header, err := c.FormFile(constants.UploadFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.PayloadTooLarge(c, "File exceeds the upload size limit")
			return
		}
		apierrors.BadRequest(c, "No file uploaded")
		return
	}

	if mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type")); err != nil || mediaType != constants.PDFContentType {
		apierrors.UnsupportedMediaType(c, "Only PDF files are allowed")
		return
	}

	f, err := header.Open()
	if err != nil {
		apierrors.BadRequest(c, "Could not read uploaded file")
		return
	}
	defer f.Close()

	file, err := h.documentService.Upload(c.Request.Context(), id, userID, f)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UploadResult{
		Message:  "File uploaded successfully",
		FilePath: file.Path,
		FileSize: file.Size,
	})
}

// DownloadFile streams the document's PDF inline for embedded viewers
func (h *DocumentHandler[T, P]) DownloadFile(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	f, info, doc, err := h.documentService.Open(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	name := downloadName((*doc).Info())
	c.Header("Content-Type", constants.PDFContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
}

func downloadName(info models.DocumentInfo) string {
	base := info.DocumentCode
	if base == "" {
		base = info.Title
	}
	base = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' || r < 0x20 {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = fmt.Sprintf("document-%d", info.ID)
	}
	return base + ".pdf"
}
