package services

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/parks-gardens/fieldops-api/internal/constants"
	"github.com/parks-gardens/fieldops-api/internal/models"
	"github.com/parks-gardens/fieldops-api/internal/repository"
	"github.com/parks-gardens/fieldops-api/internal/storage"
	"github.com/parks-gardens/fieldops-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrDocumentInUse       = errors.New("document is attached to tasks; archive it instead")
	ErrInvalidApproval     = errors.New("approval status must be draft, pending, approved or archived")
	ErrNotPDF              = errors.New("only PDF files are accepted")
	ErrDocumentFileMissing = errors.New("no file uploaded for this document")
)

var pdfMagic = []byte("%PDF-")

// DocumentService manages one kind of safety document and its file. P is
// the pointer type of T so writes can go through ApplyFields.
type DocumentService[T models.SafetyDocument, P models.MutableDocument[T]] struct {
	repos    *repository.Repositories
	store    *storage.FileStore
	maxBytes int64
	docs     func(*repository.Repositories) repository.DocumentRepository[T]
	now      func() time.Time
}

// NewRiskAssessmentService creates the service for risk assessments
func NewRiskAssessmentService(repos *repository.Repositories, store *storage.FileStore, maxBytes int64) *DocumentService[models.RiskAssessment, *models.RiskAssessment] {
	return newDocumentService[models.RiskAssessment, *models.RiskAssessment](repos, store, maxBytes,
		func(r *repository.Repositories) repository.DocumentRepository[models.RiskAssessment] { return r.RiskAssessments })
}

// NewSWMSService creates the service for safe work method statements
func NewSWMSService(repos *repository.Repositories, store *storage.FileStore, maxBytes int64) *DocumentService[models.SWMSDocument, *models.SWMSDocument] {
	return newDocumentService[models.SWMSDocument, *models.SWMSDocument](repos, store, maxBytes,
		func(r *repository.Repositories) repository.DocumentRepository[models.SWMSDocument] { return r.SWMS })
}

func newDocumentService[T models.SafetyDocument, P models.MutableDocument[T]](
	repos *repository.Repositories,
	store *storage.FileStore,
	maxBytes int64,
	docs func(*repository.Repositories) repository.DocumentRepository[T],
) *DocumentService[T, P] {
	return &DocumentService[T, P]{
		repos:    repos,
		store:    store,
		maxBytes: maxBytes,
		docs:     docs,
		now:      time.Now,
	}
}

// Kind reports which document type the service manages
func (s *DocumentService[T, P]) Kind() models.DocumentType {
	var zero T
	return zero.Kind()
}

// MaxBytes is the upload size limit
func (s *DocumentService[T, P]) MaxBytes() int64 {
	return s.maxBytes
}

// List lists documents, newest first
func (s *DocumentService[T, P]) List(ctx context.Context) ([]T, error) {
	return s.list(ctx, "created_at DESC")
}

// ListByTitle lists documents alphabetically
func (s *DocumentService[T, P]) ListByTitle(ctx context.Context) ([]T, error) {
	return s.list(ctx, "title")
}

func (s *DocumentService[T, P]) list(ctx context.Context, order string) ([]T, error) {
	docs, err := s.docs(s.repos.WithContext(ctx)).List(order)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// Get returns one document
func (s *DocumentService[T, P]) Get(ctx context.Context, id uint64) (*T, error) {
	return s.find(s.repos.WithContext(ctx), id)
}

// Create creates a document. An empty document code gets a generated one.
func (s *DocumentService[T, P]) Create(ctx context.Context, fields models.DocumentFields) (*T, error) {
	fields, err := s.normalize(fields)
	if err != nil {
		return nil, err
	}
	if fields.DocumentCode == "" {
		code, err := utils.GenerateDocumentCode(s.Kind().CodePrefix())
		if err != nil {
			return nil, fmt.Errorf("failed to generate document code: %w", err)
		}
		fields.DocumentCode = code
	}

	doc := new(T)
	P(doc).ApplyFields(fields)
	if err := s.docs(s.repos.WithContext(ctx)).Create(doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// Update replaces a document's writable fields. The stored file is kept.
func (s *DocumentService[T, P]) Update(ctx context.Context, id uint64, fields models.DocumentFields) (*T, error) {
	fields, err := s.normalize(fields)
	if err != nil {
		return nil, err
	}

	docs := s.docs(s.repos.WithContext(ctx))
	doc, err := s.find(s.repos.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if fields.DocumentCode == "" {
		fields.DocumentCode = (*doc).Info().DocumentCode
	}

	P(doc).ApplyFields(fields)
	if err := docs.Update(doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return doc, nil
}

// Delete removes a document no task refers to, then its file
func (s *DocumentService[T, P]) Delete(ctx context.Context, id uint64) error {
	var filePath *string
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		doc, err := s.find(tx, id)
		if err != nil {
			return err
		}

		refs, err := tx.Tasks.CountReferencing(s.Kind(), id)
		if err != nil {
			return fmt.Errorf("failed to check task references: %w", err)
		}
		if refs > 0 {
			return ErrDocumentInUse
		}

		if _, err := s.docs(tx).Delete(id); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		filePath = (*doc).Info().FilePath
		return nil
	})
	if err != nil {
		return err
	}

	if filePath != nil {
		if err := s.store.Remove(*filePath); err != nil {
			slog.WarnContext(ctx, "failed to remove document file", "path", *filePath, "error", err)
		}
	}
	return nil
}

// Upload stores a PDF for the document, replacing any earlier file
func (s *DocumentService[T, P]) Upload(ctx context.Context, id, actorID uint64, r io.Reader) (*repository.FileInfo, error) {
	repos := s.repos.WithContext(ctx)
	doc, err := s.find(repos, id)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(len(pdfMagic))
	if err != nil || !bytes.Equal(head, pdfMagic) {
		return nil, ErrNotPDF
	}

	path, size, err := s.store.Save(string(s.Kind()), id, br, s.maxBytes)
	if err != nil {
		return nil, err
	}

	file := repository.FileInfo{
		Path:       path,
		Size:       size,
		UploadedBy: actorID,
		UploadedAt: s.now().UTC(),
	}
	if err := s.docs(repos).SetFile(id, file); err != nil {
		_ = s.store.Remove(path)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	if previous := (*doc).Info().FilePath; previous != nil && *previous != path {
		if err := s.store.Remove(*previous); err != nil {
			slog.WarnContext(ctx, "failed to remove replaced document file", "path", *previous, "error", err)
		}
	}
	return &file, nil
}

// Open returns the document's file for streaming. A row without a file,
// or a file gone from disk, is ErrDocumentFileMissing.
func (s *DocumentService[T, P]) Open(ctx context.Context, id uint64) (*os.File, os.FileInfo, *T, error) {
	doc, err := s.find(s.repos.WithContext(ctx), id)
	if err != nil {
		return nil, nil, nil, err
	}

	path := (*doc).Info().FilePath
	if path == nil || *path == "" {
		return nil, nil, nil, ErrDocumentFileMissing
	}

	f, info, err := s.store.Open(*path)
	if err != nil {
		if errors.Is(err, storage.ErrFileMissing) {
			slog.WarnContext(ctx, "document file missing on disk", "kind", s.Kind(), "id", id, "path", *path)
			return nil, nil, nil, ErrDocumentFileMissing
		}
		return nil, nil, nil, fmt.Errorf("failed to open document file: %w", err)
	}
	return f, info, doc, nil
}

func (s *DocumentService[T, P]) find(repos *repository.Repositories, id uint64) (*T, error) {
	doc, err := s.docs(repos).FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to find document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService[T, P]) normalize(f models.DocumentFields) (models.DocumentFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return f, ErrTitleRequired
	}
	if len(f.Title) > constants.MaxTitleLength {
		return f, ErrTitleTooLong
	}
	f.DocumentCode = strings.TrimSpace(f.DocumentCode)
	if f.ApprovalStatus == "" {
		f.ApprovalStatus = models.ApprovalDraft
	}
	if !f.ApprovalStatus.Valid() {
		return f, ErrInvalidApproval
	}
	if f.ReviewDate != nil {
		d := f.ReviewDate.UTC()
		f.ReviewDate = &d
	}
	return f, nil
}
