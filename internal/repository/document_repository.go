package repository

import (
	"github.com/parks-gardens/fieldops-api/internal/models"
	"gorm.io/gorm"
)

// GormDocumentRepository is a GORM implementation of DocumentRepository
type GormDocumentRepository[T models.SafetyDocument] struct {
	db *gorm.DB
}

// NewDocumentRepository creates a DocumentRepository for one document table
func NewDocumentRepository[T models.SafetyDocument](db *gorm.DB) DocumentRepository[T] {
	return &GormDocumentRepository[T]{db: db}
}

// List lists documents in the given order
func (r *GormDocumentRepository[T]) List(order string) ([]T, error) {
	docs := []T{}
	if err := r.db.Order(order).Order("id").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// FindByID finds a document by ID
func (r *GormDocumentRepository[T]) FindByID(id uint64) (*T, error) {
	doc := new(T)
	if err := r.db.First(doc, id).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// Create creates a new document
func (r *GormDocumentRepository[T]) Create(doc *T) error {
	return r.db.Create(doc).Error
}

// Update updates a document
func (r *GormDocumentRepository[T]) Update(doc *T) error {
	return r.db.Save(doc).Error
}

// Delete removes a document
func (r *GormDocumentRepository[T]) Delete(id uint64) (int64, error) {
	result := r.db.Delete(new(T), id)
	return result.RowsAffected, result.Error
}

// SetFile records the stored file for a document
func (r *GormDocumentRepository[T]) SetFile(id uint64, file FileInfo) error {
	result := r.db.Model(new(T)).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"file_path":   file.Path,
			"file_size":   file.Size,
			"upload_date": file.UploadedAt,
			"uploaded_by": file.UploadedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
