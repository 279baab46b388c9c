package repository

import (
	"context"
	"strings"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) ListDocuments(ctx context.Context, filter DocumentFilter) ([]models.Document, error) {
	var docs []models.Document

	query := r.db.WithContext(ctx).Model(&models.Document{})
	if filter.ParsedOnly {
		query = query.Where("parsed = ?", true)
	}
	if filter.OrphanedOnly {
		query = query.Where("orphaned = ?", true)
	}

	err := query.Order("id ASC").Find(&docs).Error
	return docs, err
}

// GetDocument fetch a single document by ID
func (r *DocumentRepository) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &doc, nil
}

// SearchDocuments used for the manual attach dialog
func (r *DocumentRepository) SearchDocuments(ctx context.Context, query string, limit int) ([]models.Document, error) {
	var docs []models.Document

	dbQuery := r.db.WithContext(ctx).Model(&models.Document{})
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		dbQuery = dbQuery.Where(
			"LOWER(vendor_name) LIKE ? OR LOWER(invoice_number) LIKE ? OR LOWER(name) LIKE ?",
			like, like, like,
		)
	}
	if limit > 0 {
		dbQuery = dbQuery.Limit(limit)
	}

	err := dbQuery.Order("id ASC").Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(doc).Error
}
