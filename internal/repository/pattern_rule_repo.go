package repository

import (
	"context"
	"time"

	"document-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatternRuleRepository struct {
	db *gorm.DB
}

func NewPatternRuleRepository(db *gorm.DB) *PatternRuleRepository {
	return &PatternRuleRepository{db: db}
}

func (r *PatternRuleRepository) ListPatternRules(ctx context.Context) ([]models.PatternRule, error) {
	var rules []models.PatternRule
	err := r.db.WithContext(ctx).Order("id ASC").Find(&rules).Error
	return rules, err
}

func (r *PatternRuleRepository) CreatePatternRule(ctx context.Context, rule *models.PatternRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(rule).Error
}
