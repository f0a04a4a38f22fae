package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"inbox-autopilot-go/internal/model"
)

// RuleRepository stores automation rules created from approved patterns.
type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Create inserts a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *model.AutomationRule) error {
	if result := r.db.WithContext(ctx).Create(rule); result.Error != nil {
		return fmt.Errorf("failed to create rule: %w", result.Error)
	}
	return nil
}

// GetByID returns a rule owned by the user, or nil if absent.
func (r *RuleRepository) GetByID(ctx context.Context, userID, ruleID string) (*model.AutomationRule, error) {
	var rule model.AutomationRule
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", ruleID, userID).First(&rule)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get rule: %w", result.Error)
	}
	return &rule, nil
}

// FindBySourcePattern returns the rule converted from a pattern, or nil.
// Conversion is idempotent because of this lookup plus the unique index on
// source_pattern_id.
func (r *RuleRepository) FindBySourcePattern(ctx context.Context, patternID string) (*model.AutomationRule, error) {
	var rule model.AutomationRule
	result := r.db.WithContext(ctx).Where("source_pattern_id = ?", patternID).First(&rule)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find rule by source pattern: %w", result.Error)
	}
	return &rule, nil
}
