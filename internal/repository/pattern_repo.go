package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"inbox-autopilot-go/internal/model"
)

// PatternRepository stores detected behavior patterns.
type PatternRepository struct {
	db *gorm.DB
}

func NewPatternRepository(db *gorm.DB) *PatternRepository {
	return &PatternRepository{db: db}
}

// GetByID returns a pattern owned by the user, or nil if absent.
func (r *PatternRepository) GetByID(ctx context.Context, userID, patternID string) (*model.Pattern, error) {
	var pattern model.Pattern
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", patternID, userID).First(&pattern)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", result.Error)
	}
	return &pattern, nil
}

// FindByTuple returns every pattern record for the uniqueness tuple
// (user, mailbox, type, sender, action), any status. The analyzer inspects
// them for cooldown, approved duplicates, and in-place update candidates.
func (r *PatternRepository) FindByTuple(ctx context.Context, userID, mailboxID string, patternType model.PatternType, senderEmail string, actionType model.ActionType) ([]model.Pattern, error) {
	var patterns []model.Pattern
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND mailbox_id = ? AND pattern_type = ?", userID, mailboxID, patternType).
		Find(&patterns)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find patterns by tuple: %w", result.Error)
	}

	// Condition and action live in JSON columns, so the sender/action part
	// of the tuple is matched here rather than in SQL.
	matched := patterns[:0]
	for _, p := range patterns {
		if p.Condition.SenderEmail == senderEmail && p.SuggestedAction.ActionType == actionType {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

// List returns a user's patterns, optionally filtered by mailbox and status.
func (r *PatternRepository) List(ctx context.Context, userID, mailboxID string, status model.PatternStatus) ([]model.Pattern, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if mailboxID != "" {
		query = query.Where("mailbox_id = ?", mailboxID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var patterns []model.Pattern
	result := query.Order("confidence DESC").Find(&patterns)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", result.Error)
	}
	return patterns, nil
}

// Create inserts a new pattern.
func (r *PatternRepository) Create(ctx context.Context, pattern *model.Pattern) error {
	if result := r.db.WithContext(ctx).Create(pattern); result.Error != nil {
		return fmt.Errorf("failed to create pattern: %w", result.Error)
	}
	return nil
}

// Save persists all fields of an existing pattern.
func (r *PatternRepository) Save(ctx context.Context, pattern *model.Pattern) error {
	if result := r.db.WithContext(ctx).Save(pattern); result.Error != nil {
		return fmt.Errorf("failed to save pattern: %w", result.Error)
	}
	return nil
}
