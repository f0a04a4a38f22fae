package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inbox-autopilot-go/internal/model"
)

// StagedRepository stores staged actions. Status changes out of "staged" go
// through TransitionFromStaged so the one-way state machine is enforced by a
// conditional UPDATE rather than trusted caller state.
type StagedRepository struct {
	db *gorm.DB
}

func NewStagedRepository(db *gorm.DB) *StagedRepository {
	return &StagedRepository{db: db}
}

// Create inserts a new staged action.
func (r *StagedRepository) Create(ctx context.Context, staged *model.StagedAction) error {
	if result := r.db.WithContext(ctx).Create(staged); result.Error != nil {
		return fmt.Errorf("failed to create staged action: %w", result.Error)
	}
	return nil
}

// GetByID returns a staged action owned by the user, or nil if absent.
func (r *StagedRepository) GetByID(ctx context.Context, userID, stagedID string) (*model.StagedAction, error) {
	var staged model.StagedAction
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", stagedID, userID).First(&staged)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get staged action: %w", result.Error)
	}
	return &staged, nil
}

// List returns a user's staged actions, optionally filtered.
func (r *StagedRepository) List(ctx context.Context, userID, mailboxID string, status model.StagedStatus) ([]model.StagedAction, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if mailboxID != "" {
		query = query.Where("mailbox_id = ?", mailboxID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var staged []model.StagedAction
	result := query.Order("staged_at DESC").Find(&staged)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list staged actions: %w", result.Error)
	}
	return staged, nil
}

// FindExpired returns up to limit staged records whose grace period has
// passed, oldest expiry first.
func (r *StagedRepository) FindExpired(ctx context.Context, now time.Time, limit int) ([]model.StagedAction, error) {
	var staged []model.StagedAction
	result := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.StagedStatusStaged, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&staged)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find expired staged actions: %w", result.Error)
	}
	return staged, nil
}

// TransitionFromStaged atomically moves a record out of the staged status.
// It returns false when the record was not staged anymore (or never
// existed), which callers treat as "someone else got there first".
func (r *StagedRepository) TransitionFromStaged(ctx context.Context, stagedID string, next model.StagedStatus, at time.Time) (bool, error) {
	if !model.StagedStatusStaged.CanTransitionTo(next) {
		return false, fmt.Errorf("illegal staged transition to %q", next)
	}

	updates := map[string]interface{}{
		"status":     next,
		"updated_at": at,
	}
	if next == model.StagedStatusExecuted {
		updates["executed_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&model.StagedAction{}).
		Where("id = ? AND status = ?", stagedID, model.StagedStatusStaged).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to transition staged action: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountPending returns how many records are still inside the grace period.
func (r *StagedRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&model.StagedAction{}).
		Where("status = ?", model.StagedStatusStaged).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count pending staged actions: %w", result.Error)
	}
	return count, nil
}
