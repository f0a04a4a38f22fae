package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inbox-autopilot-go/internal/model"
)

// AuditRepository stores the append-only audit ledger. The only mutation
// after insert is the one-shot undone stamp.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts a new audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditEntry) error {
	if result := r.db.WithContext(ctx).Create(entry); result.Error != nil {
		return fmt.Errorf("failed to append audit entry: %w", result.Error)
	}
	return nil
}

// GetByID returns an audit entry owned by the user, or nil if absent.
func (r *AuditRepository) GetByID(ctx context.Context, userID, entryID string) (*model.AuditEntry, error) {
	var entry model.AuditEntry
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", entryID, userID).First(&entry)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get audit entry: %w", result.Error)
	}
	return &entry, nil
}

// List returns a user's audit entries, newest first, optionally filtered by
// mailbox.
func (r *AuditRepository) List(ctx context.Context, userID, mailboxID string, limit int) ([]model.AuditEntry, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if mailboxID != "" {
		query = query.Where("mailbox_id = ?", mailboxID)
	}
	if limit <= 0 {
		limit = 100
	}

	var entries []model.AuditEntry
	result := query.Order("created_at DESC").Limit(limit).Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", result.Error)
	}
	return entries, nil
}

// MarkUndone stamps undoneAt/undoneBy exactly once, persisting the updated
// details (partial/failed flags) alongside. Returns false when the entry was
// already undone.
func (r *AuditRepository) MarkUndone(ctx context.Context, entry *model.AuditEntry, undoneBy string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AuditEntry{}).
		Where("id = ? AND undone_at IS NULL", entry.ID).
		Updates(map[string]interface{}{
			"undone_at": at,
			"undone_by": undoneBy,
			"details":   entry.Details,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark audit entry undone: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// UpdateDetails persists detail flags (partial undo reasons) without
// touching the undone stamp.
func (r *AuditRepository) UpdateDetails(ctx context.Context, entry *model.AuditEntry) error {
	result := r.db.WithContext(ctx).
		Model(&model.AuditEntry{}).
		Where("id = ?", entry.ID).
		Update("details", entry.Details)
	if result.Error != nil {
		return fmt.Errorf("failed to update audit details: %w", result.Error)
	}
	return nil
}
