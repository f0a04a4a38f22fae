package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"inbox-autopilot-go/internal/model"
)

// EventRepository reads the append-only mailbox activity log. Writes happen
// in the ingestion layer, not here.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// FetchWindow returns all non-automated events for a mailbox since the given
// time, oldest first. Events caused by automation are excluded so the engine
// never learns from its own actions.
func (r *EventRepository) FetchWindow(ctx context.Context, userID, mailboxID string, since time.Time) ([]model.MailboxEvent, error) {
	var events []model.MailboxEvent
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND mailbox_id = ? AND occurred_at >= ?", userID, mailboxID, since).
		Where("automated_by_rule_id IS NULL OR automated_by_rule_id = ''").
		Order("occurred_at ASC").
		Find(&events)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", result.Error)
	}
	return events, nil
}

// ListUsers returns the distinct users with any recorded activity.
func (r *EventRepository) ListUsers(ctx context.Context) ([]string, error) {
	var users []string
	result := r.db.WithContext(ctx).
		Model(&model.MailboxEvent{}).
		Distinct("user_id").
		Pluck("user_id", &users)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list users: %w", result.Error)
	}
	return users, nil
}

// ListMailboxes returns the distinct mailboxes a user has activity in.
func (r *EventRepository) ListMailboxes(ctx context.Context, userID string) ([]string, error) {
	var mailboxes []string
	result := r.db.WithContext(ctx).
		Model(&model.MailboxEvent{}).
		Where("user_id = ?", userID).
		Distinct("mailbox_id").
		Pluck("mailbox_id", &mailboxes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", result.Error)
	}
	return mailboxes, nil
}
