package model

import (
	"time"
)

// EventType identifies what happened to a message.
type EventType string

const (
	EventArrived     EventType = "arrived"
	EventDeleted     EventType = "deleted"
	EventMoved       EventType = "moved"
	EventRead        EventType = "read"
	EventFlagged     EventType = "flagged"
	EventCategorized EventType = "categorized"
)

// MailboxEvent is a single row in the append-only activity log. This service
// only reads it; ingestion and deduplication happen upstream.
type MailboxEvent struct {
	ID                uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID            string    `json:"user_id" gorm:"type:varchar(36);not null;index:idx_events_user_mailbox"`
	MailboxID         string    `json:"mailbox_id" gorm:"type:varchar(36);not null;index:idx_events_user_mailbox"`
	MessageID         string    `json:"message_id" gorm:"type:varchar(255);not null"`
	SenderEmail       string    `json:"sender_email" gorm:"type:varchar(255);not null;index"`
	SenderDomain      string    `json:"sender_domain" gorm:"type:varchar(255)"`
	EventType         EventType `json:"event_type" gorm:"type:varchar(32);not null"`
	FromFolder        string    `json:"from_folder,omitempty" gorm:"type:varchar(255)"`
	ToFolder          string    `json:"to_folder,omitempty" gorm:"type:varchar(255)"`
	AutomatedByRuleID *string   `json:"automated_by_rule_id,omitempty" gorm:"type:varchar(36);index"`
	OccurredAt        time.Time `json:"occurred_at" gorm:"not null;index"`
}

// TableName specifies the table name for MailboxEvent
func (MailboxEvent) TableName() string {
	return "mailbox_events"
}

// Automated reports whether the event was caused by a rule this system
// executed. Automated events are never used for pattern learning.
func (e *MailboxEvent) Automated() bool {
	return e.AutomatedByRuleID != nil && *e.AutomatedByRuleID != ""
}
