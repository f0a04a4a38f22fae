package model

import (
	"time"
)

// AuditAction identifies the kind of state change an audit entry records.
// The undo subsystem dispatches on this value.
type AuditAction string

const (
	// AuditRuleActionsExecuted records a rule's non-staged actions running
	// against a message. Undoable: sub-actions are reversed in reverse order.
	AuditRuleActionsExecuted AuditAction = "rule_actions_executed"
	// AuditStagedActionExecuted records the sweep (or immediate execute)
	// completing a staged record. Undoable: the message is moved back.
	AuditStagedActionExecuted AuditAction = "staged_action_executed"
	// AuditMessageStaged records a message entering the holding folder.
	// Undoable while the record is still staged.
	AuditMessageStaged AuditAction = "message_staged"
	// AuditStagedActionRescued records a rescue. Not undoable.
	AuditStagedActionRescued AuditAction = "staged_action_rescued"
	// AuditActionUndone records an undo itself. Never undoable, which is
	// what prevents undo chains.
	AuditActionUndone AuditAction = "action_undone"
)

// UndoWindow is how long an executed action stays reversible.
const UndoWindow = 48 * time.Hour

// AuditDetails carries exactly what a reversal needs, plus post-hoc flags
// set when a reversal could not be made whole.
type AuditDetails struct {
	MessageID      string       `json:"message_id,omitempty"`
	OriginalFolder string       `json:"original_folder,omitempty"`
	Actions        []RuleAction `json:"actions,omitempty"`
	StagedActionID string       `json:"staged_action_id,omitempty"`
	RuleID         string       `json:"rule_id,omitempty"`
	UndoneEntryID  string       `json:"undone_entry_id,omitempty"`
	UndoPartial    bool         `json:"undo_partial,omitempty"`
	UndoFailed     bool         `json:"undo_failed,omitempty"`
	UndoReason     string       `json:"undo_reason,omitempty"`
}

// AuditEntry is an append-only record of a state-changing action. The only
// mutation permitted after creation is stamping undoneAt/undoneBy once (and
// the undo flags inside Details alongside it).
type AuditEntry struct {
	ID         string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID     string       `json:"user_id" gorm:"type:varchar(36);not null;index"`
	MailboxID  string       `json:"mailbox_id" gorm:"type:varchar(36);not null;index"`
	Action     AuditAction  `json:"action" gorm:"type:varchar(48);not null"`
	TargetType string       `json:"target_type" gorm:"type:varchar(32);not null"`
	TargetID   string       `json:"target_id" gorm:"type:varchar(255);not null"`
	Details    AuditDetails `json:"details" gorm:"serializer:json"`
	Undoable   bool         `json:"undoable" gorm:"not null"`
	UndoneAt   *time.Time   `json:"undone_at,omitempty"`
	UndoneBy   *string      `json:"undone_by,omitempty" gorm:"type:varchar(36)"`
	CreatedAt  time.Time    `json:"created_at" gorm:"index"`
}

// TableName specifies the table name for AuditEntry
func (AuditEntry) TableName() string {
	return "audit_entries"
}

// Undone reports whether the entry has already been reversed.
func (a *AuditEntry) Undone() bool {
	return a.UndoneAt != nil
}

// WithinUndoWindow reports whether the entry is still young enough to undo.
func (a *AuditEntry) WithinUndoWindow(now time.Time) bool {
	return now.Sub(a.CreatedAt) <= UndoWindow
}
