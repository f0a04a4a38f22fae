package model

import (
	"time"
)

// StagedStatus is the lifecycle state of a staged action. Only staged
// records may transition; every other status is terminal.
type StagedStatus string

const (
	StagedStatusStaged   StagedStatus = "staged"
	StagedStatusRescued  StagedStatus = "rescued"
	StagedStatusExecuted StagedStatus = "executed"
	StagedStatusExpired  StagedStatus = "expired"
)

// CanTransitionTo validates a status change: staged -> {rescued, executed,
// expired}; all other statuses are terminal.
func (s StagedStatus) CanTransitionTo(next StagedStatus) bool {
	if s != StagedStatusStaged {
		return false
	}
	switch next {
	case StagedStatusRescued, StagedStatusExecuted, StagedStatusExpired:
		return true
	}
	return false
}

// Grace and retention windows for staged actions.
const (
	StagingGracePeriod   = 24 * time.Hour
	StagingCleanupPeriod = 7 * 24 * time.Hour
)

// StagedAction is a destructive action parked behind the grace period. The
// message itself sits in the holding folder until the sweep executes the
// recorded actions or the user rescues it.
type StagedAction struct {
	ID             string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID         string       `json:"user_id" gorm:"type:varchar(36);not null;index:idx_staged_user_mailbox"`
	MailboxID      string       `json:"mailbox_id" gorm:"type:varchar(36);not null;index:idx_staged_user_mailbox"`
	RuleID         string       `json:"rule_id" gorm:"type:varchar(36);not null;index"`
	MessageID      string       `json:"message_id" gorm:"type:varchar(255);not null"`
	OriginalFolder string       `json:"original_folder" gorm:"type:varchar(255);not null"`
	Status         StagedStatus `json:"status" gorm:"type:varchar(16);not null;index:idx_staged_status_expiry"`
	Actions        []RuleAction `json:"actions" gorm:"serializer:json"`
	StagedAt       time.Time    `json:"staged_at" gorm:"not null"`
	ExpiresAt      time.Time    `json:"expires_at" gorm:"not null;index:idx_staged_status_expiry"`
	CleanupAt      time.Time    `json:"cleanup_at" gorm:"not null"`
	ExecutedAt     *time.Time   `json:"executed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// TableName specifies the table name for StagedAction
func (StagedAction) TableName() string {
	return "staged_actions"
}

// ContainsDelete reports whether the action list includes a delete step.
func (s *StagedAction) ContainsDelete() bool {
	return ActionsContainDelete(s.Actions)
}

// ActionsContainDelete reports whether any action in the list is a delete.
func ActionsContainDelete(actions []RuleAction) bool {
	for _, a := range actions {
		if a.ActionType == ActionDelete {
			return true
		}
	}
	return false
}
