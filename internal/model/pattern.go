package model

import (
	"time"
)

// PatternType identifies what kind of behavioral regularity was detected.
type PatternType string

const (
	PatternTypeSender        PatternType = "sender"
	PatternTypeFolderRouting PatternType = "folder-routing"
)

// PatternStatus is the lifecycle state of a detected pattern.
type PatternStatus string

const (
	PatternDetected  PatternStatus = "detected"
	PatternSuggested PatternStatus = "suggested"
	PatternApproved  PatternStatus = "approved"
	PatternRejected  PatternStatus = "rejected"
	PatternExpired   PatternStatus = "expired"
)

// Terminal reports whether the status can never change again through
// analysis. Approved patterns can still be converted to rules, but analysis
// will not touch them.
func (s PatternStatus) Terminal() bool {
	switch s {
	case PatternApproved, PatternRejected, PatternExpired:
		return true
	}
	return false
}

// CanTransitionTo validates a status change. Analysis may move a pattern
// between detected and suggested as confidence crosses the gate; only an
// explicit user decision reaches a terminal state.
func (s PatternStatus) CanTransitionTo(next PatternStatus) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case PatternDetected, PatternSuggested, PatternApproved, PatternRejected, PatternExpired:
		return true
	}
	return false
}

// ActionType is a mailbox operation a rule can perform.
type ActionType string

const (
	ActionDelete     ActionType = "delete"
	ActionMove       ActionType = "move"
	ActionArchive    ActionType = "archive"
	ActionMarkRead   ActionType = "markRead"
	ActionFlag       ActionType = "flag"
	ActionCategorize ActionType = "categorize"
)

// RuleAction is a single step in a rule's (or staged record's) action list.
type RuleAction struct {
	ActionType ActionType `json:"action_type"`
	ToFolder   string     `json:"to_folder,omitempty"`
	Category   string     `json:"category,omitempty"`
}

// PatternCondition describes what the pattern matches on.
type PatternCondition struct {
	SenderEmail  string `json:"sender_email"`
	SenderDomain string `json:"sender_domain,omitempty"`
	ToFolder     string `json:"to_folder,omitempty"`
}

// EvidenceItem is one of the recent events retained for user review.
type EvidenceItem struct {
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
	Action    EventType `json:"action"`
}

// MaxEvidenceItems caps the evidence retained per pattern.
const MaxEvidenceItems = 10

// Pattern is a detected behavioral regularity with a confidence score and a
// proposed automated action. At most one non-terminal pattern exists per
// (user, mailbox, type, sender, action) tuple.
type Pattern struct {
	ID                     string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID                 string           `json:"user_id" gorm:"type:varchar(36);not null;index:idx_patterns_user_mailbox"`
	MailboxID              string           `json:"mailbox_id" gorm:"type:varchar(36);not null;index:idx_patterns_user_mailbox"`
	PatternType            PatternType      `json:"pattern_type" gorm:"type:varchar(32);not null"`
	Status                 PatternStatus    `json:"status" gorm:"type:varchar(16);not null;index"`
	Confidence             int              `json:"confidence" gorm:"not null"`
	SampleSize             int              `json:"sample_size" gorm:"not null"`
	ExceptionCount         int              `json:"exception_count" gorm:"not null"`
	Condition              PatternCondition `json:"condition" gorm:"serializer:json"`
	SuggestedAction        RuleAction       `json:"suggested_action" gorm:"serializer:json"`
	Evidence               []EvidenceItem   `json:"evidence" gorm:"serializer:json"`
	FirstSeenAt            time.Time        `json:"first_seen_at"`
	LastAnalyzedAt         time.Time        `json:"last_analyzed_at"`
	ApprovedAt             *time.Time       `json:"approved_at,omitempty"`
	RejectedAt             *time.Time       `json:"rejected_at,omitempty"`
	RejectionCooldownUntil *time.Time       `json:"rejection_cooldown_until,omitempty"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Pattern
func (Pattern) TableName() string {
	return "patterns"
}

// InCooldown reports whether a rejected pattern is still suppressing
// re-detection of its tuple.
func (p *Pattern) InCooldown(now time.Time) bool {
	return p.Status == PatternRejected &&
		p.RejectionCooldownUntil != nil &&
		now.Before(*p.RejectionCooldownUntil)
}
