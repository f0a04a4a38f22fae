package model

import (
	"time"
)

// AutomationRule is an approved pattern promoted to an executable rule.
// One rule exists per source pattern; conversion is idempotent.
type AutomationRule struct {
	ID              string       `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID          string       `json:"user_id" gorm:"type:varchar(36);not null;index"`
	MailboxID       string       `json:"mailbox_id" gorm:"type:varchar(36);not null;index"`
	Name            string       `json:"name" gorm:"type:varchar(255);not null"`
	SourcePatternID string       `json:"source_pattern_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	SenderEmail     string       `json:"sender_email" gorm:"type:varchar(255);not null"`
	Actions         []RuleAction `json:"actions" gorm:"serializer:json"`
	Enabled         bool         `json:"enabled" gorm:"default:true"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// TableName specifies the table name for AutomationRule
func (AutomationRule) TableName() string {
	return "automation_rules"
}
