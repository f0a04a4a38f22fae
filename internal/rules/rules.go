// Package rules bridges approved patterns to executable automation: pattern
// conversion and the dispatch that routes rule actions into the staging
// pipeline or immediate execution.
package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/staging"
)

// PatternGetter resolves patterns for conversion.
type PatternGetter interface {
	GetByID(ctx context.Context, userID, patternID string) (*model.Pattern, error)
}

// RuleStore is the rule persistence surface.
type RuleStore interface {
	Create(ctx context.Context, rule *model.AutomationRule) error
	GetByID(ctx context.Context, userID, ruleID string) (*model.AutomationRule, error)
	FindBySourcePattern(ctx context.Context, patternID string) (*model.AutomationRule, error)
}

// Service converts patterns to rules and dispatches rule actions.
type Service struct {
	patterns PatternGetter
	rules    RuleStore
	pipeline *staging.Pipeline
	audit    staging.AuditWriter
	now      func() time.Time
}

// NewService creates a rule service
func NewService(patterns PatternGetter, rules RuleStore, pipeline *staging.Pipeline, audit staging.AuditWriter) *Service {
	return &Service{
		patterns: patterns,
		rules:    rules,
		pipeline: pipeline,
		audit:    audit,
		now:      time.Now,
	}
}

// ConvertPatternToRule promotes an approved pattern to an automation rule.
// Converting an already-converted pattern returns the existing rule.
func (s *Service) ConvertPatternToRule(ctx context.Context, userID, patternID string) (*model.AutomationRule, error) {
	pattern, err := s.patterns.GetByID(ctx, userID, patternID)
	if err != nil {
		return nil, err
	}
	if pattern == nil {
		return nil, apperr.NotFound("pattern %s not found", patternID)
	}

	existing, err := s.rules.FindBySourcePattern(ctx, patternID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if pattern.Status != model.PatternApproved {
		return nil, apperr.Conflict("pattern %s is %s, only approved patterns convert to rules", patternID, pattern.Status)
	}

	rule := &model.AutomationRule{
		ID:              uuid.NewString(),
		UserID:          pattern.UserID,
		MailboxID:       pattern.MailboxID,
		Name:            fmt.Sprintf("Auto %s for %s", pattern.SuggestedAction.ActionType, pattern.Condition.SenderEmail),
		SourcePatternID: pattern.ID,
		SenderEmail:     pattern.Condition.SenderEmail,
		Actions:         []model.RuleAction{pattern.SuggestedAction},
		Enabled:         true,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		// A concurrent conversion may have won the unique index race.
		if winner, ferr := s.rules.FindBySourcePattern(ctx, patternID); ferr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}

	logrus.Infof("Pattern %s converted to rule %s", patternID, rule.ID)
	return rule, nil
}

// Dispatch routes a rule's actions for one message. Destructive dispatches
// go through staging unless explicitly bypassed; everything else executes
// immediately and is recorded as an undoable audit entry.
func (s *Service) Dispatch(ctx context.Context, rule *model.AutomationRule, messageID, originalFolder string, bypassStaging bool) error {
	if !rule.Enabled {
		return apperr.Conflict("rule %s is disabled", rule.ID)
	}

	if model.ActionsContainDelete(rule.Actions) && !bypassStaging {
		_, err := s.pipeline.Stage(ctx, rule.UserID, rule.MailboxID, rule.ID, messageID, originalFolder, rule.Actions)
		return err
	}

	for _, action := range rule.Actions {
		if err := s.pipeline.ApplyAction(ctx, messageID, action); err != nil {
			return err
		}
	}

	entry := &model.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     rule.UserID,
		MailboxID:  rule.MailboxID,
		Action:     model.AuditRuleActionsExecuted,
		TargetType: "message",
		TargetID:   messageID,
		Details: model.AuditDetails{
			MessageID:      messageID,
			OriginalFolder: originalFolder,
			Actions:        rule.Actions,
			RuleID:         rule.ID,
		},
		Undoable:  true,
		CreatedAt: s.now(),
	}
	return s.audit.Append(ctx, entry)
}
