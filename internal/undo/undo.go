// Package undo reverses already-executed automated actions inside a 48-hour
// window. Reversal is best-effort against an upstream that may have moved
// on: a vanished message downgrades the result instead of failing it.
package undo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/provider"
)

// AuditStore is the audit-ledger surface the undo subsystem needs.
type AuditStore interface {
	GetByID(ctx context.Context, userID, entryID string) (*model.AuditEntry, error)
	MarkUndone(ctx context.Context, entry *model.AuditEntry, undoneBy string, at time.Time) (bool, error)
	Append(ctx context.Context, entry *model.AuditEntry) error
}

// StagedStore lets undo rescue a record that is still inside its grace
// period.
type StagedStore interface {
	TransitionFromStaged(ctx context.Context, stagedID string, next model.StagedStatus, at time.Time) (bool, error)
}

// Outcome reports how whole the reversal was.
type Outcome string

const (
	// OutcomeComplete: every recorded sub-action was reversed.
	OutcomeComplete Outcome = "complete"
	// OutcomePartial: the message vanished mid-reversal of a multi-action
	// rule; the rest was still reversed.
	OutcomePartial Outcome = "partial"
	// OutcomeBestEffort: the message was gone entirely; the intent is
	// recorded but nothing could be moved back.
	OutcomeBestEffort Outcome = "best_effort"
)

// Result is the caller-visible undo report.
type Result struct {
	Entry   *model.AuditEntry `json:"entry"`
	Outcome Outcome           `json:"outcome"`
	Reason  string            `json:"reason,omitempty"`
}

// Service reverses audited actions.
type Service struct {
	audit   AuditStore
	staged  StagedStore
	mail    provider.MailProvider
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService creates an undo service
func NewService(audit AuditStore, staged StagedStore, mail provider.MailProvider, m *metrics.Metrics) *Service {
	return &Service{
		audit:   audit,
		staged:  staged,
		mail:    mail,
		metrics: m,
		now:     time.Now,
	}
}

// Undo reverses the action an audit entry records, provided the entry is
// undoable, not already undone, and younger than the undo window.
func (s *Service) Undo(ctx context.Context, userID, entryID, undoneBy string) (*Result, error) {
	entry, err := s.audit.GetByID(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, apperr.NotFound("audit entry %s not found", entryID)
	}
	if !entry.Undoable {
		return nil, apperr.Conflict("audit entry %s is not undoable", entryID)
	}
	if entry.Undone() {
		return nil, apperr.Conflict("audit entry %s has already been undone", entryID)
	}

	now := s.now()
	if !entry.WithinUndoWindow(now) {
		return nil, apperr.Conflict("undo window for audit entry %s has expired", entryID)
	}

	var outcome Outcome
	switch entry.Action {
	case model.AuditRuleActionsExecuted:
		outcome, err = s.undoRuleActions(ctx, entry)
	case model.AuditStagedActionExecuted:
		outcome, err = s.undoExecutedStaged(ctx, entry)
	case model.AuditMessageStaged:
		outcome, err = s.undoStillStaged(ctx, entry, now)
	default:
		return nil, apperr.Conflict("audit entry %s records action %q, which has no reversal", entryID, entry.Action)
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.audit.MarkUndone(ctx, entry, undoneBy, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("audit entry %s has already been undone", entryID)
	}
	entry.UndoneAt = &now
	entry.UndoneBy = &undoneBy

	record := &model.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     entry.UserID,
		MailboxID:  entry.MailboxID,
		Action:     model.AuditActionUndone,
		TargetType: "audit_entry",
		TargetID:   entry.ID,
		Details: model.AuditDetails{
			MessageID:     entry.Details.MessageID,
			UndoneEntryID: entry.ID,
			UndoPartial:   entry.Details.UndoPartial,
			UndoFailed:    entry.Details.UndoFailed,
			UndoReason:    entry.Details.UndoReason,
		},
		CreatedAt: now,
	}
	if err := s.audit.Append(ctx, record); err != nil {
		logrus.Errorf("Failed to record undo of audit entry %s: %v", entry.ID, err)
	}

	s.observe(outcome)
	return &Result{Entry: entry, Outcome: outcome, Reason: entry.Details.UndoReason}, nil
}

// undoRuleActions reverses recorded sub-actions in reverse order. A missing
// message downgrades to a partial undo and reversal continues; any other
// upstream error aborts and leaves the entry not-undone.
func (s *Service) undoRuleActions(ctx context.Context, entry *model.AuditEntry) (Outcome, error) {
	details := &entry.Details
	outcome := OutcomeComplete

	for i := len(details.Actions) - 1; i >= 0; i-- {
		action := details.Actions[i]
		if err := s.reverseAction(ctx, details.MessageID, action, details.OriginalFolder); err != nil {
			if provider.IsNotFound(err) {
				details.UndoPartial = true
				details.UndoReason = "message no longer exists upstream"
				outcome = OutcomePartial
				continue
			}
			return outcome, err
		}
	}
	return outcome, nil
}

// undoExecutedStaged moves the message from its deleted location back to the
// recorded original folder. A missing message completes the undo as
// best-effort rather than failing it.
func (s *Service) undoExecutedStaged(ctx context.Context, entry *model.AuditEntry) (Outcome, error) {
	details := &entry.Details
	if err := s.mail.MoveMessage(ctx, details.MessageID, details.OriginalFolder); err != nil {
		if provider.IsNotFound(err) {
			details.UndoFailed = true
			details.UndoReason = "message no longer exists upstream"
			return OutcomeBestEffort, nil
		}
		return OutcomeComplete, err
	}
	return OutcomeComplete, nil
}

// undoStillStaged rescues a record still inside its grace period and moves
// the message back out of the holding folder.
func (s *Service) undoStillStaged(ctx context.Context, entry *model.AuditEntry, now time.Time) (Outcome, error) {
	details := &entry.Details

	ok, err := s.staged.TransitionFromStaged(ctx, details.StagedActionID, model.StagedStatusRescued, now)
	if err != nil {
		return OutcomeComplete, err
	}
	if !ok {
		return OutcomeComplete, apperr.Conflict("staged action %s is no longer staged", details.StagedActionID)
	}

	if err := s.mail.MoveMessage(ctx, details.MessageID, details.OriginalFolder); err != nil {
		if provider.IsNotFound(err) {
			details.UndoFailed = true
			details.UndoReason = "message no longer exists upstream"
			return OutcomeBestEffort, nil
		}
		return OutcomeComplete, err
	}
	return OutcomeComplete, nil
}

// reverseAction undoes one sub-action. Each reversal is idempotent on its
// own, so replay order matters only as far as the recorded list implies.
func (s *Service) reverseAction(ctx context.Context, messageID string, action model.RuleAction, originalFolder string) error {
	switch action.ActionType {
	case model.ActionMove, model.ActionArchive:
		return s.mail.MoveMessage(ctx, messageID, originalFolder)
	case model.ActionMarkRead:
		unread := false
		return s.mail.PatchMessage(ctx, messageID, provider.MessagePatch{IsRead: &unread})
	case model.ActionFlag:
		unflagged := false
		return s.mail.PatchMessage(ctx, messageID, provider.MessagePatch{IsFlagged: &unflagged})
	case model.ActionCategorize:
		// Strip exactly the category the rule recorded applying.
		return s.mail.PatchMessage(ctx, messageID, provider.MessagePatch{RemoveCategories: []string{action.Category}})
	case model.ActionDelete:
		// Deletes are only reached through staging; their reversal is the
		// holding-folder move-back handled by the staged paths.
		return nil
	}
	return nil
}

func (s *Service) observe(outcome Outcome) {
	if s.metrics == nil {
		return
	}
	switch outcome {
	case OutcomeComplete:
		s.metrics.UndoComplete.Inc()
	case OutcomePartial:
		s.metrics.UndoPartial.Inc()
	case OutcomeBestEffort:
		s.metrics.UndoFailed.Inc()
	}
}
