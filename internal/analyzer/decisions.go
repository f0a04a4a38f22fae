package analyzer

import (
	"context"

	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/model"
)

// Approve marks a non-terminal pattern as approved for automation.
func (e *Engine) Approve(ctx context.Context, userID, patternID string) (*model.Pattern, error) {
	pattern, err := e.requireNonTerminal(ctx, userID, patternID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	pattern.Status = model.PatternApproved
	pattern.ApprovedAt = &now
	if err := e.patterns.Save(ctx, pattern); err != nil {
		return nil, err
	}

	logrus.Infof("Pattern %s approved by user %s", patternID, userID)
	return pattern, nil
}

// Reject dismisses a non-terminal pattern and starts the re-detection
// cooldown.
func (e *Engine) Reject(ctx context.Context, userID, patternID string) (*model.Pattern, error) {
	pattern, err := e.requireNonTerminal(ctx, userID, patternID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	cooldownUntil := now.AddDate(0, 0, e.cfg.RejectionCooldownDays)
	pattern.Status = model.PatternRejected
	pattern.RejectedAt = &now
	pattern.RejectionCooldownUntil = &cooldownUntil
	if err := e.patterns.Save(ctx, pattern); err != nil {
		return nil, err
	}

	logrus.Infof("Pattern %s rejected by user %s, cooldown until %s", patternID, userID, cooldownUntil.Format("2006-01-02"))
	return pattern, nil
}

// Customize replaces the suggested action on a non-terminal pattern.
func (e *Engine) Customize(ctx context.Context, userID, patternID string, action model.RuleAction) (*model.Pattern, error) {
	if err := validateAction(action); err != nil {
		return nil, err
	}

	pattern, err := e.requireNonTerminal(ctx, userID, patternID)
	if err != nil {
		return nil, err
	}

	pattern.SuggestedAction = action
	if err := e.patterns.Save(ctx, pattern); err != nil {
		return nil, err
	}
	return pattern, nil
}

func (e *Engine) requireNonTerminal(ctx context.Context, userID, patternID string) (*model.Pattern, error) {
	pattern, err := e.patterns.GetByID(ctx, userID, patternID)
	if err != nil {
		return nil, err
	}
	if pattern == nil {
		return nil, apperr.NotFound("pattern %s not found", patternID)
	}
	if pattern.Status.Terminal() {
		return nil, apperr.Conflict("pattern %s is %s and can no longer change", patternID, pattern.Status)
	}
	return pattern, nil
}

func validateAction(action model.RuleAction) error {
	switch action.ActionType {
	case model.ActionDelete, model.ActionMarkRead, model.ActionFlag:
		return nil
	case model.ActionMove, model.ActionArchive:
		if action.ToFolder == "" {
			return apperr.Validation("action %q requires a destination folder", action.ActionType)
		}
		return nil
	case model.ActionCategorize:
		if action.Category == "" {
			return apperr.Validation("action %q requires a category", action.ActionType)
		}
		return nil
	}
	return apperr.Validation("unknown action type %q", action.ActionType)
}
