package staging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/provider"
)

// SweepResult summarizes one expiry sweep or batch execution.
type SweepResult struct {
	Executed    int `json:"executed"`
	Expired     int `json:"expired"`
	RateLimited int `json:"rate_limited"`
	Failed      int `json:"failed"`
	Skipped     int `json:"skipped"`
}

type itemOutcome int

const (
	outcomeExecuted itemOutcome = iota
	outcomeExpired
	outcomeRateLimited
	outcomeFailed
	outcomeSkipped
)

// Sweep processes staged records whose grace period has passed. Items run
// in fixed-size concurrent chunks; a single item's failure never affects
// its siblings.
func (p *Pipeline) Sweep(ctx context.Context) (*SweepResult, error) {
	start := p.now()

	expired, err := p.store.FindExpired(ctx, start, p.cfg.SweepBatch)
	if err != nil {
		return nil, err
	}

	result := p.processBatch(ctx, expired)

	if p.metrics != nil {
		p.metrics.SweepDuration.Observe(time.Since(start).Seconds())
		if pending, err := p.store.CountPending(ctx); err == nil {
			p.metrics.PendingStaged.Set(float64(pending))
		}
	}

	if len(expired) > 0 {
		logrus.WithFields(logrus.Fields{
			"batch":        len(expired),
			"executed":     result.Executed,
			"expired":      result.Expired,
			"rate_limited": result.RateLimited,
			"failed":       result.Failed,
		}).Info("Staged action sweep completed")
	}
	return result, nil
}

// ExecuteNow runs a single staged record immediately, bypassing the expiry
// wait.
func (p *Pipeline) ExecuteNow(ctx context.Context, userID, stagedID string) (*model.StagedAction, error) {
	staged, err := p.store.GetByID(ctx, userID, stagedID)
	if err != nil {
		return nil, err
	}
	if staged == nil {
		return nil, apperr.NotFound("staged action %s not found", stagedID)
	}
	if staged.Status != model.StagedStatusStaged {
		return nil, apperr.Conflict("staged action %s is already %s", stagedID, staged.Status)
	}

	switch p.processItem(ctx, staged) {
	case outcomeExecuted:
		return p.store.GetByID(ctx, userID, stagedID)
	case outcomeExpired:
		return p.store.GetByID(ctx, userID, stagedID)
	case outcomeRateLimited:
		return nil, &provider.RateLimitedError{}
	default:
		return nil, apperr.Conflict("staged action %s could not be executed, will retry on next sweep", stagedID)
	}
}

// ExecuteBatch runs a set of staged records immediately with the same
// bounded concurrency as the sweep.
func (p *Pipeline) ExecuteBatch(ctx context.Context, userID string, stagedIDs []string) (*SweepResult, error) {
	var items []model.StagedAction
	for _, id := range stagedIDs {
		staged, err := p.store.GetByID(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if staged == nil || staged.Status != model.StagedStatusStaged {
			continue
		}
		items = append(items, *staged)
	}
	result := p.processBatch(ctx, items)
	return result, nil
}

// processBatch runs items in chunks of SweepChunk concurrent workers to
// bound load on the upstream mail service.
func (p *Pipeline) processBatch(ctx context.Context, items []model.StagedAction) *SweepResult {
	result := &SweepResult{}
	var mu sync.Mutex

	chunk := p.cfg.SweepChunk
	if chunk <= 0 {
		chunk = 1
	}

	for offset := 0; offset < len(items); offset += chunk {
		end := offset + chunk
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			staged := items[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome := p.processItem(ctx, &staged)

				mu.Lock()
				switch outcome {
				case outcomeExecuted:
					result.Executed++
				case outcomeExpired:
					result.Expired++
				case outcomeRateLimited:
					result.RateLimited++
				case outcomeFailed:
					result.Failed++
				case outcomeSkipped:
					result.Skipped++
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
	}
	return result
}

// processItem executes one staged record's actions in order against the
// upstream service and settles its terminal status.
func (p *Pipeline) processItem(ctx context.Context, staged *model.StagedAction) itemOutcome {
	now := p.now()

	for _, action := range staged.Actions {
		if err := p.ApplyAction(ctx, staged.MessageID, action); err != nil {
			switch {
			case provider.IsNotFound(err):
				// The message is already gone: manually deleted or rescued
				// out-of-band. Count as handled, not as a failure.
				ok, terr := p.store.TransitionFromStaged(ctx, staged.ID, model.StagedStatusExpired, now)
				if terr != nil {
					logrus.Errorf("Failed to expire staged action %s: %v", staged.ID, terr)
					return outcomeFailed
				}
				if !ok {
					return outcomeSkipped
				}
				if p.metrics != nil {
					p.metrics.SweepExpired.Inc()
				}
				return outcomeExpired
			case provider.IsRateLimited(err):
				// Leave staged; the next sweep retries.
				if p.metrics != nil {
					p.metrics.SweepRateLimited.Inc()
				}
				return outcomeRateLimited
			default:
				logrus.Errorf("Staged action %s failed upstream, will retry: %v", staged.ID, err)
				if p.metrics != nil {
					p.metrics.SweepFailures.Inc()
				}
				return outcomeFailed
			}
		}
	}

	ok, err := p.store.TransitionFromStaged(ctx, staged.ID, model.StagedStatusExecuted, now)
	if err != nil {
		logrus.Errorf("Failed to mark staged action %s executed: %v", staged.ID, err)
		return outcomeFailed
	}
	if !ok {
		// Rescued between selection and completion.
		return outcomeSkipped
	}

	entry := &model.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     staged.UserID,
		MailboxID:  staged.MailboxID,
		Action:     model.AuditStagedActionExecuted,
		TargetType: "staged_action",
		TargetID:   staged.ID,
		Details: model.AuditDetails{
			MessageID:      staged.MessageID,
			OriginalFolder: staged.OriginalFolder,
			Actions:        staged.Actions,
			StagedActionID: staged.ID,
			RuleID:         staged.RuleID,
		},
		Undoable:  true,
		CreatedAt: now,
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		logrus.Errorf("Failed to audit executed staged action %s: %v", staged.ID, err)
	}

	if p.metrics != nil {
		p.metrics.SweepExecuted.Inc()
	}
	return outcomeExecuted
}

// ApplyAction performs one sub-action against the upstream service.
func (p *Pipeline) ApplyAction(ctx context.Context, messageID string, action model.RuleAction) error {
	switch action.ActionType {
	case model.ActionDelete:
		return p.mail.MoveMessage(ctx, messageID, p.cfg.DeletedFolder)
	case model.ActionMove:
		return p.mail.MoveMessage(ctx, messageID, action.ToFolder)
	case model.ActionArchive:
		folder := action.ToFolder
		if folder == "" {
			folder = "Archive"
		}
		return p.mail.MoveMessage(ctx, messageID, folder)
	case model.ActionMarkRead:
		read := true
		return p.mail.PatchMessage(ctx, messageID, provider.MessagePatch{IsRead: &read})
	case model.ActionFlag:
		flagged := true
		return p.mail.PatchMessage(ctx, messageID, provider.MessagePatch{IsFlagged: &flagged})
	case model.ActionCategorize:
		categories := []string{action.Category}
		return p.mail.PatchMessage(ctx, messageID, provider.MessagePatch{Categories: &categories})
	}
	return apperr.Validation("unknown action type %q", action.ActionType)
}
