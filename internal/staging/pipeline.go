// Package staging parks destructive automated actions behind a grace period
// and executes them once it lapses, tolerating an upstream that may have
// moved on (messages gone, rate limits) without losing forward progress.
package staging

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/apperr"
	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
	"inbox-autopilot-go/internal/provider"
)

// StagedStore is the staged-action persistence surface.
type StagedStore interface {
	Create(ctx context.Context, staged *model.StagedAction) error
	GetByID(ctx context.Context, userID, stagedID string) (*model.StagedAction, error)
	List(ctx context.Context, userID, mailboxID string, status model.StagedStatus) ([]model.StagedAction, error)
	FindExpired(ctx context.Context, now time.Time, limit int) ([]model.StagedAction, error)
	TransitionFromStaged(ctx context.Context, stagedID string, next model.StagedStatus, at time.Time) (bool, error)
	CountPending(ctx context.Context) (int64, error)
}

// AuditWriter appends to the audit ledger.
type AuditWriter interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
}

// Pipeline is the staged action safety pipeline.
type Pipeline struct {
	store    StagedStore
	audit    AuditWriter
	mail     provider.MailProvider
	metrics  *metrics.Metrics
	notifier Notifier
	cfg      config.StagingConfig
	now      func() time.Time

	mu             sync.Mutex
	holdingFolders map[string]string // mailbox ID -> holding folder ID
}

// NewPipeline creates a staged action pipeline
func NewPipeline(store StagedStore, audit AuditWriter, mail provider.MailProvider, m *metrics.Metrics, notifier Notifier, cfg config.StagingConfig) *Pipeline {
	return &Pipeline{
		store:          store,
		audit:          audit,
		mail:           mail,
		metrics:        m,
		notifier:       notifier,
		cfg:            cfg,
		now:            time.Now,
		holdingFolders: make(map[string]string),
	}
}

// Stage relocates a message into the holding folder and records a staged
// action with a 24-hour expiry.
func (p *Pipeline) Stage(ctx context.Context, userID, mailboxID, ruleID, messageID, originalFolder string, actions []model.RuleAction) (*model.StagedAction, error) {
	holdingID, err := p.ensureHoldingFolder(ctx, mailboxID)
	if err != nil {
		return nil, err
	}

	if err := p.mail.MoveMessage(ctx, messageID, holdingID); err != nil {
		return nil, err
	}

	now := p.now()
	staged := &model.StagedAction{
		ID:             uuid.NewString(),
		UserID:         userID,
		MailboxID:      mailboxID,
		RuleID:         ruleID,
		MessageID:      messageID,
		OriginalFolder: originalFolder,
		Status:         model.StagedStatusStaged,
		Actions:        actions,
		StagedAt:       now,
		ExpiresAt:      now.Add(model.StagingGracePeriod),
		CleanupAt:      now.Add(model.StagingGracePeriod + model.StagingCleanupPeriod),
	}
	if err := p.store.Create(ctx, staged); err != nil {
		return nil, err
	}

	entry := &model.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		MailboxID:  mailboxID,
		Action:     model.AuditMessageStaged,
		TargetType: "staged_action",
		TargetID:   staged.ID,
		Details: model.AuditDetails{
			MessageID:      messageID,
			OriginalFolder: originalFolder,
			Actions:        actions,
			StagedActionID: staged.ID,
			RuleID:         ruleID,
		},
		Undoable:  true,
		CreatedAt: now,
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.StagedCreated.Inc()
	}
	p.notify(func(n Notifier) { n.StagedCreated(staged) })

	logrus.WithFields(logrus.Fields{
		"staged_id":  staged.ID,
		"message_id": messageID,
		"expires_at": staged.ExpiresAt,
	}).Info("Message staged for deferred execution")
	return staged, nil
}

// Rescue cancels a pending staged action. Rescuing an already-rescued
// record is a no-op, not an error; any other terminal status is a conflict.
func (p *Pipeline) Rescue(ctx context.Context, userID, stagedID string) (*model.StagedAction, error) {
	staged, err := p.store.GetByID(ctx, userID, stagedID)
	if err != nil {
		return nil, err
	}
	if staged == nil {
		return nil, apperr.NotFound("staged action %s not found", stagedID)
	}

	now := p.now()
	ok, err := p.store.TransitionFromStaged(ctx, stagedID, model.StagedStatusRescued, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		if staged.Status == model.StagedStatusRescued {
			return staged, nil
		}
		return nil, apperr.Conflict("staged action %s is already %s", stagedID, staged.Status)
	}
	staged.Status = model.StagedStatusRescued

	entry := &model.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     userID,
		MailboxID:  staged.MailboxID,
		Action:     model.AuditStagedActionRescued,
		TargetType: "staged_action",
		TargetID:   staged.ID,
		Details: model.AuditDetails{
			MessageID:      staged.MessageID,
			OriginalFolder: staged.OriginalFolder,
			StagedActionID: staged.ID,
		},
		CreatedAt: now,
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		return nil, err
	}

	if p.metrics != nil {
		p.metrics.StagedRescued.Inc()
	}
	p.notify(func(n Notifier) { n.StagedRescued(staged) })
	return staged, nil
}

// RescueBatch applies the rescue guard across a set of IDs and returns the
// records actually transitioned. Missing or already-terminal records are
// skipped, not errors.
func (p *Pipeline) RescueBatch(ctx context.Context, userID string, stagedIDs []string) ([]model.StagedAction, error) {
	var rescued []model.StagedAction
	for _, id := range stagedIDs {
		staged, err := p.store.GetByID(ctx, userID, id)
		if err != nil {
			return rescued, err
		}
		if staged == nil || staged.Status != model.StagedStatusStaged {
			continue
		}
		updated, err := p.Rescue(ctx, userID, id)
		if err != nil {
			if apperr.IsConflict(err) {
				continue
			}
			return rescued, err
		}
		rescued = append(rescued, *updated)
	}
	return rescued, nil
}

// ensureHoldingFolder resolves the per-mailbox holding folder ID, creating
// the folder on first use. The fill is idempotent: a concurrent cold lookup
// finds the folder already exists upstream.
func (p *Pipeline) ensureHoldingFolder(ctx context.Context, mailboxID string) (string, error) {
	p.mu.Lock()
	if id, ok := p.holdingFolders[mailboxID]; ok {
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	id, err := p.mail.FindOrCreateFolder(ctx, p.cfg.HoldingFolder)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.holdingFolders[mailboxID] = id
	p.mu.Unlock()
	return id, nil
}

func (p *Pipeline) notify(fn func(Notifier)) {
	if p.notifier == nil {
		return
	}
	// Notification is best-effort and must never delay or fail the
	// transactional outcome it follows.
	go fn(p.notifier)
}
