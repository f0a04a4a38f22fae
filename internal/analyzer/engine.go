package analyzer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/metrics"
	"inbox-autopilot-go/internal/model"
)

// suggestionThresholds encodes the risk ordering: irreversible actions
// demand near-certainty, reversible ones tolerate more noise. Action types
// absent from this map are never suggested.
var suggestionThresholds = map[model.ActionType]int{
	model.ActionDelete:   98,
	model.ActionMove:     85,
	model.ActionArchive:  85,
	model.ActionMarkRead: 80,
}

// senderPersistenceFloor suppresses low-confidence sender patterns from
// being written at all. Folder-routing patterns carry no such floor; the
// asymmetry is observed behavior and deliberately left as-is rather than
// harmonized. See DESIGN.md.
const senderPersistenceFloor = 50

// EventSource supplies the non-automated activity window for a mailbox.
type EventSource interface {
	FetchWindow(ctx context.Context, userID, mailboxID string, since time.Time) ([]model.MailboxEvent, error)
	ListMailboxes(ctx context.Context, userID string) ([]string, error)
}

// PatternStore is the pattern persistence surface the engine writes through.
type PatternStore interface {
	FindByTuple(ctx context.Context, userID, mailboxID string, patternType model.PatternType, senderEmail string, actionType model.ActionType) ([]model.Pattern, error)
	GetByID(ctx context.Context, userID, patternID string) (*model.Pattern, error)
	Create(ctx context.Context, pattern *model.Pattern) error
	Save(ctx context.Context, pattern *model.Pattern) error
}

// Engine aggregates mailbox activity into patterns and keeps the pattern
// store current.
type Engine struct {
	events   EventSource
	patterns PatternStore
	metrics  *metrics.Metrics
	cfg      config.AnalyzerConfig
	now      func() time.Time
}

// NewEngine creates a confidence and suggestion engine
func NewEngine(events EventSource, patterns PatternStore, m *metrics.Metrics, cfg config.AnalyzerConfig) *Engine {
	return &Engine{
		events:   events,
		patterns: patterns,
		metrics:  m,
		cfg:      cfg,
		now:      time.Now,
	}
}

// AnalyzeMailbox runs both aggregations over the observation window and
// upserts the resulting candidates.
func (e *Engine) AnalyzeMailbox(ctx context.Context, userID, mailboxID string) error {
	now := e.now()
	since := now.AddDate(0, 0, -e.cfg.WindowDays)
	recentSince := now.AddDate(0, 0, -e.cfg.RecentWindowDays)

	events, err := e.events.FetchWindow(ctx, userID, mailboxID, since)
	if err != nil {
		return err
	}

	candidates := aggregateSenders(events, e.cfg.MinSenderEvents, recentSince)
	candidates = append(candidates, aggregateFolderRoutes(events, e.cfg.MinFolderMoves, recentSince)...)

	for _, c := range candidates {
		if c.patternType == model.PatternTypeSender && c.confidence < senderPersistenceFloor {
			continue
		}
		if err := e.upsert(ctx, userID, mailboxID, c, now); err != nil {
			return err
		}
	}

	if e.metrics != nil {
		e.metrics.AnalysisRuns.Inc()
	}
	logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"mailbox_id": mailboxID,
		"events":     len(events),
		"candidates": len(candidates),
	}).Info("Mailbox analysis completed")
	return nil
}

// AnalyzeAllMailboxes analyzes every mailbox the user has activity in. A
// failure in one mailbox is logged and does not abort the others.
func (e *Engine) AnalyzeAllMailboxes(ctx context.Context, userID string) error {
	mailboxes, err := e.events.ListMailboxes(ctx, userID)
	if err != nil {
		return err
	}

	for _, mailboxID := range mailboxes {
		if err := e.AnalyzeMailbox(ctx, userID, mailboxID); err != nil {
			logrus.Errorf("Failed to analyze mailbox %s for user %s: %v", mailboxID, userID, err)
		}
	}
	return nil
}

// upsert applies the cooldown- and conflict-aware write for one candidate.
func (e *Engine) upsert(ctx context.Context, userID, mailboxID string, c candidate, now time.Time) error {
	existing, err := e.patterns.FindByTuple(ctx, userID, mailboxID, c.patternType, c.condition.SenderEmail, c.action.ActionType)
	if err != nil {
		return err
	}

	var current *model.Pattern
	for i := range existing {
		p := &existing[i]
		if p.InCooldown(now) {
			// The user dismissed this suggestion recently; do not recreate
			// or refresh it until the cooldown lapses.
			return nil
		}
		if p.Status == model.PatternApproved {
			// Already automated; a second non-terminal record would be a
			// duplicate automation source.
			return nil
		}
		if !p.Status.Terminal() {
			current = p
		}
	}

	status := model.PatternDetected
	firstSeen := c.firstSeen
	if current != nil {
		firstSeen = current.FirstSeenAt
	}
	if e.shouldSuggest(c.action.ActionType, c.confidence, firstSeen, now) {
		status = model.PatternSuggested
	}

	if current != nil {
		current.Confidence = c.confidence
		current.SampleSize = c.sampleSize
		current.ExceptionCount = c.exceptions
		current.Evidence = c.evidence
		current.Status = status
		current.LastAnalyzedAt = now
		return e.patterns.Save(ctx, current)
	}

	pattern := &model.Pattern{
		ID:              uuid.NewString(),
		UserID:          userID,
		MailboxID:       mailboxID,
		PatternType:     c.patternType,
		Status:          status,
		Confidence:      c.confidence,
		SampleSize:      c.sampleSize,
		ExceptionCount:  c.exceptions,
		Condition:       c.condition,
		SuggestedAction: c.action,
		Evidence:        c.evidence,
		FirstSeenAt:     firstSeen,
		LastAnalyzedAt:  now,
	}
	if err := e.patterns.Create(ctx, pattern); err != nil {
		return err
	}

	if e.metrics != nil {
		e.metrics.PatternsDetected.Inc()
		if status == model.PatternSuggested {
			e.metrics.PatternsSuggested.Inc()
		}
	}
	return nil
}

// shouldSuggest applies the observation floor and the per-action threshold.
func (e *Engine) shouldSuggest(actionType model.ActionType, confidence int, firstSeen, now time.Time) bool {
	threshold, known := suggestionThresholds[actionType]
	if !known {
		return false
	}
	minObservation := time.Duration(e.cfg.MinObservationDays) * 24 * time.Hour
	if now.Sub(firstSeen) < minObservation {
		return false
	}
	return confidence >= threshold
}
