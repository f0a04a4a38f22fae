package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-autopilot-go/internal/config"
	"inbox-autopilot-go/internal/model"
)

type fakeEventSource struct {
	events    []model.MailboxEvent
	mailboxes []string
}

func (f *fakeEventSource) FetchWindow(ctx context.Context, userID, mailboxID string, since time.Time) ([]model.MailboxEvent, error) {
	return f.events, nil
}

func (f *fakeEventSource) ListMailboxes(ctx context.Context, userID string) ([]string, error) {
	return f.mailboxes, nil
}

type fakePatternStore struct {
	patterns []*model.Pattern
}

func (f *fakePatternStore) FindByTuple(ctx context.Context, userID, mailboxID string, patternType model.PatternType, senderEmail string, actionType model.ActionType) ([]model.Pattern, error) {
	var out []model.Pattern
	for _, p := range f.patterns {
		if p.UserID == userID && p.MailboxID == mailboxID && p.PatternType == patternType &&
			p.Condition.SenderEmail == senderEmail && p.SuggestedAction.ActionType == actionType {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePatternStore) GetByID(ctx context.Context, userID, patternID string) (*model.Pattern, error) {
	for _, p := range f.patterns {
		if p.UserID == userID && p.ID == patternID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePatternStore) Create(ctx context.Context, pattern *model.Pattern) error {
	f.patterns = append(f.patterns, pattern)
	return nil
}

func (f *fakePatternStore) Save(ctx context.Context, pattern *model.Pattern) error {
	for i, p := range f.patterns {
		if p.ID == pattern.ID {
			f.patterns[i] = pattern
			return nil
		}
	}
	f.patterns = append(f.patterns, pattern)
	return nil
}

func testAnalyzerConfig() config.AnalyzerConfig {
	return config.AnalyzerConfig{
		WindowDays:            90,
		RecentWindowDays:      7,
		MinSenderEvents:       10,
		MinFolderMoves:        5,
		MinObservationDays:    14,
		RejectionCooldownDays: 30,
	}
}

func newTestEngine(events *fakeEventSource, patterns *fakePatternStore, now time.Time) *Engine {
	e := NewEngine(events, patterns, nil, testAnalyzerConfig())
	e.now = func() time.Time { return now }
	return e
}

// senderEvents fabricates a window of activity from one sender: total events
// spread over the past month, deleteCount of them deletions.
func senderEvents(sender string, total, deleteCount int, now time.Time) []model.MailboxEvent {
	events := make([]model.MailboxEvent, 0, total)
	for i := 0; i < total; i++ {
		eventType := model.EventArrived
		if i < deleteCount {
			eventType = model.EventDeleted
		}
		events = append(events, model.MailboxEvent{
			UserID:      "u1",
			MailboxID:   "m1",
			MessageID:   "msg",
			SenderEmail: sender,
			EventType:   eventType,
			OccurredAt:  now.AddDate(0, 0, -30).Add(time.Duration(i) * time.Hour),
		})
	}
	return events
}

func TestAnalyzeMailboxDetectsSenderPattern(t *testing.T) {
	now := time.Now()
	events := &fakeEventSource{events: senderEvents("news@example.com", 20, 15, now)}
	store := &fakePatternStore{}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	require.Len(t, store.patterns, 1)
	p := store.patterns[0]
	assert.Equal(t, model.PatternTypeSender, p.PatternType)
	assert.Equal(t, "news@example.com", p.Condition.SenderEmail)
	assert.Equal(t, model.ActionDelete, p.SuggestedAction.ActionType)
	assert.Equal(t, 20, p.SampleSize)
	assert.Equal(t, 5, p.ExceptionCount)
	// 75% delete rate is well under the delete threshold of 98.
	assert.Equal(t, model.PatternDetected, p.Status)
}

func TestAnalyzeMailboxSuggestsAtThreshold(t *testing.T) {
	now := time.Now()
	events := &fakeEventSource{events: senderEvents("spam@example.com", 50, 50, now)}
	store := &fakePatternStore{}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	require.Len(t, store.patterns, 1)
	p := store.patterns[0]
	assert.GreaterOrEqual(t, p.Confidence, 98)
	assert.Equal(t, model.PatternSuggested, p.Status)
}

func TestAnalyzeMailboxObservationFloorBlocksSuggestion(t *testing.T) {
	now := time.Now()
	// 100% delete rate, but all of it inside the past week: too young to
	// suggest, so it stays detected.
	var events []model.MailboxEvent
	for i := 0; i < 20; i++ {
		events = append(events, model.MailboxEvent{
			SenderEmail: "new@example.com",
			EventType:   model.EventDeleted,
			OccurredAt:  now.AddDate(0, 0, -5).Add(time.Duration(i) * time.Hour),
		})
	}
	store := &fakePatternStore{}

	engine := newTestEngine(&fakeEventSource{events: events}, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	require.Len(t, store.patterns, 1)
	p := store.patterns[0]
	assert.GreaterOrEqual(t, p.Confidence, 98)
	assert.Equal(t, model.PatternDetected, p.Status)
}

func TestAnalyzeMailboxObservationFloorExactBoundary(t *testing.T) {
	now := time.Now()
	observedFor := func(age time.Duration) []model.MailboxEvent {
		var events []model.MailboxEvent
		for i := 0; i < 20; i++ {
			// The first event anchors first-seen; the rest stay outside the
			// recent sub-window so confidence holds at 100.
			events = append(events, model.MailboxEvent{
				SenderEmail: "spam@example.com",
				EventType:   model.EventDeleted,
				OccurredAt:  now.Add(-age).Add(time.Duration(i) * time.Minute),
			})
		}
		return events
	}

	// One hour short of fourteen days: still too young.
	store := &fakePatternStore{}
	engine := newTestEngine(&fakeEventSource{events: observedFor(14*24*time.Hour - time.Hour)}, store, now)
	require.NoError(t, engine.AnalyzeMailbox(context.Background(), "u1", "m1"))
	require.Len(t, store.patterns, 1)
	assert.Equal(t, model.PatternDetected, store.patterns[0].Status)

	// Exactly fourteen days of observation crosses the floor.
	store = &fakePatternStore{}
	engine = newTestEngine(&fakeEventSource{events: observedFor(14 * 24 * time.Hour)}, store, now)
	require.NoError(t, engine.AnalyzeMailbox(context.Background(), "u1", "m1"))
	require.Len(t, store.patterns, 1)
	assert.Equal(t, model.PatternSuggested, store.patterns[0].Status)
}

func TestAnalyzeMailboxLowConfidenceSenderNotPersisted(t *testing.T) {
	now := time.Now()
	// 3 deletions out of 20 events: confidence far below the persistence
	// floor, so no sender pattern is written at all.
	events := &fakeEventSource{events: senderEvents("mixed@example.com", 20, 3, now)}
	store := &fakePatternStore{}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Empty(t, store.patterns)
}

func TestAnalyzeMailboxCooldownSuppressesRecreation(t *testing.T) {
	now := time.Now()
	cooldownUntil := now.AddDate(0, 0, 10)
	rejectedAt := now.AddDate(0, 0, -20)
	store := &fakePatternStore{patterns: []*model.Pattern{{
		ID:                     "p1",
		UserID:                 "u1",
		MailboxID:              "m1",
		PatternType:            model.PatternTypeSender,
		Status:                 model.PatternRejected,
		Condition:              model.PatternCondition{SenderEmail: "spam@example.com"},
		SuggestedAction:        model.RuleAction{ActionType: model.ActionDelete},
		RejectedAt:             &rejectedAt,
		RejectionCooldownUntil: &cooldownUntil,
	}}}
	events := &fakeEventSource{events: senderEvents("spam@example.com", 50, 50, now)}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	// Only the rejected pattern remains; nothing new was created for the
	// tuple while the cooldown holds.
	require.Len(t, store.patterns, 1)
	assert.Equal(t, model.PatternRejected, store.patterns[0].Status)
}

func TestAnalyzeMailboxExpiredCooldownAllowsRecreation(t *testing.T) {
	now := time.Now()
	cooldownUntil := now.AddDate(0, 0, -1)
	rejectedAt := now.AddDate(0, 0, -40)
	store := &fakePatternStore{patterns: []*model.Pattern{{
		ID:                     "p1",
		UserID:                 "u1",
		MailboxID:              "m1",
		PatternType:            model.PatternTypeSender,
		Status:                 model.PatternRejected,
		Condition:              model.PatternCondition{SenderEmail: "spam@example.com"},
		SuggestedAction:        model.RuleAction{ActionType: model.ActionDelete},
		RejectedAt:             &rejectedAt,
		RejectionCooldownUntil: &cooldownUntil,
	}}}
	events := &fakeEventSource{events: senderEvents("spam@example.com", 50, 50, now)}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Len(t, store.patterns, 2)
}

func TestAnalyzeMailboxApprovedTupleNotDuplicated(t *testing.T) {
	now := time.Now()
	store := &fakePatternStore{patterns: []*model.Pattern{{
		ID:              "p1",
		UserID:          "u1",
		MailboxID:       "m1",
		PatternType:     model.PatternTypeSender,
		Status:          model.PatternApproved,
		Condition:       model.PatternCondition{SenderEmail: "spam@example.com"},
		SuggestedAction: model.RuleAction{ActionType: model.ActionDelete},
	}}}
	events := &fakeEventSource{events: senderEvents("spam@example.com", 50, 50, now)}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)
	assert.Len(t, store.patterns, 1)
}

func TestAnalyzeMailboxUpdatesExistingInPlace(t *testing.T) {
	now := time.Now()
	firstSeen := now.AddDate(0, 0, -60)
	store := &fakePatternStore{patterns: []*model.Pattern{{
		ID:              "p1",
		UserID:          "u1",
		MailboxID:       "m1",
		PatternType:     model.PatternTypeSender,
		Status:          model.PatternDetected,
		Confidence:      60,
		SampleSize:      12,
		Condition:       model.PatternCondition{SenderEmail: "news@example.com"},
		SuggestedAction: model.RuleAction{ActionType: model.ActionDelete},
		FirstSeenAt:     firstSeen,
	}}}
	events := &fakeEventSource{events: senderEvents("news@example.com", 50, 50, now)}

	engine := newTestEngine(events, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	require.Len(t, store.patterns, 1)
	p := store.patterns[0]
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, 50, p.SampleSize)
	// The original first-seen timestamp survives re-analysis; it anchors the
	// observation floor.
	assert.Equal(t, firstSeen, p.FirstSeenAt)
	assert.Equal(t, model.PatternSuggested, p.Status)
}

func TestAnalyzeMailboxFolderRoutingPattern(t *testing.T) {
	now := time.Now()
	var events []model.MailboxEvent
	for i := 0; i < 8; i++ {
		events = append(events, model.MailboxEvent{
			SenderEmail: "billing@vendor.com",
			EventType:   model.EventMoved,
			FromFolder:  "Inbox",
			ToFolder:    "Receipts",
			OccurredAt:  now.AddDate(0, 0, -40).Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	store := &fakePatternStore{}

	engine := newTestEngine(&fakeEventSource{events: events}, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	require.Len(t, store.patterns, 1)
	p := store.patterns[0]
	assert.Equal(t, model.PatternTypeFolderRouting, p.PatternType)
	assert.Equal(t, "Receipts", p.Condition.ToFolder)
	assert.Equal(t, model.ActionMove, p.SuggestedAction.ActionType)
	assert.Equal(t, "Receipts", p.SuggestedAction.ToFolder)
}

func TestAnalyzeMailboxArchiveRoutingUsesArchiveAction(t *testing.T) {
	now := time.Now()
	var events []model.MailboxEvent
	for i := 0; i < 8; i++ {
		events = append(events, model.MailboxEvent{
			SenderEmail: "digest@example.com",
			EventType:   model.EventMoved,
			ToFolder:    "Archive",
			OccurredAt:  now.AddDate(0, 0, -40).Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	store := &fakePatternStore{}

	engine := newTestEngine(&fakeEventSource{events: events}, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	require.Len(t, store.patterns, 1)
	assert.Equal(t, model.ActionArchive, store.patterns[0].SuggestedAction.ActionType)
}

func TestAnalyzeMailboxFlagPatternsNeverSuggested(t *testing.T) {
	now := time.Now()
	var events []model.MailboxEvent
	for i := 0; i < 20; i++ {
		events = append(events, model.MailboxEvent{
			SenderEmail: "boss@example.com",
			EventType:   model.EventFlagged,
			OccurredAt:  now.AddDate(0, 0, -40).Add(time.Duration(i) * time.Hour),
		})
	}
	store := &fakePatternStore{}

	engine := newTestEngine(&fakeEventSource{events: events}, store, now)
	err := engine.AnalyzeMailbox(context.Background(), "u1", "m1")
	require.NoError(t, err)

	// The pattern is recorded at full confidence but never crosses into
	// suggested: flag has no suggestion threshold.
	require.Len(t, store.patterns, 1)
	assert.Equal(t, model.ActionFlag, store.patterns[0].SuggestedAction.ActionType)
	assert.Equal(t, model.PatternDetected, store.patterns[0].Status)
}
