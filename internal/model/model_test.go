package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStagedStatusTransitions(t *testing.T) {
	assert.True(t, StagedStatusStaged.CanTransitionTo(StagedStatusRescued))
	assert.True(t, StagedStatusStaged.CanTransitionTo(StagedStatusExecuted))
	assert.True(t, StagedStatusStaged.CanTransitionTo(StagedStatusExpired))

	// Every non-staged status is terminal.
	for _, terminal := range []StagedStatus{StagedStatusRescued, StagedStatusExecuted, StagedStatusExpired} {
		assert.False(t, terminal.CanTransitionTo(StagedStatusStaged))
		assert.False(t, terminal.CanTransitionTo(StagedStatusExecuted))
	}
}

func TestPatternStatusTerminal(t *testing.T) {
	assert.False(t, PatternDetected.Terminal())
	assert.False(t, PatternSuggested.Terminal())
	assert.True(t, PatternApproved.Terminal())
	assert.True(t, PatternRejected.Terminal())
	assert.True(t, PatternExpired.Terminal())

	assert.True(t, PatternDetected.CanTransitionTo(PatternSuggested))
	assert.True(t, PatternSuggested.CanTransitionTo(PatternDetected))
	assert.False(t, PatternRejected.CanTransitionTo(PatternSuggested))
}

func TestPatternCooldown(t *testing.T) {
	now := time.Now()
	until := now.Add(24 * time.Hour)
	p := &Pattern{Status: PatternRejected, RejectionCooldownUntil: &until}

	assert.True(t, p.InCooldown(now))
	assert.False(t, p.InCooldown(until))
	assert.False(t, p.InCooldown(until.Add(time.Hour)))

	// Only rejected patterns cool down.
	p.Status = PatternDetected
	assert.False(t, p.InCooldown(now))
}

func TestAuditEntryUndoWindow(t *testing.T) {
	now := time.Now()
	entry := &AuditEntry{CreatedAt: now}

	assert.True(t, entry.WithinUndoWindow(now.Add(UndoWindow)))
	assert.False(t, entry.WithinUndoWindow(now.Add(UndoWindow+time.Second)))
	assert.False(t, entry.Undone())

	undoneAt := now
	entry.UndoneAt = &undoneAt
	assert.True(t, entry.Undone())
}

func TestActionsContainDelete(t *testing.T) {
	assert.False(t, ActionsContainDelete(nil))
	assert.False(t, ActionsContainDelete([]RuleAction{{ActionType: ActionMove}}))
	assert.True(t, ActionsContainDelete([]RuleAction{
		{ActionType: ActionMarkRead},
		{ActionType: ActionDelete},
	}))
}

func TestMailboxEventAutomated(t *testing.T) {
	ev := &MailboxEvent{}
	assert.False(t, ev.Automated())

	empty := ""
	ev.AutomatedByRuleID = &empty
	assert.False(t, ev.Automated())

	ruleID := "r1"
	ev.AutomatedByRuleID = &ruleID
	assert.True(t, ev.Automated())
}
