package analyzer

import (
	"sort"
	"strings"
	"time"

	"inbox-autopilot-go/internal/model"
)

// candidate is one potential pattern produced by aggregation, before the
// suggestion gate and the upsert.
type candidate struct {
	patternType model.PatternType
	condition   model.PatternCondition
	action      model.RuleAction
	confidence  int
	sampleSize  int
	exceptions  int
	firstSeen   time.Time
	evidence    []model.EvidenceItem
}

// senderGroup accumulates a sender's activity within the window.
type senderGroup struct {
	email  string
	domain string
	events []model.MailboxEvent
}

// senderActionKinds maps an observed event type to the action that would
// automate it. Moves are handled by the folder-routing aggregation; arrivals
// are the denominator, not a behavior.
var senderActionKinds = map[model.EventType]model.ActionType{
	model.EventDeleted: model.ActionDelete,
	model.EventRead:    model.ActionMarkRead,
	model.EventFlagged: model.ActionFlag,
}

// aggregateSenders groups non-automated events by sender and produces one
// candidate per (sender, action type) with enough signal. Groups under
// minEvents total events are dropped.
func aggregateSenders(events []model.MailboxEvent, minEvents int, recentSince time.Time) []candidate {
	groups := groupBySender(events)

	var candidates []candidate
	for _, g := range groups {
		if len(g.events) < minEvents {
			continue
		}

		total := len(g.events)
		recentTotal := 0
		counts := make(map[model.ActionType]int)
		recentCounts := make(map[model.ActionType]int)
		firstSeen := g.events[0].OccurredAt

		for _, ev := range g.events {
			if ev.OccurredAt.Before(firstSeen) {
				firstSeen = ev.OccurredAt
			}
			recent := !ev.OccurredAt.Before(recentSince)
			if recent {
				recentTotal++
			}
			if action, ok := senderActionKinds[ev.EventType]; ok {
				counts[action]++
				if recent {
					recentCounts[action]++
				}
			}
		}

		for action, count := range counts {
			confidence := ComputeConfidence(ConfidenceInput{
				ActionCount:       count,
				TotalEvents:       total,
				RecentActionCount: recentCounts[action],
				RecentTotalEvents: recentTotal,
			})
			candidates = append(candidates, candidate{
				patternType: model.PatternTypeSender,
				condition:   model.PatternCondition{SenderEmail: g.email, SenderDomain: g.domain},
				action:      model.RuleAction{ActionType: action},
				confidence:  confidence,
				sampleSize:  total,
				exceptions:  total - count,
				firstSeen:   firstSeen,
				evidence:    collectEvidence(g.events, func(ev model.MailboxEvent) bool { return senderActionKinds[ev.EventType] == action }),
			})
		}
	}
	return candidates
}

// aggregateFolderRoutes restricts to moved events and groups by
// (sender, destination folder). Groups under minMoves moves are dropped.
// The confidence denominator is the sender's full activity, so a sender
// whose mail sometimes stays put scores lower than one always refiled.
func aggregateFolderRoutes(events []model.MailboxEvent, minMoves int, recentSince time.Time) []candidate {
	groups := groupBySender(events)

	var candidates []candidate
	for _, g := range groups {
		total := len(g.events)
		recentTotal := 0
		moves := make(map[string][]model.MailboxEvent)
		recentMoves := make(map[string]int)
		firstSeen := g.events[0].OccurredAt

		for _, ev := range g.events {
			if ev.OccurredAt.Before(firstSeen) {
				firstSeen = ev.OccurredAt
			}
			recent := !ev.OccurredAt.Before(recentSince)
			if recent {
				recentTotal++
			}
			if ev.EventType == model.EventMoved && ev.ToFolder != "" {
				moves[ev.ToFolder] = append(moves[ev.ToFolder], ev)
				if recent {
					recentMoves[ev.ToFolder]++
				}
			}
		}

		for toFolder, moved := range moves {
			if len(moved) < minMoves {
				continue
			}
			confidence := ComputeConfidence(ConfidenceInput{
				ActionCount:       len(moved),
				TotalEvents:       total,
				RecentActionCount: recentMoves[toFolder],
				RecentTotalEvents: recentTotal,
			})
			// Routing into the archive folder is its own action kind with
			// its own suggestion threshold.
			action := model.RuleAction{ActionType: model.ActionMove, ToFolder: toFolder}
			if strings.EqualFold(toFolder, "Archive") {
				action = model.RuleAction{ActionType: model.ActionArchive, ToFolder: toFolder}
			}
			candidates = append(candidates, candidate{
				patternType: model.PatternTypeFolderRouting,
				condition:   model.PatternCondition{SenderEmail: g.email, SenderDomain: g.domain, ToFolder: toFolder},
				action:      action,
				confidence:  confidence,
				sampleSize:  total,
				exceptions:  total - len(moved),
				firstSeen:   firstSeen,
				evidence:    collectEvidence(moved, nil),
			})
		}
	}
	return candidates
}

func groupBySender(events []model.MailboxEvent) map[string]*senderGroup {
	groups := make(map[string]*senderGroup)
	for _, ev := range events {
		if ev.SenderEmail == "" {
			continue
		}
		g, ok := groups[ev.SenderEmail]
		if !ok {
			g = &senderGroup{email: ev.SenderEmail, domain: ev.SenderDomain}
			groups[ev.SenderEmail] = g
		}
		g.events = append(g.events, ev)
	}
	return groups
}

// collectEvidence keeps the most recent matching events, newest first,
// capped at MaxEvidenceItems.
func collectEvidence(events []model.MailboxEvent, match func(model.MailboxEvent) bool) []model.EvidenceItem {
	var matched []model.MailboxEvent
	for _, ev := range events {
		if match == nil || match(ev) {
			matched = append(matched, ev)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})
	if len(matched) > model.MaxEvidenceItems {
		matched = matched[:model.MaxEvidenceItems]
	}

	evidence := make([]model.EvidenceItem, 0, len(matched))
	for _, ev := range matched {
		evidence = append(evidence, model.EvidenceItem{
			MessageID: ev.MessageID,
			Timestamp: ev.OccurredAt,
			Action:    ev.EventType,
		})
	}
	return evidence
}
