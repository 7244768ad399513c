package service

import "github.com/spec-kit/servicedesk/internal/domain"

// DecisionPair groups an approval-protocol request with the decision that
// resolved it. Request without Decision means "awaiting decision";
// Decision without Request displays standalone.
type DecisionPair struct {
	Request  *domain.HistoryEntry
	Decision *domain.HistoryEntry
}

// Pending reports whether the request still awaits a decision.
func (p DecisionPair) Pending() bool {
	return p.Request != nil && p.Decision == nil
}

// BuildDecisionLog scans entries chronologically (callers pass ascending
// order) and pairs each request with the nearest later unconsumed decision
// of a compatible kind. Postpone requests pair only with postpone
// decisions, completion reports only with completion decisions. Entries
// outside the closed action vocabulary are ignored.
func BuildDecisionLog(entries []domain.HistoryEntry) []DecisionPair {
	pairs := make([]DecisionPair, 0)
	// index into pairs of requests still awaiting a decision
	open := make([]int, 0)

	for i := range entries {
		entry := &entries[i]
		switch {
		case entry.Action == domain.ActionNone:
			continue
		case entry.Action.IsRequest():
			pairs = append(pairs, DecisionPair{Request: entry})
			open = append(open, len(pairs)-1)
		default:
			matched := false
			for j, idx := range open {
				if entry.Action.DecidesRequest(pairs[idx].Request.Action) {
					pairs[idx].Decision = entry
					open = append(open[:j], open[j+1:]...)
					matched = true
					break
				}
			}
			if !matched {
				pairs = append(pairs, DecisionPair{Decision: entry})
			}
		}
	}
	return pairs
}
