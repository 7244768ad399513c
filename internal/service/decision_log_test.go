package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
)

func entry(id string, action domain.ActionKind, at time.Time) domain.HistoryEntry {
	return domain.HistoryEntry{
		ID:        id,
		TicketID:  "T-20250303-001",
		Action:    action,
		ChangedBy: "Morgan",
		Timestamp: at,
	}
}

func TestBuildDecisionLogPairsRequestsWithDecisions(t *testing.T) {
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	entries := []domain.HistoryEntry{
		entry("e1", domain.ActionNone, base),
		entry("e2", domain.ActionPostponeRequest, base.Add(1*time.Hour)),
		entry("e3", domain.ActionPostponeApprove, base.Add(2*time.Hour)),
		entry("e4", domain.ActionCompletionReport, base.Add(3*time.Hour)),
		entry("e5", domain.ActionCompletionReject, base.Add(4*time.Hour)),
		entry("e6", domain.ActionCompletionReport, base.Add(5*time.Hour)),
		entry("e7", domain.ActionCompletionApprove, base.Add(6*time.Hour)),
	}

	pairs := BuildDecisionLog(entries)
	require.Len(t, pairs, 3)

	assert.Equal(t, "e2", pairs[0].Request.ID)
	assert.Equal(t, "e3", pairs[0].Decision.ID)
	assert.Equal(t, "e4", pairs[1].Request.ID)
	assert.Equal(t, "e5", pairs[1].Decision.ID)
	assert.Equal(t, "e6", pairs[2].Request.ID)
	assert.Equal(t, "e7", pairs[2].Decision.ID)
	for _, p := range pairs {
		assert.False(t, p.Pending())
	}
}

func TestBuildDecisionLogPendingRequest(t *testing.T) {
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	pairs := BuildDecisionLog([]domain.HistoryEntry{
		entry("e1", domain.ActionPostponeRequest, base),
	})

	require.Len(t, pairs, 1)
	assert.True(t, pairs[0].Pending())
	assert.Nil(t, pairs[0].Decision)
}

// A decision only resolves a request of its own protocol: a completion
// decision never consumes an open postponement request.
func TestBuildDecisionLogRespectsProtocolKind(t *testing.T) {
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	pairs := BuildDecisionLog([]domain.HistoryEntry{
		entry("e1", domain.ActionPostponeRequest, base),
		entry("e2", domain.ActionCompletionApprove, base.Add(time.Hour)),
	})

	require.Len(t, pairs, 2)
	assert.True(t, pairs[0].Pending())
	assert.Nil(t, pairs[1].Request)
	assert.Equal(t, "e2", pairs[1].Decision.ID)
}

func TestBuildDecisionLogStandaloneDecision(t *testing.T) {
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	pairs := BuildDecisionLog([]domain.HistoryEntry{
		entry("e1", domain.ActionPostponeReject, base),
	})

	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Request)
	assert.False(t, pairs[0].Pending())
}

func TestBuildDecisionLogIgnoresPlainTransitions(t *testing.T) {
	base := time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)
	pairs := BuildDecisionLog([]domain.HistoryEntry{
		entry("e1", domain.ActionNone, base),
		entry("e2", domain.ActionNone, base.Add(time.Hour)),
	})
	assert.Empty(t, pairs)
}
