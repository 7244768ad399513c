package domain

import "time"

// ActionKind classifies decision-log relevant history entries. Entries
// outside the approval protocol carry ActionNone.
type ActionKind string

const (
	ActionNone              ActionKind = ""
	ActionPostponeRequest   ActionKind = "POSTPONE_REQUEST"
	ActionPostponeApprove   ActionKind = "POSTPONE_APPROVE"
	ActionPostponeReject    ActionKind = "POSTPONE_REJECT"
	ActionCompletionReport  ActionKind = "COMPLETION_REPORT"
	ActionCompletionApprove ActionKind = "COMPLETION_APPROVE"
	ActionCompletionReject  ActionKind = "COMPLETION_REJECT"
)

// IsRequest reports whether the action opens a request/decision pair.
func (a ActionKind) IsRequest() bool {
	return a == ActionPostponeRequest || a == ActionCompletionReport
}

// DecidesRequest reports whether the action resolves the given request kind.
func (a ActionKind) DecidesRequest(request ActionKind) bool {
	switch request {
	case ActionPostponeRequest:
		return a == ActionPostponeApprove || a == ActionPostponeReject
	case ActionCompletionReport:
		return a == ActionCompletionApprove || a == ActionCompletionReject
	default:
		return false
	}
}

// HistoryEntry is an immutable audit trail record, appended exactly once
// per ticket transition.
type HistoryEntry struct {
	ID       string
	TicketID string
	// Status the ticket holds after this transition.
	Status    TicketStatus
	ChangedBy string
	Action    ActionKind
	Note      string
	Timestamp time.Time
}
