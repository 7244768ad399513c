package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusWaiting             TicketStatus = "WAITING"
	TicketStatusReceived            TicketStatus = "RECEIVED"
	TicketStatusReceivedAuto        TicketStatus = "RECEIVED_AUTO"
	TicketStatusInProgress          TicketStatus = "IN_PROGRESS"
	TicketStatusDelayed             TicketStatus = "DELAYED"
	TicketStatusPostponeRequested   TicketStatus = "POSTPONE_REQUESTED"
	TicketStatusCompletionRequested TicketStatus = "COMPLETION_REQUESTED"
	TicketStatusCompleted           TicketStatus = "COMPLETED"
)

// IsTerminal reports whether no further transition is permitted.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusCompleted
}

// Ticket is the aggregate for service-desk requests.
type Ticket struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      TicketStatus

	CustomerID   string
	CustomerName string
	SupportID    string
	SupportName  string

	CreatedAt time.Time
	// DueDate is the current SLA deadline; always >= CreatedAt.
	DueDate time.Time
	// InitialDueDate records the deadline as it stood before the first
	// change to DueDate. Set once, never overwritten.
	InitialDueDate         *time.Time
	ExpectedCompletionDate *time.Time
	PostponeDate           *time.Time

	Plan                          string
	ShortenedDueReason            string
	PostponeReason                string
	RejectionReason               string
	CompletionFeedback            string
	ExpectedCompletionDelayReason string

	// Satisfaction is 1..5, set only at final completion.
	Satisfaction int

	Attachments     []string
	PlanAttachments []string

	UpdatedAt time.Time
}

// RecordInitialDueDate preserves the pre-change deadline the first time
// DueDate moves away from its original value.
func (t *Ticket) RecordInitialDueDate() {
	if t.InitialDueDate != nil {
		return
	}
	prior := t.DueDate
	t.InitialDueDate = &prior
}

// ClearPostponeRequest drops the pending postponement proposal.
func (t *Ticket) ClearPostponeRequest() {
	t.PostponeDate = nil
	t.PostponeReason = ""
}
