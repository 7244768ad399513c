package events

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventPlanRegistered        EventType = "plan_registered"
	EventPostponementRequested EventType = "postponement_requested"
	EventPostponementDecided   EventType = "postponement_decided"
	EventCompletionRequested   EventType = "completion_requested"
	EventCompletionDecided     EventType = "completion_decided"
	EventTicketAutoReceived    EventType = "ticket_auto_received"
	EventTicketDelayed         EventType = "ticket_delayed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorName string      `json:"actor_name"`
	ActorRole domain.Role `json:"actor_role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ProjectID string              `json:"project_id"`
	Title     string              `json:"title"`
	Status    domain.TicketStatus `json:"status"`
	DueDate   time.Time           `json:"due_date"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Note      string              `json:"note,omitempty"`
}

// PlanRegisteredPayload payload.
type PlanRegisteredPayload struct {
	ExpectedCompletionDate time.Time `json:"expected_completion_date"`
	DueDateMoved           bool      `json:"due_date_moved"`
}

// PostponementRequestedPayload payload.
type PostponementRequestedPayload struct {
	PostponeDate time.Time `json:"postpone_date"`
	Reason       string    `json:"reason"`
}

// PostponementDecidedPayload payload.
type PostponementDecidedPayload struct {
	Approved bool       `json:"approved"`
	DueDate  *time.Time `json:"due_date,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// CompletionDecidedPayload payload.
type CompletionDecidedPayload struct {
	Approved     bool   `json:"approved"`
	Satisfaction int    `json:"satisfaction,omitempty"`
	Reason       string `json:"reason,omitempty"`
}
