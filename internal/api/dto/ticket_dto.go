package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	ProjectID   string   `json:"project_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Attachments []string `json:"attachments"`
	// CustomerID is required when a support-side caller files on behalf
	// of a customer.
	CustomerID             string     `json:"customer_id,omitempty"`
	DueDate                *time.Time `json:"due_date,omitempty"`
	ShortenedDueReason     string     `json:"shortened_due_reason,omitempty"`
	Plan                   string     `json:"plan,omitempty"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date,omitempty"`
	PlanAttachments        []string   `json:"plan_attachments,omitempty"`
}

// RegisterPlanRequest payload.
type RegisterPlanRequest struct {
	Plan                   string    `json:"plan"`
	ExpectedCompletionDate time.Time `json:"expected_completion_date"`
	DelayReason            string    `json:"delay_reason,omitempty"`
	PlanAttachments        []string  `json:"plan_attachments,omitempty"`
}

// PostponementRequest payload.
type PostponementRequest struct {
	PostponeDate time.Time `json:"postpone_date"`
	Reason       string    `json:"reason"`
}

// RejectionRequest payload for both reject operations.
type RejectionRequest struct {
	Reason string `json:"reason"`
}

// ApproveCompletionRequest payload.
type ApproveCompletionRequest struct {
	Satisfaction int    `json:"satisfaction"`
	Feedback     string `json:"feedback,omitempty"`
}

// TicketResponse provides full ticket info.
type TicketResponse struct {
	ID           string              `json:"id"`
	ProjectID    string              `json:"project_id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Status       domain.TicketStatus `json:"status"`
	CustomerID   string              `json:"customer_id"`
	CustomerName string              `json:"customer_name"`
	SupportID    string              `json:"support_id,omitempty"`
	SupportName  string              `json:"support_name,omitempty"`

	CreatedAt              time.Time  `json:"created_at"`
	DueDate                time.Time  `json:"due_date"`
	InitialDueDate         *time.Time `json:"initial_due_date,omitempty"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date,omitempty"`
	PostponeDate           *time.Time `json:"postpone_date,omitempty"`

	Plan               string `json:"plan,omitempty"`
	PostponeReason     string `json:"postpone_reason,omitempty"`
	RejectionReason    string `json:"rejection_reason,omitempty"`
	CompletionFeedback string `json:"completion_feedback,omitempty"`
	Satisfaction       int    `json:"satisfaction,omitempty"`

	Attachments     []string `json:"attachments,omitempty"`
	PlanAttachments []string `json:"plan_attachments,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HistoryEntryResponse represents one audit record.
type HistoryEntryResponse struct {
	ID        string              `json:"id"`
	Status    domain.TicketStatus `json:"status"`
	ChangedBy string              `json:"changed_by"`
	Action    domain.ActionKind   `json:"action,omitempty"`
	Note      string              `json:"note"`
	Timestamp time.Time           `json:"timestamp"`
}

// DecisionPairResponse represents one decision-log row.
type DecisionPairResponse struct {
	Request  *HistoryEntryResponse `json:"request,omitempty"`
	Decision *HistoryEntryResponse `json:"decision,omitempty"`
	Pending  bool                  `json:"pending"`
}
