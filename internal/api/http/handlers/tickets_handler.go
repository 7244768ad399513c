package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle operations.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.lifecycle.CreateTicket(c.Context(), principal.Actor(), service.CreateTicketInput{
		ProjectID:              req.ProjectID,
		Title:                  req.Title,
		Description:            req.Description,
		Attachments:            req.Attachments,
		CustomerID:             req.CustomerID,
		DueDate:                req.DueDate,
		ShortenedDueReason:     req.ShortenedDueReason,
		Plan:                   req.Plan,
		ExpectedCompletionDate: req.ExpectedCompletionDate,
		PlanAttachments:        req.PlanAttachments,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := repository.TicketFilter{
		Limit:  c.QueryInt("page_size", 20),
		Offset: (c.QueryInt("page", 1) - 1) * c.QueryInt("page_size", 20),
	}
	// Customers see only their own tickets.
	if principal.Role == domain.RoleCustomer {
		customerID := principal.User.ID
		filter.CustomerID = &customerID
	}
	if projectID := c.Query("project_id"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	tickets, err := h.lifecycle.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id. A support-side view of a WAITING ticket
// counts as intake and moves it to RECEIVED.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.lifecycle.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if principal.Role == domain.RoleCustomer && ticket.CustomerID != principal.User.ID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	}
	if principal.Role.IsSupportSide() && ticket.Status == domain.TicketStatusWaiting {
		received, err := h.lifecycle.MarkReceived(c.Context(), principal.Actor(), ticket.ID)
		if err == nil {
			ticket = received
		}
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RegisterPlan POST /tickets/:id/plan.
func (h *TicketsHandler) RegisterPlan(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RegisterPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RegisterPlan(c.Context(), principal.Actor(), c.Params("id"), service.RegisterPlanInput{
		Plan:                   req.Plan,
		ExpectedCompletionDate: req.ExpectedCompletionDate,
		DelayReason:            req.DelayReason,
		PlanAttachments:        req.PlanAttachments,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RequestPostponement POST /tickets/:id/postponement.
func (h *TicketsHandler) RequestPostponement(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PostponementRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RequestPostponement(c.Context(), principal.Actor(), c.Params("id"), req.PostponeDate, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ApprovePostponement POST /tickets/:id/postponement/approve.
func (h *TicketsHandler) ApprovePostponement(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.lifecycle.ApprovePostponement(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RejectPostponement POST /tickets/:id/postponement/reject.
func (h *TicketsHandler) RejectPostponement(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RejectPostponement(c.Context(), principal.Actor(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RequestCompletion POST /tickets/:id/completion.
func (h *TicketsHandler) RequestCompletion(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.lifecycle.RequestCompletion(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ApproveCompletion POST /tickets/:id/completion/approve.
func (h *TicketsHandler) ApproveCompletion(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.ApproveCompletionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.ApproveCompletion(c.Context(), principal.Actor(), c.Params("id"), req.Satisfaction, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// RejectCompletion POST /tickets/:id/completion/reject.
func (h *TicketsHandler) RejectCompletion(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RejectionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.lifecycle.RejectCompletion(c.Context(), principal.Actor(), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetHistory(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	order := repository.HistoryOrderDesc
	if strings.EqualFold(c.Query("order"), "asc") {
		order = repository.HistoryOrderAsc
	}
	entries, err := h.lifecycle.GetHistory(c.Context(), c.Params("id"), order)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, historyEntryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetDecisionLog GET /tickets/:id/decisions.
func (h *TicketsHandler) GetDecisionLog(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	pairs, err := h.lifecycle.GetDecisionLog(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.DecisionPairResponse, 0, len(pairs))
	for _, pair := range pairs {
		item := dto.DecisionPairResponse{Pending: pair.Pending()}
		if pair.Request != nil {
			resp := historyEntryResponse(pair.Request)
			item.Request = &resp
		}
		if pair.Decision != nil {
			resp := historyEntryResponse(pair.Decision)
			item.Decision = &resp
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"data": items})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                     ticket.ID,
		ProjectID:              ticket.ProjectID,
		Title:                  ticket.Title,
		Description:            ticket.Description,
		Status:                 ticket.Status,
		CustomerID:             ticket.CustomerID,
		CustomerName:           ticket.CustomerName,
		SupportID:              ticket.SupportID,
		SupportName:            ticket.SupportName,
		CreatedAt:              ticket.CreatedAt,
		DueDate:                ticket.DueDate,
		InitialDueDate:         ticket.InitialDueDate,
		ExpectedCompletionDate: ticket.ExpectedCompletionDate,
		PostponeDate:           ticket.PostponeDate,
		Plan:                   ticket.Plan,
		PostponeReason:         ticket.PostponeReason,
		RejectionReason:        ticket.RejectionReason,
		CompletionFeedback:     ticket.CompletionFeedback,
		Satisfaction:           ticket.Satisfaction,
		Attachments:            ticket.Attachments,
		PlanAttachments:        ticket.PlanAttachments,
		UpdatedAt:              ticket.UpdatedAt,
	}
}

func historyEntryResponse(entry *domain.HistoryEntry) dto.HistoryEntryResponse {
	return dto.HistoryEntryResponse{
		ID:        entry.ID,
		Status:    entry.Status,
		ChangedBy: entry.ChangedBy,
		Action:    entry.Action,
		Note:      entry.Note,
		Timestamp: entry.Timestamp,
	}
}
