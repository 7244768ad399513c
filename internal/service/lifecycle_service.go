package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/calendar"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// Clock supplies the current time; injected so deadline behavior is
// testable.
type Clock func() time.Time

// LifecycleService drives the ticket state machine and the approval
// protocol layered on it. Every successful operation mutates the ticket,
// appends exactly one history entry, and commits both as a unit.
type LifecycleService struct {
	tickets    repository.TicketRepository
	history    repository.HistoryRepository
	projects   repository.ProjectRepository
	users      repository.UserRepository
	store      repository.TransitionStore
	serials    repository.SerialAllocator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	locks      *TicketLocks
	clock      Clock

	defaultDueDays int
}

// LifecycleDependencies bundles collaborators for the lifecycle service.
type LifecycleDependencies struct {
	TicketRepo     repository.TicketRepository
	HistoryRepo    repository.HistoryRepository
	ProjectRepo    repository.ProjectRepository
	UserRepo       repository.UserRepository
	Store          repository.TransitionStore
	Serials        repository.SerialAllocator
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Locks          *TicketLocks
	Clock          Clock
	DefaultDueDays int
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Locks == nil {
		deps.Locks = NewTicketLocks()
	}
	if deps.DefaultDueDays <= 0 {
		deps.DefaultDueDays = 5
	}
	return &LifecycleService{
		tickets:        deps.TicketRepo,
		history:        deps.HistoryRepo,
		projects:       deps.ProjectRepo,
		users:          deps.UserRepo,
		store:          deps.Store,
		serials:        deps.Serials,
		dispatcher:     deps.Dispatcher,
		metrics:        deps.Metrics,
		locks:          deps.Locks,
		clock:          deps.Clock,
		defaultDueDays: deps.DefaultDueDays,
	}
}

// CreateTicketInput describes ticket creation payload.
type CreateTicketInput struct {
	ProjectID   string
	Title       string
	Description string
	Attachments []string
	// CustomerID names the requester when a support-side actor files the
	// ticket on a customer's behalf; ignored for customer actors.
	CustomerID string
	// DueDate overrides the default SLA deadline when set.
	DueDate            *time.Time
	ShortenedDueReason string
	// Plan puts a support-created ticket straight into IN_PROGRESS.
	Plan                   string
	ExpectedCompletionDate *time.Time
	PlanAttachments        []string
}

// RegisterPlanInput describes the plan registration payload.
type RegisterPlanInput struct {
	Plan                   string
	ExpectedCompletionDate time.Time
	DelayReason            string
	PlanAttachments        []string
}

// CreateTicket creates a ticket. Customer requesters start in WAITING;
// support-side requesters start in RECEIVED, or IN_PROGRESS when a plan
// is supplied. The support owner is the owning project's PM.
func (s *LifecycleService) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Title) == "" || input.ProjectID == "" {
		return nil, apperrors.NewValidationError("project_id and title required", nil)
	}

	project, err := s.projects.GetByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("project", map[string]any{"project_id": input.ProjectID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	customerID, customerName := actor.ID, actor.Name
	if actor.Role.IsSupportSide() {
		if input.CustomerID == "" {
			return nil, apperrors.NewValidationError("customer_id required for support-created tickets", nil)
		}
		customer, err := s.users.GetByID(ctx, input.CustomerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("customer", map[string]any{"customer_id": input.CustomerID})
			}
			return nil, apperrors.NewPersistenceFailure(err)
		}
		customerID, customerName = customer.ID, customer.Name
	}

	now := s.clock()
	ticket := &domain.Ticket{
		ProjectID:          input.ProjectID,
		Title:              strings.TrimSpace(input.Title),
		Description:        strings.TrimSpace(input.Description),
		CustomerID:         customerID,
		CustomerName:       customerName,
		CreatedAt:          now,
		DueDate:            calendar.AddBusinessDays(now, s.defaultDueDays),
		ShortenedDueReason: strings.TrimSpace(input.ShortenedDueReason),
		Attachments:        input.Attachments,
	}

	if input.DueDate != nil {
		if input.DueDate.Before(now) {
			return nil, apperrors.NewValidationError("due date must not precede creation", nil)
		}
		ticket.DueDate = *input.DueDate
	}

	if pmID := project.PMID(); pmID != "" {
		pm, err := s.users.GetByID(ctx, pmID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewPersistenceFailure(err)
		}
		if pm != nil {
			ticket.SupportID = pm.ID
			ticket.SupportName = pm.Name
		}
	}

	note := "ticket created"
	switch {
	case !actor.Role.IsSupportSide():
		ticket.Status = domain.TicketStatusWaiting
	case strings.TrimSpace(input.Plan) != "":
		if input.ExpectedCompletionDate == nil {
			return nil, apperrors.NewValidationError("expected completion date required with plan", nil)
		}
		ticket.Status = domain.TicketStatusInProgress
		ticket.Plan = strings.TrimSpace(input.Plan)
		ticket.ExpectedCompletionDate = input.ExpectedCompletionDate
		ticket.PlanAttachments = input.PlanAttachments
		note = "ticket created with plan"
	default:
		ticket.Status = domain.TicketStatusReceived
	}

	serial, err := s.serials.NextSerial(ctx, now)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	ticket.ID = domain.NewTicketID(now, serial)

	entry := s.newEntry(ticket, actor.Name, domain.ActionNone, note)
	if err := s.store.CommitCreation(ctx, ticket, entry); err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	s.metrics.RecordTransition(string(ticket.Status))
	s.publish(ctx, events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Payload: events.TicketCreatedPayload{
			ProjectID: ticket.ProjectID,
			Title:     ticket.Title,
			Status:    ticket.Status,
			DueDate:   ticket.DueDate,
		},
	})
	return ticket, nil
}

// MarkReceived transitions WAITING -> RECEIVED when assigned support first
// views the ticket.
func (s *LifecycleService) MarkReceived(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpMarkReceived, func(ticket *domain.Ticket) (*mutation, error) {
		return &mutation{
			status: domain.TicketStatusReceived,
			action: domain.ActionNone,
			note:   "intake started",
		}, nil
	})
}

// RegisterPlan transitions RECEIVED/RECEIVED_AUTO -> IN_PROGRESS, setting
// the plan and moving the SLA deadline to the expected completion date.
func (s *LifecycleService) RegisterPlan(ctx context.Context, actor domain.Actor, ticketID string, input RegisterPlanInput) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpRegisterPlan, func(ticket *domain.Ticket) (*mutation, error) {
		if strings.TrimSpace(input.Plan) == "" {
			return nil, apperrors.NewValidationError("plan required", nil)
		}
		if input.ExpectedCompletionDate.IsZero() {
			return nil, apperrors.NewValidationError("expected completion date required", nil)
		}
		if input.ExpectedCompletionDate.Before(ticket.CreatedAt) {
			return nil, apperrors.NewValidationError("expected completion date precedes creation", nil)
		}
		delayed := input.ExpectedCompletionDate.After(ticket.DueDate)
		if delayed && strings.TrimSpace(input.DelayReason) == "" {
			return nil, apperrors.NewValidationError("delay reason required when expected completion exceeds due date", nil)
		}

		moved := !input.ExpectedCompletionDate.Equal(ticket.DueDate)
		if moved {
			ticket.RecordInitialDueDate()
			ticket.DueDate = input.ExpectedCompletionDate
		}
		expected := input.ExpectedCompletionDate
		ticket.Plan = strings.TrimSpace(input.Plan)
		ticket.ExpectedCompletionDate = &expected
		ticket.PlanAttachments = input.PlanAttachments
		if delayed {
			ticket.ExpectedCompletionDelayReason = strings.TrimSpace(input.DelayReason)
		}

		return &mutation{
			status: domain.TicketStatusInProgress,
			action: domain.ActionNone,
			note:   "plan registered",
			event: &events.Event{
				Type: events.EventPlanRegistered,
				Payload: events.PlanRegisteredPayload{
					ExpectedCompletionDate: expected,
					DueDateMoved:           moved,
				},
			},
		}, nil
	})
}

// RequestPostponement transitions IN_PROGRESS/DELAYED -> POSTPONE_REQUESTED
// with a proposed new deadline awaiting the customer's decision.
func (s *LifecycleService) RequestPostponement(ctx context.Context, actor domain.Actor, ticketID string, date time.Time, reason string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpRequestPostponement, func(ticket *domain.Ticket) (*mutation, error) {
		if date.IsZero() {
			return nil, apperrors.NewValidationError("postpone date required", nil)
		}
		if strings.TrimSpace(reason) == "" {
			return nil, apperrors.NewValidationError("postpone reason required", nil)
		}
		postponeDate := date
		ticket.PostponeDate = &postponeDate
		ticket.PostponeReason = strings.TrimSpace(reason)

		return &mutation{
			status: domain.TicketStatusPostponeRequested,
			action: domain.ActionPostponeRequest,
			note:   fmt.Sprintf("postponement to %s requested", date.Format("2006-01-02")),
			event: &events.Event{
				Type: events.EventPostponementRequested,
				Payload: events.PostponementRequestedPayload{
					PostponeDate: date,
					Reason:       strings.TrimSpace(reason),
				},
			},
		}, nil
	})
}

// ApprovePostponement lets the customer accept the proposed deadline; the
// ticket resumes IN_PROGRESS with the new due date.
func (s *LifecycleService) ApprovePostponement(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpApprovePostponement, func(ticket *domain.Ticket) (*mutation, error) {
		if ticket.PostponeDate == nil {
			return nil, apperrors.NewValidationError("no pending postponement", nil)
		}
		newDue := *ticket.PostponeDate
		if !newDue.Equal(ticket.DueDate) {
			ticket.RecordInitialDueDate()
			ticket.DueDate = newDue
		}
		ticket.ClearPostponeRequest()

		return &mutation{
			status: domain.TicketStatusInProgress,
			action: domain.ActionPostponeApprove,
			note:   "postponement approved",
			event: &events.Event{
				Type: events.EventPostponementDecided,
				Payload: events.PostponementDecidedPayload{
					Approved: true,
					DueDate:  &newDue,
				},
			},
		}, nil
	})
}

// RejectPostponement lets the customer decline the proposal; the pending
// fields clear and the due date stays put.
func (s *LifecycleService) RejectPostponement(ctx context.Context, actor domain.Actor, ticketID string, reason string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpRejectPostponement, func(ticket *domain.Ticket) (*mutation, error) {
		if strings.TrimSpace(reason) == "" {
			return nil, apperrors.NewValidationError("rejection reason required", nil)
		}
		ticket.ClearPostponeRequest()
		ticket.RejectionReason = strings.TrimSpace(reason)

		return &mutation{
			status: domain.TicketStatusInProgress,
			action: domain.ActionPostponeReject,
			note:   "postponement rejected",
			event: &events.Event{
				Type: events.EventPostponementDecided,
				Payload: events.PostponementDecidedPayload{
					Approved: false,
					Reason:   strings.TrimSpace(reason),
				},
			},
		}, nil
	})
}

// RequestCompletion files the completion report, moving the ticket to
// COMPLETION_REQUESTED for customer sign-off.
func (s *LifecycleService) RequestCompletion(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpRequestCompletion, func(ticket *domain.Ticket) (*mutation, error) {
		return &mutation{
			status: domain.TicketStatusCompletionRequested,
			action: domain.ActionCompletionReport,
			note:   "completion reported",
			event:  &events.Event{Type: events.EventCompletionRequested},
		}, nil
	})
}

// ApproveCompletion closes the ticket with a 1-5 satisfaction rating and
// optional feedback. COMPLETED is terminal.
func (s *LifecycleService) ApproveCompletion(ctx context.Context, actor domain.Actor, ticketID string, satisfaction int, feedback string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpApproveCompletion, func(ticket *domain.Ticket) (*mutation, error) {
		if satisfaction < 1 || satisfaction > 5 {
			return nil, apperrors.NewValidationError("satisfaction must be between 1 and 5", map[string]any{"satisfaction": satisfaction})
		}
		ticket.Satisfaction = satisfaction
		ticket.CompletionFeedback = strings.TrimSpace(feedback)

		return &mutation{
			status: domain.TicketStatusCompleted,
			action: domain.ActionCompletionApprove,
			note:   "completion approved",
			event: &events.Event{
				Type: events.EventCompletionDecided,
				Payload: events.CompletionDecidedPayload{
					Approved:     true,
					Satisfaction: satisfaction,
				},
			},
		}, nil
	})
}

// RejectCompletion sends the ticket back to IN_PROGRESS for rework; any
// draft feedback is discarded.
func (s *LifecycleService) RejectCompletion(ctx context.Context, actor domain.Actor, ticketID string, reason string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, OpRejectCompletion, func(ticket *domain.Ticket) (*mutation, error) {
		if strings.TrimSpace(reason) == "" {
			return nil, apperrors.NewValidationError("rejection reason required", nil)
		}
		ticket.RejectionReason = strings.TrimSpace(reason)

		return &mutation{
			status: domain.TicketStatusInProgress,
			action: domain.ActionCompletionReject,
			note:   "completion rejected",
			event: &events.Event{
				Type: events.EventCompletionDecided,
				Payload: events.CompletionDecidedPayload{
					Approved: false,
					Reason:   strings.TrimSpace(reason),
				},
			},
		}, nil
	})
}

// GetTicket fetches a single ticket.
func (s *LifecycleService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *LifecycleService) ListTickets(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return tickets, nil
}

// GetHistory returns the audit trail for a ticket.
func (s *LifecycleService) GetHistory(ctx context.Context, ticketID string, order repository.HistoryOrder) ([]domain.HistoryEntry, error) {
	entries, err := s.history.ListByTicket(ctx, ticketID, order)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return entries, nil
}

// GetDecisionLog returns the paired request/decision view of the trail.
func (s *LifecycleService) GetDecisionLog(ctx context.Context, ticketID string) ([]DecisionPair, error) {
	entries, err := s.history.ListByTicket(ctx, ticketID, repository.HistoryOrderAsc)
	if err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	return BuildDecisionLog(entries), nil
}

// mutation captures the outcome of a transition's effect function.
type mutation struct {
	status domain.TicketStatus
	action domain.ActionKind
	note   string
	event  *events.Event
}

// transition runs the shared skeleton: lock, load, guard, apply effects,
// commit ticket+history atomically, then publish. Guard and validation
// failures occur before any mutation is persisted.
func (s *LifecycleService) transition(ctx context.Context, actor domain.Actor, ticketID string, op Operation, effect func(*domain.Ticket) (*mutation, error)) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.NewPersistenceFailure(err)
	}

	if err := checkGuard(op, actor.Role, ticket.Status); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	m, err := effect(ticket)
	if err != nil {
		return nil, err
	}
	ticket.Status = m.status

	entry := s.newEntry(ticket, actor.Name, m.action, m.note)
	if err := s.store.CommitTransition(ctx, ticket, entry); err != nil {
		return nil, apperrors.NewPersistenceFailure(err)
	}
	s.metrics.RecordTransition(string(ticket.Status))

	if m.event != nil {
		m.event.TicketID = ticket.ID
		m.event.ActorName = actor.Name
		m.event.ActorRole = actor.Role
		s.publish(ctx, *m.event)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventTicketStatusChanged,
		TicketID:  ticket.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Note:      m.note,
		},
	})
	return ticket, nil
}

func (s *LifecycleService) newEntry(ticket *domain.Ticket, changedBy string, action domain.ActionKind, note string) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		Status:    ticket.Status,
		ChangedBy: changedBy,
		Action:    action,
		Note:      note,
		Timestamp: s.clock(),
	}
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
