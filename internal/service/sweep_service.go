package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/calendar"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
)

// SweepService is the deadline monitor: a periodic scan over open tickets
// that marks overdue tickets DELAYED and stale WAITING tickets
// RECEIVED_AUTO. Scheduling lives in internal/worker; RunSweepOnce is
// directly invokable with a controllable clock.
type SweepService struct {
	tickets    repository.TicketRepository
	store      repository.TransitionStore
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	locks      *TicketLocks
	logger     *zap.Logger
	clock      Clock

	intakeGraceHours int
}

// SweepDependencies bundles collaborators for the sweep service.
type SweepDependencies struct {
	TicketRepo       repository.TicketRepository
	Store            repository.TransitionStore
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Locks            *TicketLocks
	Logger           *zap.Logger
	Clock            Clock
	IntakeGraceHours int
}

// NewSweepService constructs the service. Locks must be the same registry
// the lifecycle service uses so the sweep never races a user operation on
// the same ticket.
func NewSweepService(deps SweepDependencies) *SweepService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Locks == nil {
		deps.Locks = NewTicketLocks()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.IntakeGraceHours <= 0 {
		deps.IntakeGraceHours = 4
	}
	return &SweepService{
		tickets:          deps.TicketRepo,
		store:            deps.Store,
		dispatcher:       deps.Dispatcher,
		metrics:          deps.Metrics,
		locks:            deps.Locks,
		logger:           deps.Logger,
		clock:            deps.Clock,
		intakeGraceHours: deps.IntakeGraceHours,
	}
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	Scanned      int
	Delayed      int
	AutoReceived int
	Failed       int
}

// RunSweepOnce scans all open tickets and applies at most one transition
// per ticket. A failure on one ticket is logged and counted; the sweep
// continues with the rest.
func (s *SweepService) RunSweepOnce(ctx context.Context) (SweepReport, error) {
	report := SweepReport{}
	open, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return report, err
	}

	now := s.clock()
	for i := range open {
		ticket := open[i]
		report.Scanned++

		switch {
		case s.dueForDelay(&ticket, now):
			if err := s.markDelayed(ctx, &ticket); err != nil {
				report.Failed++
				s.metrics.RecordSweepOutcome("failed")
				s.logger.Error("sweep: mark delayed failed",
					zap.String("ticket_id", ticket.ID), zap.Error(err))
				continue
			}
			report.Delayed++
			s.metrics.RecordSweepOutcome("delayed")
		case s.dueForAutoReceive(&ticket, now):
			if err := s.markAutoReceived(ctx, &ticket); err != nil {
				report.Failed++
				s.metrics.RecordSweepOutcome("failed")
				s.logger.Error("sweep: auto-receive failed",
					zap.String("ticket_id", ticket.ID), zap.Error(err))
				continue
			}
			report.AutoReceived++
			s.metrics.RecordSweepOutcome("auto_received")
		}
	}

	s.logger.Info("sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("delayed", report.Delayed),
		zap.Int("auto_received", report.AutoReceived),
		zap.Int("failed", report.Failed))
	return report, nil
}

func (s *SweepService) dueForDelay(ticket *domain.Ticket, now time.Time) bool {
	if ticket.Status == domain.TicketStatusCompleted || ticket.Status == domain.TicketStatusDelayed {
		return false
	}
	return calendar.IsOverdue(now, ticket.DueDate)
}

func (s *SweepService) dueForAutoReceive(ticket *domain.Ticket, now time.Time) bool {
	if ticket.Status != domain.TicketStatusWaiting {
		return false
	}
	deadline := calendar.AddBusinessHours(ticket.CreatedAt, s.intakeGraceHours)
	return now.After(deadline)
}

func (s *SweepService) markDelayed(ctx context.Context, ticket *domain.Ticket) error {
	return s.commitSystemTransition(ctx, ticket, domain.TicketStatusDelayed,
		"deadline passed, auto-marked delayed", events.EventTicketDelayed)
}

func (s *SweepService) markAutoReceived(ctx context.Context, ticket *domain.Ticket) error {
	note := fmt.Sprintf("%d business hours elapsed without intake, auto-received", s.intakeGraceHours)
	return s.commitSystemTransition(ctx, ticket, domain.TicketStatusReceivedAuto,
		note, events.EventTicketAutoReceived)
}

func (s *SweepService) commitSystemTransition(ctx context.Context, ticket *domain.Ticket, status domain.TicketStatus, note string, eventType events.EventType) error {
	unlock := s.locks.Lock(ticket.ID)
	defer unlock()

	// Re-read under the lock; a user operation may have moved the ticket
	// since the open-ticket scan.
	fresh, err := s.tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return err
	}
	now := s.clock()
	if status == domain.TicketStatusDelayed && !s.dueForDelay(fresh, now) {
		return nil
	}
	if status == domain.TicketStatusReceivedAuto && !s.dueForAutoReceive(fresh, now) {
		return nil
	}

	oldStatus := fresh.Status
	fresh.Status = status
	entry := &domain.HistoryEntry{
		ID:        uuid.NewString(),
		TicketID:  fresh.ID,
		Status:    status,
		ChangedBy: domain.SystemActorName,
		Action:    domain.ActionNone,
		Note:      note,
		Timestamp: now,
	}
	if err := s.store.CommitTransition(ctx, fresh, entry); err != nil {
		return err
	}
	s.metrics.RecordTransition(string(status))

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			TicketID:  fresh.ID,
			ActorName: domain.SystemActorName,
			Timestamp: now,
			Payload: events.StatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: status,
				Note:      note,
			},
		})
	}
	*ticket = *fresh
	return nil
}
