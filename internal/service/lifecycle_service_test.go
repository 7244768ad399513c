package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/calendar"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// Monday 2025-03-03 10:00 UTC.
var testNow = time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)

var (
	customerActor = domain.Actor{ID: "cust-1", Name: "Jamie", Role: domain.RoleCustomer}
	supportActor  = domain.Actor{ID: "sup-1", Name: "Morgan", Role: domain.RoleSupport}
	leadActor     = domain.Actor{ID: "lead-1", Name: "Riley", Role: domain.RoleSupportLead}
)

type lifecycleFixture struct {
	svc     *LifecycleService
	tickets *memTicketRepo
	history *memHistoryRepo
	store   *memStore
	events  *[]events.Event
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()

	tickets := newMemTicketRepo()
	history := newMemHistoryRepo()
	store := newMemStore(tickets, history)
	projects := newMemProjectRepo(domain.Project{
		ID:              "proj-1",
		Name:            "Billing Portal",
		SupportStaffIDs: []string{"sup-1", "sup-2"},
	})
	users := newMemUserRepo(
		domain.User{ID: "cust-1", Name: "Jamie", Email: "jamie@example.com", Role: domain.RoleCustomer},
		domain.User{ID: "sup-1", Name: "Morgan", Email: "morgan@example.com", Role: domain.RoleSupport},
	)

	var published []events.Event
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketCreated, events.EventTicketStatusChanged,
		events.EventPlanRegistered, events.EventPostponementRequested,
		events.EventPostponementDecided, events.EventCompletionRequested,
		events.EventCompletionDecided,
	} {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			published = append(published, e)
			return nil
		})
	}

	svc := NewLifecycleService(LifecycleDependencies{
		TicketRepo:  tickets,
		HistoryRepo: history,
		ProjectRepo: projects,
		UserRepo:    users,
		Store:       store,
		Serials:     repository.NewMemorySerialAllocator(),
		Dispatcher:  dispatcher,
		Clock:       fixedClock(testNow),
	})
	return &lifecycleFixture{svc: svc, tickets: tickets, history: history, store: store, events: &published}
}

// seed plants a ticket directly, bypassing CreateTicket, for transition tests.
func (f *lifecycleFixture) seed(t *testing.T, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	ticket := domain.Ticket{
		ID:           "T-20250303-001",
		ProjectID:    "proj-1",
		Title:        "Invoices fail to export",
		Status:       status,
		CustomerID:   customerActor.ID,
		CustomerName: customerActor.Name,
		SupportID:    supportActor.ID,
		SupportName:  supportActor.Name,
		CreatedAt:    testNow,
		DueDate:      calendar.AddBusinessDays(testNow, 5),
	}
	f.tickets.put(ticket)
	return &ticket
}

func TestCreateTicketCustomerStartsWaiting(t *testing.T) {
	f := newLifecycleFixture(t)

	ticket, err := f.svc.CreateTicket(context.Background(), customerActor, CreateTicketInput{
		ProjectID:   "proj-1",
		Title:       "  Invoices fail to export  ",
		Description: "export button does nothing",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusWaiting, ticket.Status)
	assert.Equal(t, "T-20250303-001", ticket.ID)
	assert.Equal(t, "Invoices fail to export", ticket.Title)
	assert.Equal(t, customerActor.ID, ticket.CustomerID)
	// PM is roster position 0 of the project.
	assert.Equal(t, "sup-1", ticket.SupportID)
	assert.Equal(t, calendar.AddBusinessDays(testNow, 5), ticket.DueDate)
	assert.Nil(t, ticket.InitialDueDate)

	entries, err := f.history.ListByTicket(context.Background(), ticket.ID, repository.HistoryOrderAsc)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.TicketStatusWaiting, entries[0].Status)
	assert.Equal(t, customerActor.Name, entries[0].ChangedBy)
}

func TestCreateTicketSerialsIncrementWithinDay(t *testing.T) {
	f := newLifecycleFixture(t)

	first, err := f.svc.CreateTicket(context.Background(), customerActor, CreateTicketInput{ProjectID: "proj-1", Title: "one"})
	require.NoError(t, err)
	second, err := f.svc.CreateTicket(context.Background(), customerActor, CreateTicketInput{ProjectID: "proj-1", Title: "two"})
	require.NoError(t, err)

	assert.Equal(t, "T-20250303-001", first.ID)
	assert.Equal(t, "T-20250303-002", second.ID)
}

func TestCreateTicketSupportSide(t *testing.T) {
	f := newLifecycleFixture(t)
	expected := time.Date(2025, time.March, 7, 18, 0, 0, 0, time.UTC)

	t.Run("without plan starts received", func(t *testing.T) {
		ticket, err := f.svc.CreateTicket(context.Background(), supportActor, CreateTicketInput{
			ProjectID:  "proj-1",
			Title:      "Recurring maintenance",
			CustomerID: "cust-1",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusReceived, ticket.Status)
		assert.Equal(t, "cust-1", ticket.CustomerID)
		assert.Equal(t, "Jamie", ticket.CustomerName)
	})

	t.Run("with plan starts in progress", func(t *testing.T) {
		ticket, err := f.svc.CreateTicket(context.Background(), supportActor, CreateTicketInput{
			ProjectID:              "proj-1",
			Title:                  "Patch rollout",
			CustomerID:             "cust-1",
			Plan:                   "roll out in two waves",
			ExpectedCompletionDate: &expected,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
		assert.Equal(t, "roll out in two waves", ticket.Plan)
	})

	t.Run("plan without expected completion rejected", func(t *testing.T) {
		_, err := f.svc.CreateTicket(context.Background(), supportActor, CreateTicketInput{
			ProjectID:  "proj-1",
			Title:      "Patch rollout",
			CustomerID: "cust-1",
			Plan:       "roll out in two waves",
		})
		assert.True(t, apperrors.IsValidationError(err))
	})

	t.Run("missing customer rejected", func(t *testing.T) {
		_, err := f.svc.CreateTicket(context.Background(), supportActor, CreateTicketInput{
			ProjectID: "proj-1",
			Title:     "Recurring maintenance",
		})
		assert.True(t, apperrors.IsValidationError(err))
	})
}

func TestCreateTicketValidation(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTicket(ctx, customerActor, CreateTicketInput{ProjectID: "proj-1"})
	assert.True(t, apperrors.IsValidationError(err), "blank title")

	_, err = f.svc.CreateTicket(ctx, customerActor, CreateTicketInput{ProjectID: "proj-missing", Title: "x"})
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)

	past := testNow.Add(-time.Hour)
	_, err = f.svc.CreateTicket(ctx, customerActor, CreateTicketInput{ProjectID: "proj-1", Title: "x", DueDate: &past})
	assert.True(t, apperrors.IsValidationError(err), "due date before creation")
}

func TestHappyPathToCompletion(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	ticket, err := f.svc.CreateTicket(ctx, customerActor, CreateTicketInput{
		ProjectID: "proj-1",
		Title:     "Invoices fail to export",
	})
	require.NoError(t, err)

	ticket, err = f.svc.MarkReceived(ctx, supportActor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusReceived, ticket.Status)

	// plan keeps the original deadline: no initial-due-date snapshot
	ticket, err = f.svc.RegisterPlan(ctx, supportActor, ticket.ID, RegisterPlanInput{
		Plan:                   "reproduce, fix exporter, verify",
		ExpectedCompletionDate: ticket.DueDate,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, ticket.Status)
	assert.Nil(t, ticket.InitialDueDate)

	ticket, err = f.svc.RequestCompletion(ctx, supportActor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompletionRequested, ticket.Status)

	ticket, err = f.svc.ApproveCompletion(ctx, customerActor, ticket.ID, 5, "fast turnaround")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, ticket.Status)
	assert.Equal(t, 5, ticket.Satisfaction)
	assert.Equal(t, "fast turnaround", ticket.CompletionFeedback)

	// COMPLETED is terminal: every further operation is refused
	_, err = f.svc.RequestCompletion(ctx, supportActor, ticket.ID)
	assert.True(t, apperrors.IsGuardViolation(err))
	_, err = f.svc.RequestPostponement(ctx, supportActor, ticket.ID, testNow.AddDate(0, 0, 14), "more time")
	assert.True(t, apperrors.IsGuardViolation(err))

	entries, err := f.history.ListByTicket(ctx, ticket.ID, repository.HistoryOrderAsc)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	statuses := make([]domain.TicketStatus, len(entries))
	for i, e := range entries {
		statuses[i] = e.Status
	}
	assert.Equal(t, []domain.TicketStatus{
		domain.TicketStatusWaiting,
		domain.TicketStatusReceived,
		domain.TicketStatusInProgress,
		domain.TicketStatusCompletionRequested,
		domain.TicketStatusCompleted,
	}, statuses)
}

func TestRegisterPlanDelay(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusReceived)
	late := ticket.DueDate.AddDate(0, 0, 3)

	_, err := f.svc.RegisterPlan(ctx, supportActor, ticket.ID, RegisterPlanInput{
		Plan:                   "needs upstream fix",
		ExpectedCompletionDate: late,
	})
	assert.True(t, apperrors.IsValidationError(err), "delay without reason")

	updated, err := f.svc.RegisterPlan(ctx, supportActor, ticket.ID, RegisterPlanInput{
		Plan:                   "needs upstream fix",
		ExpectedCompletionDate: late,
		DelayReason:            "waiting on vendor patch",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, late, updated.DueDate)
	require.NotNil(t, updated.InitialDueDate)
	assert.Equal(t, ticket.DueDate, *updated.InitialDueDate)
	assert.Equal(t, "waiting on vendor patch", updated.ExpectedCompletionDelayReason)
}

func TestPostponementApproval(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusInProgress)
	originalDue := ticket.DueDate
	proposed := originalDue.AddDate(0, 0, 7)

	updated, err := f.svc.RequestPostponement(ctx, supportActor, ticket.ID, proposed, "scope grew")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPostponeRequested, updated.Status)
	require.NotNil(t, updated.PostponeDate)
	assert.Equal(t, proposed, *updated.PostponeDate)
	assert.Equal(t, "scope grew", updated.PostponeReason)

	updated, err = f.svc.ApprovePostponement(ctx, customerActor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, proposed, updated.DueDate)
	assert.Nil(t, updated.PostponeDate)
	assert.Empty(t, updated.PostponeReason)
	require.NotNil(t, updated.InitialDueDate)
	assert.Equal(t, originalDue, *updated.InitialDueDate)
}

func TestPostponementRejectionKeepsDueDate(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusInProgress)
	originalDue := ticket.DueDate

	_, err := f.svc.RequestPostponement(ctx, supportActor, ticket.ID, originalDue.AddDate(0, 0, 7), "scope grew")
	require.NoError(t, err)

	_, err = f.svc.RejectPostponement(ctx, customerActor, ticket.ID, "")
	assert.True(t, apperrors.IsValidationError(err), "reason required")

	updated, err := f.svc.RejectPostponement(ctx, customerActor, ticket.ID, "deadline is contractual")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, originalDue, updated.DueDate)
	assert.Nil(t, updated.PostponeDate)
	assert.Nil(t, updated.InitialDueDate)
	assert.Equal(t, "deadline is contractual", updated.RejectionReason)
}

// The first deadline change wins the snapshot; later changes never
// overwrite it.
func TestInitialDueDateSetOnce(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusReceived)
	originalDue := ticket.DueDate

	firstMove := originalDue.AddDate(0, 0, 2)
	_, err := f.svc.RegisterPlan(ctx, supportActor, ticket.ID, RegisterPlanInput{
		Plan:                   "fix exporter",
		ExpectedCompletionDate: firstMove,
		DelayReason:            "vendor dependency",
	})
	require.NoError(t, err)

	secondMove := originalDue.AddDate(0, 0, 9)
	_, err = f.svc.RequestPostponement(ctx, supportActor, ticket.ID, secondMove, "vendor slipped")
	require.NoError(t, err)
	updated, err := f.svc.ApprovePostponement(ctx, customerActor, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, secondMove, updated.DueDate)
	require.NotNil(t, updated.InitialDueDate)
	assert.Equal(t, originalDue, *updated.InitialDueDate)
}

func TestCompletionRejectionReturnsToInProgress(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusCompletionRequested)

	updated, err := f.svc.RejectCompletion(ctx, customerActor, ticket.ID, "export still fails for CSV")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, "export still fails for CSV", updated.RejectionReason)
	assert.Zero(t, updated.Satisfaction)

	// rework can be reported again
	updated, err = f.svc.RequestCompletion(ctx, supportActor, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompletionRequested, updated.Status)
}

func TestApproveCompletionSatisfactionBounds(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	f.seed(t, domain.TicketStatusCompletionRequested)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.ApproveCompletion(ctx, customerActor, "T-20250303-001", rating, "")
		assert.True(t, apperrors.IsValidationError(err), "rating %d", rating)
	}
}

func TestGuardsRejectWrongRoleAndState(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		status domain.TicketStatus
		call   func(ticketID string) error
	}{
		{"customer cannot mark received", domain.TicketStatusWaiting, func(id string) error {
			_, err := f.svc.MarkReceived(ctx, customerActor, id)
			return err
		}},
		{"support cannot approve completion", domain.TicketStatusCompletionRequested, func(id string) error {
			_, err := f.svc.ApproveCompletion(ctx, leadActor, id, 5, "")
			return err
		}},
		{"customer cannot request postponement", domain.TicketStatusInProgress, func(id string) error {
			_, err := f.svc.RequestPostponement(ctx, customerActor, id, testNow.AddDate(0, 0, 7), "why")
			return err
		}},
		{"plan not registrable from waiting", domain.TicketStatusWaiting, func(id string) error {
			_, err := f.svc.RegisterPlan(ctx, supportActor, id, RegisterPlanInput{
				Plan:                   "p",
				ExpectedCompletionDate: testNow.AddDate(0, 0, 2),
			})
			return err
		}},
		{"approval without pending request", domain.TicketStatusInProgress, func(id string) error {
			_, err := f.svc.ApprovePostponement(ctx, customerActor, id)
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticket := f.seed(t, tc.status)
			before, err := f.tickets.GetByID(ctx, ticket.ID)
			require.NoError(t, err)

			err = tc.call(ticket.ID)
			assert.True(t, apperrors.IsGuardViolation(err), "got %v", err)

			// a refused operation leaves ticket and history untouched
			after, err := f.tickets.GetByID(ctx, ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, before, after)
			entries, err := f.history.ListByTicket(ctx, ticket.ID, repository.HistoryOrderAsc)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestTransitionFailedCommitSurfacesPersistenceError(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusWaiting)
	f.store.failOn[ticket.ID] = assert.AnError

	_, err := f.svc.MarkReceived(ctx, supportActor, ticket.ID)
	assert.True(t, apperrors.IsPersistenceFailure(err))

	after, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaiting, after.Status)
}

func TestGetTicketNotFound(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.GetTicket(context.Background(), "T-20250303-999")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestTransitionsPublishEvents(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := context.Background()
	ticket := f.seed(t, domain.TicketStatusInProgress)

	_, err := f.svc.RequestPostponement(ctx, supportActor, ticket.ID, testNow.AddDate(0, 0, 7), "scope grew")
	require.NoError(t, err)

	types := make([]events.EventType, len(*f.events))
	for i, e := range *f.events {
		types[i] = e.Type
	}
	assert.Contains(t, types, events.EventPostponementRequested)
	assert.Contains(t, types, events.EventTicketStatusChanged)
}
