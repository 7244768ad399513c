package service

import (
	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util"
)

// Operation names each guarded entry point of the ticket lifecycle.
type Operation string

const (
	OpMarkReceived        Operation = "mark_received"
	OpRegisterPlan        Operation = "register_plan"
	OpRequestPostponement Operation = "request_postponement"
	OpApprovePostponement Operation = "approve_postponement"
	OpRejectPostponement  Operation = "reject_postponement"
	OpRequestCompletion   Operation = "request_completion"
	OpApproveCompletion   Operation = "approve_completion"
	OpRejectCompletion    Operation = "reject_completion"
)

type guardRule struct {
	roles map[domain.Role]bool
	from  map[domain.TicketStatus]bool
}

var supportSide = map[domain.Role]bool{
	domain.RoleSupport:     true,
	domain.RoleSupportLead: true,
	domain.RoleAdmin:       true,
}

var customerOnly = map[domain.Role]bool{
	domain.RoleCustomer: true,
}

// guardTable is the single source of truth for who may invoke which
// transition from which state. Consulted once per operation entry point.
var guardTable = map[Operation]guardRule{
	OpMarkReceived: {
		roles: supportSide,
		from:  states(domain.TicketStatusWaiting),
	},
	OpRegisterPlan: {
		roles: supportSide,
		from:  states(domain.TicketStatusReceived, domain.TicketStatusReceivedAuto),
	},
	OpRequestPostponement: {
		roles: supportSide,
		from:  states(domain.TicketStatusInProgress, domain.TicketStatusDelayed),
	},
	OpApprovePostponement: {
		roles: customerOnly,
		from:  states(domain.TicketStatusPostponeRequested),
	},
	OpRejectPostponement: {
		roles: customerOnly,
		from:  states(domain.TicketStatusPostponeRequested),
	},
	OpRequestCompletion: {
		roles: supportSide,
		from:  states(domain.TicketStatusInProgress, domain.TicketStatusDelayed),
	},
	OpApproveCompletion: {
		roles: customerOnly,
		from:  states(domain.TicketStatusCompletionRequested),
	},
	OpRejectCompletion: {
		roles: customerOnly,
		from:  states(domain.TicketStatusCompletionRequested),
	},
}

func states(list ...domain.TicketStatus) map[domain.TicketStatus]bool {
	set := make(map[domain.TicketStatus]bool, len(list))
	for _, s := range list {
		set[s] = true
	}
	return set
}

// checkGuard validates role and current state for an operation. It runs
// before any mutation; a failure leaves ticket and history untouched.
func checkGuard(op Operation, role domain.Role, status domain.TicketStatus) error {
	rule, ok := guardTable[op]
	if !ok {
		return apperrors.NewGuardViolation("unknown operation", map[string]any{"operation": string(op)})
	}
	if !rule.roles[role] {
		return apperrors.NewGuardViolation("role not permitted for operation", map[string]any{
			"operation": string(op),
			"role":      string(role),
		})
	}
	if !rule.from[status] {
		return apperrors.NewGuardViolation("operation not permitted in current status", map[string]any{
			"operation": string(op),
			"status":    string(status),
		})
	}
	return nil
}
