package workflow

import (
	"fmt"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// transitionKey looks up permitted targets for an acting role at a status.
type transitionKey struct {
	Role domain.Role
	From domain.TicketStatus
}

// validatorKey looks up the precondition validator for one edge.
type validatorKey struct {
	From domain.TicketStatus
	To   domain.TicketStatus
}

// Validator checks the preconditions of a single transition. It must be
// pure: all stateful facts are preloaded into the TransitionContext.
type Validator func(tc TransitionContext) error

// repairTransitions is the (role, currentStatus) -> allowed targets table
// for repair tickets.
var repairTransitions = map[transitionKey][]domain.TicketStatus{
	{domain.RoleServiceAdmin, domain.TicketStatusSubmitted}: {
		domain.TicketStatusAssigned,
		domain.TicketStatusRejected,
	},
	{domain.RoleTechnician, domain.TicketStatusAssigned}: {
		domain.TicketStatusInProgress,
	},
	{domain.RoleTechnician, domain.TicketStatusInProgress}: {
		domain.TicketStatusOnHold,
		domain.TicketStatusWaitingForSubmitter,
	},
	{domain.RoleTechnician, domain.TicketStatusOnHold}: {
		domain.TicketStatusInProgress,
		domain.TicketStatusWaitingForSubmitter,
	},
	// Closure is reachable by the service admin as an override or by the
	// original submitter as confirmation; ownership is validated per edge.
	{domain.RoleServiceAdmin, domain.TicketStatusWaitingForSubmitter}: {
		domain.TicketStatusClosed,
	},
	{domain.RoleEmployee, domain.TicketStatusWaitingForSubmitter}: {
		domain.TicketStatusClosed,
	},
}

// bookingTransitions is the table for meeting-booking tickets.
var bookingTransitions = map[transitionKey][]domain.TicketStatus{
	{domain.RoleServiceAdmin, domain.TicketStatusPendingReview}: {
		domain.TicketStatusApproved,
		domain.TicketStatusRejected,
	},
}

var repairValidators = map[validatorKey]Validator{
	{domain.TicketStatusSubmitted, domain.TicketStatusAssigned}: func(tc TransitionContext) error {
		if tc.AssigneeID == "" {
			return apperrors.NewValidationError("a technician must be selected for assignment", nil)
		}
		return nil
	},
	{domain.TicketStatusSubmitted, domain.TicketStatusRejected}: requireReason,
	{domain.TicketStatusAssigned, domain.TicketStatusInProgress}: func(tc TransitionContext) error {
		// Only reachable as a side effect of the first diagnosis
		// submission, with explicit technician confirmation.
		if !tc.IsAssignee {
			return apperrors.NewPermissionDenied("only the assigned technician may start work")
		}
		if !tc.DiagnosisExists {
			return apperrors.NewPreconditionFailed("starting work requires a submitted diagnosis", nil)
		}
		if !tc.Confirmed {
			return apperrors.NewPreconditionFailed("technician confirmation is required to start work", nil)
		}
		return nil
	},
	{domain.TicketStatusInProgress, domain.TicketStatusOnHold}: requireAssignee,
	{domain.TicketStatusOnHold, domain.TicketStatusInProgress}: requireAssignee,
	{domain.TicketStatusWaitingForSubmitter, domain.TicketStatusClosed}: func(tc TransitionContext) error {
		if tc.ActiveRole == domain.RoleEmployee && !tc.IsCreator {
			return apperrors.NewPermissionDenied("only the original submitter may confirm closure")
		}
		if !tc.Confirmed {
			return apperrors.NewPreconditionFailed("closure requires explicit confirmation", nil)
		}
		return nil
	},
	{domain.TicketStatusInProgress, domain.TicketStatusWaitingForSubmitter}: requireRepairComplete,
	{domain.TicketStatusOnHold, domain.TicketStatusWaitingForSubmitter}:     requireRepairComplete,
}

var bookingValidators = map[validatorKey]Validator{
	{domain.TicketStatusPendingReview, domain.TicketStatusRejected}: requireReason,
	// PENDING_REVIEW -> APPROVED carries field and scheduling preconditions
	// checked by the booking service inside the approval transaction.
}

func requireReason(tc TransitionContext) error {
	if tc.Reason == "" {
		return apperrors.NewValidationError("a non-empty reason is required", nil)
	}
	return nil
}

func requireAssignee(tc TransitionContext) error {
	if !tc.IsAssignee {
		return apperrors.NewPermissionDenied("only the assigned technician may perform this transition")
	}
	return nil
}

func requireRepairComplete(tc TransitionContext) error {
	if !tc.IsAssignee {
		return apperrors.NewPermissionDenied("only the assigned technician may hand the ticket back")
	}
	if !tc.DiagnosisExists {
		return apperrors.NewPreconditionFailed("a diagnosis must exist before handing the ticket back", nil)
	}
	if tc.DiagnosisRepair.RequiresWorkOrder() && !tc.WorkOrdersTerminal {
		return apperrors.NewPreconditionFailed("all work orders must reach a terminal status first", nil)
	}
	return nil
}

func tables(tt domain.TicketType) (map[transitionKey][]domain.TicketStatus, map[validatorKey]Validator) {
	if tt == domain.TicketTypeMeetingBooking {
		return bookingTransitions, bookingValidators
	}
	return repairTransitions, repairValidators
}

// AllowedTargets returns the statuses the role may move the ticket to.
func AllowedTargets(tt domain.TicketType, role domain.Role, from domain.TicketStatus) []domain.TicketStatus {
	table, _ := tables(tt)
	return table[transitionKey{Role: role, From: from}]
}

// Authorize checks the (role, currentStatus) -> target lookup. It returns
// PermissionDenied when the edge is absent from the table.
func Authorize(tt domain.TicketType, role domain.Role, from, to domain.TicketStatus) error {
	for _, target := range AllowedTargets(tt, role, from) {
		if target == to {
			return nil
		}
	}
	return apperrors.NewPermissionDenied(
		fmt.Sprintf("role %s may not move a %s ticket from %s to %s", role, tt, from, to))
}

// Validate runs the per-edge precondition validator, if any.
func Validate(tt domain.TicketType, from, to domain.TicketStatus, tc TransitionContext) error {
	_, validators := tables(tt)
	if v, ok := validators[validatorKey{From: from, To: to}]; ok {
		return v(tc)
	}
	return nil
}

// Apply authorizes and validates a requested transition in one call.
// It never mutates anything; callers commit the write only when it
// returns nil.
func Apply(tt domain.TicketType, from, to domain.TicketStatus, tc TransitionContext) error {
	if !domain.StatusValid(tt, to) {
		return apperrors.NewValidationError(
			fmt.Sprintf("status %s is not valid for %s tickets", to, tt), nil)
	}
	if err := Authorize(tt, tc.ActiveRole, from, to); err != nil {
		return err
	}
	return Validate(tt, from, to, tc)
}
