package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// WorkOrderService manages procurement, vendor and license sub-requests
// hanging off a repair ticket.
type WorkOrderService struct {
	tickets    repository.TicketRepository
	diagnoses  repository.DiagnosisRepository
	workOrders repository.WorkOrderRepository
	dispatcher events.Dispatcher
}

// WorkOrderDependencies bundles repositories for the work-order service.
type WorkOrderDependencies struct {
	TicketRepo    repository.TicketRepository
	DiagnosisRepo repository.DiagnosisRepository
	WorkOrderRepo repository.WorkOrderRepository
	Dispatcher    events.Dispatcher
}

// NewWorkOrderService constructs the service.
func NewWorkOrderService(deps WorkOrderDependencies) *WorkOrderService {
	return &WorkOrderService{
		tickets:    deps.TicketRepo,
		diagnoses:  deps.DiagnosisRepo,
		workOrders: deps.WorkOrderRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Create opens a work order. The ticket's diagnosis must call for one,
// and its type must match what the diagnosis implies.
func (s *WorkOrderService) Create(ctx context.Context, principal Principal, ticketID string, woType domain.WorkOrderType, details string) (*domain.WorkOrder, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Type != domain.TicketTypeRepair {
		return nil, apperrors.NewInvalidState("work orders only apply to repair tickets", nil)
	}
	if ticket.AssignedTo == nil || *ticket.AssignedTo != principal.UserID {
		return nil, apperrors.NewPermissionDenied("only the assigned technician may open work orders")
	}
	switch ticket.Status {
	case domain.TicketStatusInProgress, domain.TicketStatusOnHold:
	default:
		return nil, apperrors.NewInvalidState("work orders require an active repair",
			map[string]any{"status": ticket.Status})
	}

	diagnosis, err := s.diagnoses.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewInvalidState("a diagnosis must exist before opening work orders", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if !diagnosis.RepairType.RequiresWorkOrder() {
		return nil, apperrors.NewInvalidState("the diagnosis does not call for a work order",
			map[string]any{"repair_type": diagnosis.RepairType})
	}
	if implied := diagnosis.RepairType.WorkOrderType(); woType != implied {
		return nil, apperrors.NewValidationError("work order type does not match the diagnosis",
			map[string]any{"requested": woType, "expected": implied})
	}
	if strings.TrimSpace(details) == "" {
		return nil, apperrors.NewValidationError("work order details are required", nil)
	}

	wo := &domain.WorkOrder{
		TicketID:  ticket.ID,
		Type:      woType,
		Status:    domain.WorkOrderStatusRequested,
		Details:   strings.TrimSpace(details),
		CreatedBy: principal.UserID,
	}
	entry := &domain.TimelineEntry{
		Action:      domain.ActionWorkOrderCreated,
		ActorID:     &principal.UserID,
		ActorRole:   principal.ActiveRole,
		RelatedStep: domain.StepWorkOrder,
		Details:     map[string]any{"work_order_type": woType},
	}
	if err := s.workOrders.Create(ctx, wo, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventWorkOrderCreated, ticket.ID, principal, events.WorkOrderPayload{
		WorkOrderID: wo.ID,
		Type:        wo.Type,
		NewStatus:   wo.Status,
	})
	return wo, nil
}

// UpdateStatus advances a work order along its own lifecycle. Updating
// back to the current status is a no-op.
func (s *WorkOrderService) UpdateStatus(ctx context.Context, principal Principal, ticketID, workOrderID string, newStatus domain.WorkOrderStatus) (*domain.WorkOrder, error) {
	wo, err := s.workOrders.GetByID(ctx, workOrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": workOrderID})
		}
		return nil, apperrors.MapError(err)
	}
	if wo.TicketID != ticketID {
		return nil, apperrors.NewNotFound("work order", map[string]any{"work_order_id": workOrderID})
	}
	if wo.Status == newStatus {
		return wo, nil
	}
	if !domain.WorkOrderTransitionValid(wo.Status, newStatus) {
		return nil, apperrors.NewInvalidState("work order status change not allowed",
			map[string]any{"from": wo.Status, "to": newStatus})
	}

	oldStatus := wo.Status
	wo.Status = newStatus
	entry := &domain.TimelineEntry{
		Action:      domain.ActionWorkOrderUpdated,
		ActorID:     &principal.UserID,
		ActorRole:   principal.ActiveRole,
		RelatedStep: domain.StepWorkOrder,
		Details: map[string]any{
			"work_order_id": wo.ID,
			"from":          oldStatus,
			"to":            newStatus,
		},
	}
	if err := s.workOrders.UpdateStatus(ctx, wo, oldStatus, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventWorkOrderStatusChanged, wo.TicketID, principal, events.WorkOrderPayload{
		WorkOrderID: wo.ID,
		Type:        wo.Type,
		OldStatus:   oldStatus,
		NewStatus:   newStatus,
	})
	return wo, nil
}

// List returns the ticket's work orders in creation order.
func (s *WorkOrderService) List(ctx context.Context, ticketID string) ([]domain.WorkOrder, error) {
	orders, err := s.workOrders.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orders, nil
}

func (s *WorkOrderService) publish(ctx context.Context, t events.EventType, ticketID string, principal Principal, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: principal.UserID, Role: principal.ActiveRole},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
