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
	"github.com/servicedesk-io/helpdesk-service/internal/scheduler"
	"github.com/servicedesk-io/helpdesk-service/internal/workflow"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates the ticket lifecycle for both repair and
// meeting-booking tickets. All status mutations go through Transition;
// nothing edits ticket fields directly.
type TicketService struct {
	tickets    repository.TicketRepository
	timeline   repository.TimelineRepository
	diagnoses  repository.DiagnosisRepository
	workOrders repository.WorkOrderRepository
	bookings   repository.BookingRepository
	users      repository.UserRepository
	feedback   repository.FeedbackRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	TimelineRepo  repository.TimelineRepository
	DiagnosisRepo repository.DiagnosisRepository
	WorkOrderRepo repository.WorkOrderRepository
	BookingRepo   repository.BookingRepository
	UserRepo      repository.UserRepository
	FeedbackRepo  repository.FeedbackRepository
	Dispatcher    events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		timeline:   deps.TimelineRepo,
		diagnoses:  deps.DiagnosisRepo,
		workOrders: deps.WorkOrderRepo,
		bookings:   deps.BookingRepo,
		users:      deps.UserRepo,
		feedback:   deps.FeedbackRepo,
		dispatcher: deps.Dispatcher,
	}
}

// SubmitInput describes ticket creation payload.
type SubmitInput struct {
	Type        domain.TicketType
	Title       string
	Description string

	// Booking fields, required when Type is MEETING_BOOKING.
	Date                  string
	StartTime             string
	EndTime               string
	EstimatedParticipants int
	BreakoutRooms         int
	CoHosts               []domain.CoHost
}

// TransitionInput carries a requested status change plus its extras.
type TransitionInput struct {
	NewStatus  domain.TicketStatus
	Reason     string
	AssigneeID string
	Confirmed  bool
}

// TicketDetail bundles a ticket with its read models.
type TicketDetail struct {
	Ticket    *domain.Ticket
	Timeline  []domain.TimelineEntry
	Diagnosis *domain.Diagnosis
	Booking   *domain.Booking
}

// Submit creates a ticket. Booking tickets are validated against the
// scheduling invariants before any write.
func (s *TicketService) Submit(ctx context.Context, actor *domain.User, input SubmitInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	ticket := &domain.Ticket{
		Number:      generateTicketNumber(input.Type),
		Type:        input.Type,
		Status:      domain.InitialStatus(input.Type),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		CreatedBy:   actor.ID,
	}
	entry := &domain.TimelineEntry{
		Action:      domain.ActionCreated,
		ActorID:     &actor.ID,
		ActorRole:   domain.RoleEmployee,
		RelatedStep: domain.StepSubmission,
		Details:     map[string]any{"status": ticket.Status},
	}

	switch input.Type {
	case domain.TicketTypeRepair:
		if err := s.tickets.Create(ctx, ticket, entry); err != nil {
			return nil, apperrors.MapError(err)
		}
	case domain.TicketTypeMeetingBooking:
		booking, err := buildBooking(input)
		if err != nil {
			return nil, err
		}
		if err := s.bookings.Create(ctx, ticket, booking, entry); err != nil {
			return nil, apperrors.MapError(err)
		}
	default:
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": input.Type})
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: domain.RoleEmployee},
		Payload: events.TicketCreatedPayload{
			Number: ticket.Number,
			Type:   ticket.Type,
			Title:  ticket.Title,
		},
	})
	return ticket, nil
}

func buildBooking(input SubmitInput) (*domain.Booking, error) {
	if input.Date == "" {
		return nil, apperrors.NewValidationError("booking date is required", nil)
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return nil, apperrors.NewValidationError("booking date must be YYYY-MM-DD", map[string]any{"date": input.Date})
	}
	window, err := scheduler.ParseWindow(input.StartTime, input.EndTime)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if input.EstimatedParticipants <= 0 {
		return nil, apperrors.NewValidationError("estimated participants must be positive", nil)
	}
	for _, host := range input.CoHosts {
		if strings.TrimSpace(host.Name) == "" || !strings.Contains(host.Email, "@") {
			return nil, apperrors.NewValidationError("co-hosts require a name and a valid email", nil)
		}
	}
	return &domain.Booking{
		Date:                  input.Date,
		StartTime:             input.StartTime,
		EndTime:               input.EndTime,
		StartMin:              window.Start,
		EndMin:                window.End,
		EstimatedParticipants: input.EstimatedParticipants,
		BreakoutRooms:         input.BreakoutRooms,
		CoHosts:               input.CoHosts,
	}, nil
}

// Transition applies a status change through the transition table. It is
// all-or-nothing: every precondition is validated before any write, and
// re-requesting the current status is an idempotent no-op.
func (s *TicketService) Transition(ctx context.Context, principal Principal, ticketID string, input TransitionInput) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.Status == input.NewStatus {
		// Already applied; return current state without a duplicate
		// timeline entry.
		return ticket, nil
	}

	if ticket.Type == domain.TicketTypeMeetingBooking && input.NewStatus == domain.TicketStatusApproved {
		return nil, apperrors.NewPreconditionFailed(
			"booking approval requires account assignment; use the booking approval operation", nil)
	}

	tc, err := s.buildTransitionContext(ctx, principal, ticket, input)
	if err != nil {
		return nil, err
	}
	if err := workflow.Apply(ticket.Type, ticket.Status, input.NewStatus, tc); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	entry := &domain.TimelineEntry{
		Action:      timelineAction(input.NewStatus),
		ActorID:     &principal.UserID,
		ActorRole:   principal.ActiveRole,
		RelatedStep: relatedStep(input.NewStatus),
		Details: map[string]any{
			"from": oldStatus,
			"to":   input.NewStatus,
		},
	}
	if input.Reason != "" {
		entry.Details["reason"] = input.Reason
	}

	ticket.Status = input.NewStatus
	switch input.NewStatus {
	case domain.TicketStatusAssigned:
		ticket.AssignedTo = &input.AssigneeID
		entry.Details["technician_id"] = input.AssigneeID
	case domain.TicketStatusClosed, domain.TicketStatusRejected:
		now := time.Now()
		ticket.ClosedAt = &now
	}

	if err := s.tickets.UpdateStatus(ctx, ticket, oldStatus, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: principal.UserID, Role: principal.ActiveRole},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Reason:    input.Reason,
		},
	})
	if input.NewStatus == domain.TicketStatusAssigned {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    events.Actor{UserID: principal.UserID, Role: principal.ActiveRole},
			Payload: events.TicketAssignedPayload{
				TechnicianID: input.AssigneeID,
				SubmitterID:  ticket.CreatedBy,
			},
		})
	}
	return ticket, nil
}

// buildTransitionContext preloads the stateful facts the transition
// validators need, so validation stays pure and happens before any write.
func (s *TicketService) buildTransitionContext(ctx context.Context, principal Principal, ticket *domain.Ticket, input TransitionInput) (workflow.TransitionContext, error) {
	tc := workflow.TransitionContext{
		TicketID:   ticket.ID,
		ActorID:    principal.UserID,
		ActiveRole: principal.ActiveRole,
		IsCreator:  ticket.CreatedBy == principal.UserID,
		IsAssignee: ticket.AssignedTo != nil && *ticket.AssignedTo == principal.UserID,
		Reason:     strings.TrimSpace(input.Reason),
		AssigneeID: input.AssigneeID,
		Confirmed:  input.Confirmed,
	}

	if input.NewStatus == domain.TicketStatusAssigned && input.AssigneeID != "" {
		assignee, err := s.users.GetByID(ctx, input.AssigneeID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return tc, apperrors.NewValidationError("selected technician does not exist",
					map[string]any{"technician_id": input.AssigneeID})
			}
			return tc, apperrors.MapError(err)
		}
		if !assignee.HasRole(domain.RoleTechnician) {
			return tc, apperrors.NewValidationError("selected user is not a technician",
				map[string]any{"technician_id": input.AssigneeID})
		}
	}

	if ticket.Type != domain.TicketTypeRepair {
		return tc, nil
	}
	diagnosis, err := s.diagnoses.GetByTicket(ctx, ticket.ID)
	switch {
	case err == nil:
		tc.DiagnosisExists = true
		tc.DiagnosisRepair = diagnosis.RepairType
	case errors.Is(err, pgx.ErrNoRows):
		// no diagnosis yet
	default:
		return tc, apperrors.MapError(err)
	}
	if tc.DiagnosisExists && tc.DiagnosisRepair.RequiresWorkOrder() {
		terminal, err := s.workOrders.AllTerminal(ctx, ticket.ID)
		if err != nil {
			return tc, apperrors.MapError(err)
		}
		tc.WorkOrdersTerminal = terminal
	} else {
		tc.WorkOrdersTerminal = true
	}
	return tc, nil
}

// Get returns a ticket with its timeline and sub-records, enforcing
// role-based visibility.
func (s *TicketService) Get(ctx context.Context, principal Principal, ticketID string) (*TicketDetail, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.canView(principal, ticket) {
		return nil, apperrors.NewPermissionDenied("no access to this ticket")
	}

	detail := &TicketDetail{Ticket: ticket}
	detail.Timeline, err = s.timeline.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if ticket.Type == domain.TicketTypeRepair {
		diagnosis, err := s.diagnoses.GetByTicket(ctx, ticket.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		detail.Diagnosis = diagnosis
	} else {
		booking, err := s.bookings.GetByTicket(ctx, ticket.ID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		detail.Booking = booking
	}
	return detail, nil
}

// ListFilter describes ticket listing filters.
type ListFilter struct {
	Type     *domain.TicketType
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// List returns tickets scoped to the active role: employees see their
// own, technicians their assignments, service admins everything.
func (s *TicketService) List(ctx context.Context, principal Principal, filter ListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Type:     filter.Type,
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
	switch principal.ActiveRole {
	case domain.RoleEmployee:
		repoFilter.CreatedBy = &principal.UserID
	case domain.RoleTechnician:
		repoFilter.AssignedTo = &principal.UserID
	case domain.RoleServiceAdmin:
		// unrestricted
	default:
		return nil, apperrors.NewPermissionDenied("unknown active role")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// SubmitFeedback records the submitter's satisfaction after closure.
// Feedback is optional and never blocks closure.
func (s *TicketService) SubmitFeedback(ctx context.Context, principal Principal, ticketID string, rating int, comment string) (*domain.Feedback, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CreatedBy != principal.UserID {
		return nil, apperrors.NewPermissionDenied("only the submitter may leave feedback")
	}
	if ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewPreconditionFailed("feedback is only accepted on closed tickets", nil)
	}
	if rating < 1 || rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": rating})
	}
	feedback := &domain.Feedback{
		TicketID: ticket.ID,
		UserID:   principal.UserID,
		Rating:   rating,
		Comment:  strings.TrimSpace(comment),
	}
	if err := s.feedback.Create(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}
	return feedback, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) canView(principal Principal, ticket *domain.Ticket) bool {
	switch principal.ActiveRole {
	case domain.RoleServiceAdmin:
		return true
	case domain.RoleTechnician:
		if ticket.AssignedTo != nil && *ticket.AssignedTo == principal.UserID {
			return true
		}
		return ticket.CreatedBy == principal.UserID
	default:
		return ticket.CreatedBy == principal.UserID
	}
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func timelineAction(status domain.TicketStatus) domain.TimelineAction {
	switch status {
	case domain.TicketStatusAssigned:
		return domain.ActionAssigned
	case domain.TicketStatusRejected:
		return domain.ActionRejected
	case domain.TicketStatusClosed:
		return domain.ActionClosed
	case domain.TicketStatusApproved:
		return domain.ActionApproved
	default:
		return domain.ActionStatusChanged
	}
}

func relatedStep(status domain.TicketStatus) domain.RelatedStep {
	switch status {
	case domain.TicketStatusAssigned:
		return domain.StepAssignment
	case domain.TicketStatusInProgress, domain.TicketStatusOnHold:
		return domain.StepRepair
	case domain.TicketStatusWaitingForSubmitter:
		return domain.StepReview
	case domain.TicketStatusClosed:
		return domain.StepClosure
	case domain.TicketStatusApproved, domain.TicketStatusRejected, domain.TicketStatusPendingReview:
		return domain.StepReview
	default:
		return domain.StepSubmission
	}
}

func generateTicketNumber(t domain.TicketType) string {
	prefix := "RPR"
	if t == domain.TicketTypeMeetingBooking {
		prefix = "MTG"
	}
	return prefix + "-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
