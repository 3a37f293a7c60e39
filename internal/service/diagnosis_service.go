package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// DiagnosisService handles the technician assessment of repair tickets.
type DiagnosisService struct {
	tickets    repository.TicketRepository
	diagnoses  repository.DiagnosisRepository
	dispatcher events.Dispatcher
}

// DiagnosisDependencies bundles repositories for the diagnosis service.
type DiagnosisDependencies struct {
	TicketRepo    repository.TicketRepository
	DiagnosisRepo repository.DiagnosisRepository
	Dispatcher    events.Dispatcher
}

// NewDiagnosisService constructs the service.
func NewDiagnosisService(deps DiagnosisDependencies) *DiagnosisService {
	return &DiagnosisService{
		tickets:    deps.TicketRepo,
		diagnoses:  deps.DiagnosisRepo,
		dispatcher: deps.Dispatcher,
	}
}

// DiagnosisInput carries the assessment fields. StartWork requests the
// move into active repair in the same step; it doubles as the explicit
// confirmation the transition requires.
type DiagnosisInput struct {
	ProblemCategory      domain.ProblemCategory
	RepairType           domain.RepairType
	Description          string
	Reason               string
	Notes                string
	AssetConditionChange *string
	StartWork            bool
}

// Submit records or amends the diagnosis for a repair ticket. Only the
// assigned technician may diagnose, and only while the repair is open.
// When StartWork is set on an ASSIGNED ticket the diagnosis write and
// the move to IN_PROGRESS commit together.
func (s *DiagnosisService) Submit(ctx context.Context, principal Principal, ticketID string, input DiagnosisInput) (*domain.Diagnosis, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Type != domain.TicketTypeRepair {
		return nil, apperrors.NewInvalidState("only repair tickets carry a diagnosis", nil)
	}
	if ticket.AssignedTo == nil || *ticket.AssignedTo != principal.UserID {
		return nil, apperrors.NewPermissionDenied("only the assigned technician may submit a diagnosis")
	}
	switch ticket.Status {
	case domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusOnHold:
	default:
		return nil, apperrors.NewInvalidState("diagnosis is not editable in the current status",
			map[string]any{"status": ticket.Status})
	}

	diagnosis := &domain.Diagnosis{
		TicketID:             ticket.ID,
		TechnicianID:         principal.UserID,
		ProblemCategory:      input.ProblemCategory,
		RepairType:           input.RepairType,
		Description:          input.Description,
		Reason:               input.Reason,
		Notes:                input.Notes,
		AssetConditionChange: input.AssetConditionChange,
	}
	if reason := diagnosis.Validate(); reason != "" {
		return nil, apperrors.NewValidationError(reason, nil)
	}

	entry := &domain.TimelineEntry{
		Action:      domain.ActionDiagnosisSubmitted,
		ActorID:     &principal.UserID,
		ActorRole:   principal.ActiveRole,
		RelatedStep: domain.StepDiagnosis,
		Details: map[string]any{
			"problem_category": input.ProblemCategory,
			"repair_type":      input.RepairType,
		},
	}

	startedWork := false
	var ticketForUpdate *domain.Ticket
	expected := ticket.Status
	if input.StartWork {
		if ticket.Status != domain.TicketStatusAssigned {
			return nil, apperrors.NewInvalidState("work can only start from an assigned ticket",
				map[string]any{"status": ticket.Status})
		}
		ticketForUpdate = ticket
		ticketForUpdate.Status = domain.TicketStatusInProgress
		entry.Details["status_from"] = domain.TicketStatusAssigned
		entry.Details["status_to"] = domain.TicketStatusInProgress
		startedWork = true
	}

	if err := s.diagnoses.Save(ctx, diagnosis, ticketForUpdate, expected, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDiagnosisSubmitted,
			TicketID:  ticket.ID,
			Actor:     events.Actor{UserID: principal.UserID, Role: principal.ActiveRole},
			Timestamp: time.Now(),
			Payload: events.DiagnosisSubmittedPayload{
				RepairType:      diagnosis.RepairType,
				ProblemCategory: diagnosis.ProblemCategory,
				Version:         diagnosis.Version,
				StartedWork:     startedWork,
			},
		})
	}
	return diagnosis, nil
}

// Get returns the ticket's diagnosis.
func (s *DiagnosisService) Get(ctx context.Context, ticketID string) (*domain.Diagnosis, error) {
	diagnosis, err := s.diagnoses.GetByTicket(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("diagnosis", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return diagnosis, nil
}
