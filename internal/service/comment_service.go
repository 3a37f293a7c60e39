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

// CommentService runs the discussion thread attached to tickets. The
// thread sits beside the timeline and never drives the state machine.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
}

// NewCommentService constructs the service.
func NewCommentService(tickets repository.TicketRepository, comments repository.CommentRepository, dispatcher events.Dispatcher) *CommentService {
	return &CommentService{tickets: tickets, comments: comments, dispatcher: dispatcher}
}

// Add posts a comment. Participants only: the submitter, the assignee
// and service admins.
func (s *CommentService) Add(ctx context.Context, principal Principal, ticketID, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !canParticipate(principal, ticket) {
		return nil, apperrors.NewPermissionDenied("no access to this ticket")
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: principal.UserID,
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		preview := body
		if len(preview) > 120 {
			preview = preview[:120]
		}
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventCommentAdded,
			TicketID:  ticket.ID,
			Actor:     events.Actor{UserID: principal.UserID, Role: principal.ActiveRole},
			Timestamp: time.Now(),
			Payload: events.CommentAddedPayload{
				CommentID:   comment.ID,
				BodyPreview: preview,
			},
		})
	}
	return comment, nil
}

// List returns the ticket's comments in posting order.
func (s *CommentService) List(ctx context.Context, principal Principal, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !canParticipate(principal, ticket) {
		return nil, apperrors.NewPermissionDenied("no access to this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

func canParticipate(principal Principal, ticket *domain.Ticket) bool {
	if principal.ActiveRole == domain.RoleServiceAdmin {
		return true
	}
	if ticket.CreatedBy == principal.UserID {
		return true
	}
	return ticket.AssignedTo != nil && *ticket.AssignedTo == principal.UserID
}
