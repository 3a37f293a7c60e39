package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// FeedbackRepository stores closure feedback, at most one per ticket.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error)
}

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository builds the repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.Feedback) error {
	const query = `
        INSERT INTO ticket_feedback (ticket_id, user_id, rating, comment)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		feedback.TicketID,
		feedback.UserID,
		feedback.Rating,
		feedback.Comment,
	).Scan(&feedback.ID, &feedback.CreatedAt)
	if isPgErr(err, pgUniqueViolation) {
		return apperrors.NewConflict("feedback already submitted for this ticket",
			map[string]any{"ticket_id": feedback.TicketID})
	}
	return err
}

func (r *feedbackRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error) {
	const query = `
        SELECT id, ticket_id, user_id, rating, comment, created_at
        FROM ticket_feedback WHERE ticket_id=$1`
	var feedback domain.Feedback
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&feedback.ID,
		&feedback.TicketID,
		&feedback.UserID,
		&feedback.Rating,
		&feedback.Comment,
		&feedback.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &feedback, nil
}
