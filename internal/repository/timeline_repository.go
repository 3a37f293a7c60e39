package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
)

// TimelineRepository reads the append-only ticket event log. Writes go
// through appendTimelineTx inside the owning transaction; nothing ever
// updates or deletes an entry.
type TimelineRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds the repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

// ListByTicket returns entries in insertion order.
func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, ticket_id, action, actor_id, actor_role, related_step, details, created_at
        FROM ticket_timeline WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.Action,
			&entry.ActorID,
			&entry.ActorRole,
			&entry.RelatedStep,
			&entry.Details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

// appendTimelineTx inserts one entry within the caller's transaction so
// the status write and its timeline record commit together.
func appendTimelineTx(ctx context.Context, tx pgx.Tx, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO ticket_timeline (ticket_id, action, actor_id, actor_role, related_step, details)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return tx.QueryRow(ctx, query,
		entry.TicketID,
		entry.Action,
		entry.ActorID,
		entry.ActorRole,
		entry.RelatedStep,
		entry.Details,
	).Scan(&entry.ID, &entry.CreatedAt)
}
