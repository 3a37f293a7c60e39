package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// WorkOrderRepository owns work order persistence.
type WorkOrderRepository interface {
	Create(ctx context.Context, wo *domain.WorkOrder, entry *domain.TimelineEntry) error
	UpdateStatus(ctx context.Context, wo *domain.WorkOrder, expected domain.WorkOrderStatus, entry *domain.TimelineEntry) error
	GetByID(ctx context.Context, id string) (*domain.WorkOrder, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkOrder, error)
	AllTerminal(ctx context.Context, ticketID string) (bool, error)
}

type workOrderRepository struct {
	pool *pgxpool.Pool
}

// NewWorkOrderRepository builds the repository.
func NewWorkOrderRepository(pool *pgxpool.Pool) WorkOrderRepository {
	return &workOrderRepository{pool: pool}
}

func (r *workOrderRepository) Create(ctx context.Context, wo *domain.WorkOrder, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO work_orders (ticket_id, type, status, details, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		wo.TicketID,
		wo.Type,
		wo.Status,
		wo.Details,
		wo.CreatedBy,
	).Scan(&wo.ID, &wo.CreatedAt, &wo.UpdatedAt); err != nil {
		return err
	}

	entry.TicketID = wo.TicketID
	if err := appendTimelineTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *workOrderRepository) UpdateStatus(ctx context.Context, wo *domain.WorkOrder, expected domain.WorkOrderStatus, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE work_orders SET status=$1, updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, query, wo.Status, wo.ID, expected).Scan(&wo.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewConflict("work order was modified concurrently; re-fetch and retry",
				map[string]any{"work_order_id": wo.ID})
		}
		return err
	}

	entry.TicketID = wo.TicketID
	if err := appendTimelineTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *workOrderRepository) GetByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	const query = `
        SELECT id, ticket_id, type, status, details, created_by, created_at, updated_at
        FROM work_orders WHERE id=$1`
	var wo domain.WorkOrder
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&wo.ID,
		&wo.TicketID,
		&wo.Type,
		&wo.Status,
		&wo.Details,
		&wo.CreatedBy,
		&wo.CreatedAt,
		&wo.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &wo, nil
}

// ListByTicket returns work orders in insertion order.
func (r *workOrderRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkOrder, error) {
	const query = `
        SELECT id, ticket_id, type, status, details, created_by, created_at, updated_at
        FROM work_orders WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkOrder
	for rows.Next() {
		var wo domain.WorkOrder
		if err := rows.Scan(
			&wo.ID,
			&wo.TicketID,
			&wo.Type,
			&wo.Status,
			&wo.Details,
			&wo.CreatedBy,
			&wo.CreatedAt,
			&wo.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, wo)
	}
	return result, rows.Err()
}

// AllTerminal reports whether no work order for the ticket still blocks
// completion. True when the ticket has no work orders at all.
func (r *workOrderRepository) AllTerminal(ctx context.Context, ticketID string) (bool, error) {
	const query = `
        SELECT NOT EXISTS (
            SELECT 1 FROM work_orders
            WHERE ticket_id=$1 AND status NOT IN ('DELIVERED','COMPLETED','FAILED','CANCELLED')
        )`
	var allTerminal bool
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&allTerminal); err != nil {
		return false, err
	}
	return allTerminal, nil
}
