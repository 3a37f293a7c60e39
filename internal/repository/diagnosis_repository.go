package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// DiagnosisRepository persists the 1:1 diagnosis sub-record of repair
// tickets.
type DiagnosisRepository interface {
	GetByTicket(ctx context.Context, ticketID string) (*domain.Diagnosis, error)
	// Save creates the diagnosis or amends it in place (bumping Version).
	// The timeline entry commits in the same transaction. When ticket is
	// non-nil its guarded status write joins the transaction too, so the
	// first diagnosis and the ASSIGNED -> IN_PROGRESS transition are atomic.
	Save(ctx context.Context, d *domain.Diagnosis, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.TimelineEntry) error
}

type diagnosisRepository struct {
	pool *pgxpool.Pool
}

// NewDiagnosisRepository builds the repository.
func NewDiagnosisRepository(pool *pgxpool.Pool) DiagnosisRepository {
	return &diagnosisRepository{pool: pool}
}

func (r *diagnosisRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Diagnosis, error) {
	const query = `
        SELECT id, ticket_id, technician_id, problem_category, repair_type,
               description, reason, notes, asset_condition_change, version,
               created_at, updated_at
        FROM diagnoses WHERE ticket_id=$1`
	var d domain.Diagnosis
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(
		&d.ID,
		&d.TicketID,
		&d.TechnicianID,
		&d.ProblemCategory,
		&d.RepairType,
		&d.Description,
		&d.Reason,
		&d.Notes,
		&d.AssetConditionChange,
		&d.Version,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *diagnosisRepository) Save(ctx context.Context, d *domain.Diagnosis, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO diagnoses (ticket_id, technician_id, problem_category, repair_type,
                               description, reason, notes, asset_condition_change)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (ticket_id) DO UPDATE SET
            problem_category=EXCLUDED.problem_category,
            repair_type=EXCLUDED.repair_type,
            description=EXCLUDED.description,
            reason=EXCLUDED.reason,
            notes=EXCLUDED.notes,
            asset_condition_change=EXCLUDED.asset_condition_change,
            version=diagnoses.version+1,
            updated_at=NOW()
        RETURNING id, version, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		d.TicketID,
		d.TechnicianID,
		d.ProblemCategory,
		d.RepairType,
		d.Description,
		d.Reason,
		d.Notes,
		d.AssetConditionChange,
	).Scan(&d.ID, &d.Version, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return err
	}

	if ticket != nil {
		const update = `
            UPDATE tickets SET status=$1, updated_at=NOW()
            WHERE id=$2 AND status=$3
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, update, ticket.Status, ticket.ID, expected).Scan(&ticket.UpdatedAt); err != nil {
			if err == pgx.ErrNoRows {
				return apperrors.NewConflict("ticket was modified concurrently; re-fetch and retry",
					map[string]any{"ticket_id": ticket.ID})
			}
			return err
		}
	}
	if entry != nil {
		entry.TicketID = d.TicketID
		if err := appendTimelineTx(ctx, tx, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
