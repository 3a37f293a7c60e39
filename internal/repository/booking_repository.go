package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// ApproveParams carries the fields assigned when a booking is approved.
type ApproveParams struct {
	AccountID   string
	MeetingLink string
	Passcode    string
	HostKey     string
}

// BookingRepository persists the booking extension of meeting tickets.
//
// ApproveTx is the authoritative conflict guard: it re-runs the overlap
// scan under a row lock on the account and commits the status write, the
// account assignment, and the timeline entry in one transaction. Any
// advisory check done before it must not be trusted.
type BookingRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket, booking *domain.Booking, entry *domain.TimelineEntry) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Booking, error)
	ListByAccountDate(ctx context.Context, accountID, date string, statuses []domain.TicketStatus) ([]domain.Booking, error)
	ListByDate(ctx context.Context, date string) ([]domain.Booking, error)
	ListByMonth(ctx context.Context, month string) ([]domain.Booking, error)
	ApproveTx(ctx context.Context, ticket *domain.Ticket, booking *domain.Booking, params ApproveParams, entry *domain.TimelineEntry) error
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository builds the repository.
func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingColumns = `
    b.ticket_id, b.booking_date, b.start_time, b.end_time, b.start_min, b.end_min,
    b.account_id, b.estimated_participants, b.breakout_rooms, b.co_hosts,
    b.meeting_link, b.passcode, b.host_key, b.created_at, b.updated_at, t.status`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(
		&b.TicketID,
		&b.Date,
		&b.StartTime,
		&b.EndTime,
		&b.StartMin,
		&b.EndMin,
		&b.AccountID,
		&b.EstimatedParticipants,
		&b.BreakoutRooms,
		&b.CoHosts,
		&b.MeetingLink,
		&b.Passcode,
		&b.HostKey,
		&b.CreatedAt,
		&b.UpdatedAt,
		&b.Status,
	); err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts the ticket row, the booking row, and the CREATED
// timeline entry in one transaction.
func (r *bookingRepository) Create(ctx context.Context, ticket *domain.Ticket, booking *domain.Booking, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTicket = `
        INSERT INTO tickets (number, type, status, title, description, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTicket,
		ticket.Number,
		ticket.Type,
		ticket.Status,
		ticket.Title,
		ticket.Description,
		ticket.CreatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return err
	}

	const insertBooking = `
        INSERT INTO bookings (ticket_id, booking_date, start_time, end_time, start_min, end_min,
                              estimated_participants, breakout_rooms, co_hosts)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`
	booking.TicketID = ticket.ID
	if err := tx.QueryRow(ctx, insertBooking,
		booking.TicketID,
		booking.Date,
		booking.StartTime,
		booking.EndTime,
		booking.StartMin,
		booking.EndMin,
		booking.EstimatedParticipants,
		booking.BreakoutRooms,
		booking.CoHosts,
	).Scan(&booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	entry.TicketID = ticket.ID
	if err := appendTimelineTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *bookingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
        FROM bookings b JOIN tickets t ON t.id = b.ticket_id
        WHERE b.ticket_id=$1`
	return scanBooking(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *bookingRepository) ListByAccountDate(ctx context.Context, accountID, date string, statuses []domain.TicketStatus) ([]domain.Booking, error) {
	placeholders := make([]string, len(statuses))
	args := []any{accountID, date}
	for i, status := range statuses {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := `SELECT` + bookingColumns + `
        FROM bookings b JOIN tickets t ON t.id = b.ticket_id
        WHERE (b.account_id=$1 OR b.account_id IS NULL)
          AND b.booking_date=$2`
	if len(statuses) > 0 {
		query += fmt.Sprintf(" AND t.status IN (%s)", strings.Join(placeholders, ","))
	}
	query += " ORDER BY b.start_min ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *bookingRepository) ListByDate(ctx context.Context, date string) ([]domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
        FROM bookings b JOIN tickets t ON t.id = b.ticket_id
        WHERE b.booking_date=$1
        ORDER BY b.start_min ASC`
	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

// ListByMonth lists bookings whose date falls in the given YYYY-MM month.
func (r *bookingRepository) ListByMonth(ctx context.Context, month string) ([]domain.Booking, error) {
	query := `SELECT` + bookingColumns + `
        FROM bookings b JOIN tickets t ON t.id = b.ticket_id
        WHERE b.booking_date LIKE $1 || '-%'
        ORDER BY b.booking_date ASC, b.start_min ASC`
	rows, err := r.pool.Query(ctx, query, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *bookingRepository) ApproveTx(ctx context.Context, ticket *domain.Ticket, booking *domain.Booking, params ApproveParams, entry *domain.TimelineEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Lock the account row: concurrent approvals against the same account
	// serialize here, which closes the check-then-write race window.
	const lockAccount = `SELECT is_active FROM accounts WHERE id=$1 FOR UPDATE`
	var active bool
	if err := tx.QueryRow(ctx, lockAccount, params.AccountID).Scan(&active); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("account", map[string]any{"account_id": params.AccountID})
		}
		return err
	}
	if !active {
		return apperrors.NewPreconditionFailed("account is inactive",
			map[string]any{"account_id": params.AccountID})
	}

	// Half-open interval overlap against approved bookings on the same
	// account and date.
	const conflictScan = `
        SELECT b.ticket_id, t.number, b.start_time, b.end_time
        FROM bookings b JOIN tickets t ON t.id = b.ticket_id
        WHERE b.account_id=$1 AND b.booking_date=$2 AND t.status='APPROVED'
          AND b.start_min < $4 AND b.end_min > $3
        LIMIT 1`
	var conflictID, conflictNumber, conflictStart, conflictEnd string
	err = tx.QueryRow(ctx, conflictScan,
		params.AccountID, booking.Date, booking.StartMin, booking.EndMin,
	).Scan(&conflictID, &conflictNumber, &conflictStart, &conflictEnd)
	switch err {
	case nil:
		return apperrors.NewConflict("requested window overlaps an approved booking on this account",
			map[string]any{
				"conflicting_ticket": conflictNumber,
				"window":             conflictStart + "-" + conflictEnd,
			})
	case pgx.ErrNoRows:
		// window is free
	default:
		return err
	}

	const updateTicket = `
        UPDATE tickets SET status=$1, closed_at=NOW(), updated_at=NOW()
        WHERE id=$2 AND status=$3
        RETURNING updated_at`
	ticket.Status = domain.TicketStatusApproved
	if err := tx.QueryRow(ctx, updateTicket,
		ticket.Status, ticket.ID, domain.TicketStatusPendingReview,
	).Scan(&ticket.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewConflict("booking was decided concurrently; re-fetch and retry",
				map[string]any{"ticket_id": ticket.ID})
		}
		return err
	}

	const updateBooking = `
        UPDATE bookings SET account_id=$1, meeting_link=$2, passcode=$3, host_key=$4, updated_at=NOW()
        WHERE ticket_id=$5`
	if _, err := tx.Exec(ctx, updateBooking,
		params.AccountID, params.MeetingLink, params.Passcode, params.HostKey, ticket.ID,
	); err != nil {
		// The exclusion constraint on (account_id, date, window) is the
		// final backstop when two transactions raced past the scan.
		if isPgErr(err, pgExclusionViolation) {
			return apperrors.NewConflict("requested window overlaps an approved booking on this account", nil)
		}
		return err
	}
	booking.AccountID = &params.AccountID
	booking.MeetingLink = &params.MeetingLink
	booking.Passcode = &params.Passcode
	booking.HostKey = &params.HostKey

	entry.TicketID = ticket.ID
	if err := appendTimelineTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	var result []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}
