package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// AccountRepository manages the bookable meeting account pool.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id string) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository builds the repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, is_active, max_participants, login_email, login_password)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		account.Name,
		account.IsActive,
		account.MaxParticipants,
		account.LoginEmail,
		account.LoginPassword,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if isPgErr(err, pgUniqueViolation) {
		return apperrors.NewConflict("account name already exists", map[string]any{"name": account.Name})
	}
	return err
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET name=$1, is_active=$2, max_participants=$3,
            login_email=$4, login_password=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		account.Name,
		account.IsActive,
		account.MaxParticipants,
		account.LoginEmail,
		account.LoginPassword,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, name, is_active, max_participants, login_email, login_password, created_at, updated_at
        FROM accounts WHERE id=$1`
	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.IsActive,
		&account.MaxParticipants,
		&account.LoginEmail,
		&account.LoginPassword,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	const query = `
        SELECT id, name, is_active, max_participants, login_email, login_password, created_at, updated_at
        FROM accounts ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.IsActive,
			&account.MaxParticipants,
			&account.LoginEmail,
			&account.LoginPassword,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}

// Delete removes an account unless bookings still reference it. The check
// and the delete share a transaction; the FK constraint is the backstop.
func (r *accountRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const check = `SELECT EXISTS (SELECT 1 FROM bookings WHERE account_id=$1)`
	var referenced bool
	if err := tx.QueryRow(ctx, check, id).Scan(&referenced); err != nil {
		return err
	}
	if referenced {
		return apperrors.NewConflict("account has bookings and cannot be deleted",
			map[string]any{"account_id": id})
	}

	cmd, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		if isPgErr(err, pgForeignKeyViolation) {
			return apperrors.NewConflict("account has bookings and cannot be deleted",
				map[string]any{"account_id": id})
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
