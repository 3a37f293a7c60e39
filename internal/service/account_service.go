package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// AccountService manages the pool of bookable meeting accounts. All
// mutating operations are restricted to service admins at the router.
type AccountService struct {
	accounts repository.AccountRepository
}

// NewAccountService constructs the service.
func NewAccountService(accounts repository.AccountRepository) *AccountService {
	return &AccountService{accounts: accounts}
}

// AccountInput carries account create/update fields.
type AccountInput struct {
	Name            string
	IsActive        *bool
	MaxParticipants int
	LoginEmail      string
	LoginPassword   string
}

func (in AccountInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.NewValidationError("account name is required", nil)
	}
	if in.MaxParticipants <= 0 {
		return apperrors.NewValidationError("max participants must be positive", nil)
	}
	return nil
}

// Create registers a new bookable account.
func (s *AccountService) Create(ctx context.Context, input AccountInput) (*domain.Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	account := &domain.Account{
		Name:            strings.TrimSpace(input.Name),
		IsActive:        true,
		MaxParticipants: input.MaxParticipants,
		LoginEmail:      input.LoginEmail,
		LoginPassword:   input.LoginPassword,
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// Update edits an existing account. Deactivating an account does not
// touch its approved bookings; it only blocks future approvals.
func (s *AccountService) Update(ctx context.Context, id string, input AccountInput) (*domain.Account, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	account, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	account.Name = strings.TrimSpace(input.Name)
	account.MaxParticipants = input.MaxParticipants
	if input.LoginEmail != "" {
		account.LoginEmail = input.LoginEmail
	}
	if input.LoginPassword != "" {
		account.LoginPassword = input.LoginPassword
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// Get returns one account with credentials, admin view.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.Account, error) {
	return s.get(ctx, id)
}

// List returns all accounts. When admin is false the credentials are
// redacted.
func (s *AccountService) List(ctx context.Context, admin bool) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !admin {
		for i := range accounts {
			accounts[i] = redactAccount(accounts[i])
		}
	}
	return accounts, nil
}

// Delete removes an account that has never been booked. Accounts with
// booking history must be deactivated instead.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *AccountService) get(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"account_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}
