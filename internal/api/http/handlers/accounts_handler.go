package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/servicedesk-io/helpdesk-service/internal/api/dto"
	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/service"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// AccountsHandler manages the meeting-account pool. Mutations are admin
// routes; listing is open to any authenticated caller with credentials
// redacted for non-admins.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// Create POST /accounts.
func (h *AccountsHandler) Create(c *fiber.Ctx) error {
	var req dto.AccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.accounts.Create(c.Context(), accountInput(req))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": accountResponse(account)})
}

// Update PUT /accounts/:id.
func (h *AccountsHandler) Update(c *fiber.Ctx) error {
	var req dto.AccountRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	account, err := h.accounts.Update(c.Context(), c.Params("id"), accountInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}

// Get GET /accounts/:id (admin).
func (h *AccountsHandler) Get(c *fiber.Ctx) error {
	account, err := h.accounts.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": accountResponse(account)})
}

// List GET /accounts.
func (h *AccountsHandler) List(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	accounts, err := h.accounts.List(c.Context(), principal.ActiveRole == domain.RoleServiceAdmin)
	if err != nil {
		return err
	}
	items := make([]dto.AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, accountResponse(&accounts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Delete DELETE /accounts/:id.
func (h *AccountsHandler) Delete(c *fiber.Ctx) error {
	if err := h.accounts.Delete(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func accountInput(req dto.AccountRequest) service.AccountInput {
	return service.AccountInput{
		Name:            req.Name,
		IsActive:        req.IsActive,
		MaxParticipants: req.MaxParticipants,
		LoginEmail:      req.LoginEmail,
		LoginPassword:   req.LoginPassword,
	}
}

func accountResponse(account *domain.Account) dto.AccountResponse {
	return dto.AccountResponse{
		ID:              account.ID,
		Name:            account.Name,
		IsActive:        account.IsActive,
		MaxParticipants: account.MaxParticipants,
		LoginEmail:      account.LoginEmail,
		LoginPassword:   account.LoginPassword,
		CreatedAt:       account.CreatedAt,
		UpdatedAt:       account.UpdatedAt,
	}
}
