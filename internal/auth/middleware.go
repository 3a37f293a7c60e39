package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// activeRoleHeader names the role a multi-role user acts under for this
// request.
const activeRoleHeader = "X-Active-Role"

// Principal represents the authenticated caller and the single role they
// are acting under.
type Principal struct {
	User       *domain.User
	ActiveRole domain.Role
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes and resolves the
// active role.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	user, err := m.users.GetByID(c.Context(), claims.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if user.Status != domain.UserStatusActive {
		return apperrors.NewUnauthorized("account suspended")
	}

	activeRole, err := resolveActiveRole(user, c.Get(activeRoleHeader))
	if err != nil {
		return err
	}

	c.Locals(principalKey, &Principal{User: user, ActiveRole: activeRole})
	return c.Next()
}

// resolveActiveRole picks the role the request acts under. A missing
// header defaults to the user's first role; a header naming a role the
// user does not hold is rejected.
func resolveActiveRole(user *domain.User, header string) (domain.Role, error) {
	if len(user.Roles) == 0 {
		return "", apperrors.NewPermissionDenied("user holds no roles")
	}
	if header == "" {
		return user.Roles[0], nil
	}
	requested := domain.Role(strings.ToUpper(strings.TrimSpace(header)))
	if !domain.KnownRole(requested) {
		return "", apperrors.NewValidationError("unknown role requested", map[string]any{"role": header})
	}
	if !user.HasRole(requested) {
		return "", apperrors.NewPermissionDenied("user does not hold the requested role")
	}
	return requested, nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
