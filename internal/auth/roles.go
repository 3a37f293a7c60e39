package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// RequireActiveRole ensures the caller is acting under one of the allowed
// roles. With no arguments it only requires authentication.
func RequireActiveRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.ActiveRole]; !exists {
			return apperrors.NewPermissionDenied("active role not permitted for this operation")
		}
		return c.Next()
	}
}
