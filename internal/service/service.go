package service

import "github.com/servicedesk-io/helpdesk-service/internal/domain"

// Principal identifies the acting user and the single role they act
// under for the current request. A user holding several roles picks one
// per request; services only ever see the resolved pair.
type Principal struct {
	UserID     string
	ActiveRole domain.Role
}
