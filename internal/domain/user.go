package domain

import "time"

// Role enumerates the capabilities a user can act under. A user may hold
// several roles but acts under exactly one per request (the active role).
type Role string

const (
	RoleEmployee     Role = "EMPLOYEE"
	RoleTechnician   Role = "TECHNICIAN"
	RoleServiceAdmin Role = "SERVICE_ADMIN"
)

// KnownRole reports whether r is one of the defined roles.
func KnownRole(r Role) bool {
	switch r {
	case RoleEmployee, RoleTechnician, RoleServiceAdmin:
		return true
	}
	return false
}

// UserStatus represents lifecycle states for an account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is the domain model for everyone who interacts with the service:
// submitters, technicians, and service administrators.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Roles        []Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(r Role) bool {
	for _, held := range u.Roles {
		if held == r {
			return true
		}
	}
	return false
}
