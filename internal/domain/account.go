package domain

import "time"

// Account is one of the small pool of shared, mutually exclusive bookable
// meeting identities. Managed by service administrators only.
type Account struct {
	ID              string
	Name            string
	IsActive        bool
	MaxParticipants int
	// Opaque credentials for the external meeting platform. Redacted from
	// non-admin responses at the API boundary.
	LoginEmail    string
	LoginPassword string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
