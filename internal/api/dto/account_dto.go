package dto

import "time"

// AccountRequest is the payload for account create/update.
type AccountRequest struct {
	Name            string `json:"name"`
	IsActive        *bool  `json:"is_active,omitempty"`
	MaxParticipants int    `json:"max_participants"`
	LoginEmail      string `json:"login_email,omitempty"`
	LoginPassword   string `json:"login_password,omitempty"`
}

// AccountResponse mirrors an account. Credentials are empty in non-admin
// responses.
type AccountResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	IsActive        bool      `json:"is_active"`
	MaxParticipants int       `json:"max_participants"`
	LoginEmail      string    `json:"login_email,omitempty"`
	LoginPassword   string    `json:"login_password,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
