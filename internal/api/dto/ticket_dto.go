package dto

import (
	"time"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
)

// CreateTicketRequest is the payload for POST /tickets. Booking fields
// are only read when type is MEETING_BOOKING.
type CreateTicketRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`

	Date                  string          `json:"date,omitempty"`
	StartTime             string          `json:"start_time,omitempty"`
	EndTime               string          `json:"end_time,omitempty"`
	EstimatedParticipants int             `json:"estimated_participants,omitempty"`
	BreakoutRooms         int             `json:"breakout_rooms,omitempty"`
	CoHosts               []domain.CoHost `json:"co_hosts,omitempty"`
}

// UpdateStatusRequest is the payload for PATCH /tickets/:id/status.
type UpdateStatusRequest struct {
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	AssigneeID string `json:"assignee_id,omitempty"`
	Confirmed  bool   `json:"confirmed,omitempty"`
}

// FeedbackRequest is the payload for POST /tickets/:id/feedback.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// CommentRequest is the payload for POST /tickets/:id/comments.
type CommentRequest struct {
	Body string `json:"body"`
}

// TicketSummary is the list representation of a ticket.
type TicketSummary struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Title      string     `json:"title"`
	CreatedBy  string     `json:"created_by"`
	AssignedTo *string    `json:"assigned_to,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// TimelineEntryResponse is one timeline row.
type TimelineEntryResponse struct {
	Action      string         `json:"action"`
	ActorID     *string        `json:"actor_id,omitempty"`
	ActorRole   string         `json:"actor_role,omitempty"`
	RelatedStep string         `json:"related_step"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DiagnosisResponse mirrors the diagnosis sub-record.
type DiagnosisResponse struct {
	ID                   string    `json:"id"`
	TechnicianID         string    `json:"technician_id"`
	ProblemCategory      string    `json:"problem_category"`
	RepairType           string    `json:"repair_type"`
	Description          string    `json:"description,omitempty"`
	Reason               string    `json:"reason,omitempty"`
	Notes                string    `json:"notes,omitempty"`
	AssetConditionChange *string   `json:"asset_condition_change,omitempty"`
	Version              int       `json:"version"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TicketDetailResponse is the full representation returned by GET /tickets/:id.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	Timeline    []TimelineEntryResponse `json:"timeline"`
	Diagnosis   *DiagnosisResponse      `json:"diagnosis,omitempty"`
	Booking     *BookingResponse        `json:"booking,omitempty"`
}

// CommentResponse is one discussion comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackResponse mirrors submitted feedback.
type FeedbackResponse struct {
	ID      string `json:"id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}
