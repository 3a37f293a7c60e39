package events

import (
	"time"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventDiagnosisSubmitted     EventType = "diagnosis_submitted"
	EventWorkOrderCreated       EventType = "work_order_created"
	EventWorkOrderStatusChanged EventType = "work_order_status_changed"
	EventBookingApproved        EventType = "booking_approved"
	EventBookingRejected        EventType = "booking_rejected"
	EventCommentAdded           EventType = "comment_added"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number string            `json:"number"`
	Type   domain.TicketType `json:"type"`
	Title  string            `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
}

// TicketAssignedPayload payload. Emitted alongside the SUBMITTED->ASSIGNED
// status change so both the technician and the submitter can be notified.
type TicketAssignedPayload struct {
	TechnicianID string `json:"technician_id"`
	SubmitterID  string `json:"submitter_id"`
}

// DiagnosisSubmittedPayload payload.
type DiagnosisSubmittedPayload struct {
	RepairType      domain.RepairType      `json:"repair_type"`
	ProblemCategory domain.ProblemCategory `json:"problem_category"`
	Version         int                    `json:"version"`
	StartedWork     bool                   `json:"started_work"`
}

// WorkOrderPayload payload for work order events.
type WorkOrderPayload struct {
	WorkOrderID string                 `json:"work_order_id"`
	Type        domain.WorkOrderType   `json:"work_order_type"`
	OldStatus   domain.WorkOrderStatus `json:"old_status,omitempty"`
	NewStatus   domain.WorkOrderStatus `json:"new_status"`
}

// BookingDecisionPayload payload for approval/rejection events.
type BookingDecisionPayload struct {
	AccountID *string `json:"account_id,omitempty"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Reason    string  `json:"reason,omitempty"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}
