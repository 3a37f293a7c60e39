package dto

import (
	"time"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
)

// BookingResponse mirrors the booking extension of a meeting ticket.
// Credentials (link, passcode, host key) are filled only for callers the
// handler decides may see them.
type BookingResponse struct {
	TicketID              string          `json:"ticket_id"`
	Date                  string          `json:"date"`
	StartTime             string          `json:"start_time"`
	EndTime               string          `json:"end_time"`
	AccountID             *string         `json:"account_id,omitempty"`
	EstimatedParticipants int             `json:"estimated_participants"`
	BreakoutRooms         int             `json:"breakout_rooms,omitempty"`
	CoHosts               []domain.CoHost `json:"co_hosts,omitempty"`
	MeetingLink           *string         `json:"meeting_link,omitempty"`
	Passcode              *string         `json:"passcode,omitempty"`
	HostKey               *string         `json:"host_key,omitempty"`
	Status                string          `json:"status,omitempty"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ApproveBookingRequest is the payload for POST /bookings/:id/approve.
type ApproveBookingRequest struct {
	AccountID   string `json:"account_id"`
	MeetingLink string `json:"meeting_link"`
	Passcode    string `json:"passcode"`
	HostKey     string `json:"host_key"`
}

// RejectBookingRequest is the payload for POST /bookings/:id/reject.
type RejectBookingRequest struct {
	Reason string `json:"reason"`
}

// WorkOrderRequest is the payload for POST /tickets/:id/work-orders.
type WorkOrderRequest struct {
	Type    string `json:"type"`
	Details string `json:"details"`
}

// WorkOrderStatusRequest is the payload for PATCH /tickets/:id/work-orders/:woID.
type WorkOrderStatusRequest struct {
	Status string `json:"status"`
}

// WorkOrderResponse mirrors a work order.
type WorkOrderResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiagnosisRequest is the payload for POST /tickets/:id/diagnosis.
type DiagnosisRequest struct {
	ProblemCategory      string  `json:"problem_category"`
	RepairType           string  `json:"repair_type"`
	Description          string  `json:"description,omitempty"`
	Reason               string  `json:"reason,omitempty"`
	Notes                string  `json:"notes,omitempty"`
	AssetConditionChange *string `json:"asset_condition_change,omitempty"`
	StartWork            bool    `json:"start_work,omitempty"`
}
