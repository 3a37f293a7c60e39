package domain

import "time"

// TicketType separates the two request families handled by the service.
type TicketType string

const (
	TicketTypeRepair         TicketType = "REPAIR"
	TicketTypeMeetingBooking TicketType = "MEETING_BOOKING"
)

// TicketStatus enumerates lifecycle states for tickets. The valid set
// depends on the ticket type.
type TicketStatus string

const (
	// Repair lifecycle.
	TicketStatusSubmitted           TicketStatus = "SUBMITTED"
	TicketStatusAssigned            TicketStatus = "ASSIGNED"
	TicketStatusInProgress          TicketStatus = "IN_PROGRESS"
	TicketStatusOnHold              TicketStatus = "ON_HOLD"
	TicketStatusWaitingForSubmitter TicketStatus = "WAITING_FOR_SUBMITTER"
	TicketStatusClosed              TicketStatus = "CLOSED"

	// Meeting-booking lifecycle.
	TicketStatusPendingReview TicketStatus = "PENDING_REVIEW"
	TicketStatusApproved      TicketStatus = "APPROVED"

	// Shared by both lifecycles.
	TicketStatusRejected TicketStatus = "REJECTED"
)

var repairStatuses = []TicketStatus{
	TicketStatusSubmitted,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusOnHold,
	TicketStatusWaitingForSubmitter,
	TicketStatusClosed,
	TicketStatusRejected,
}

var bookingStatuses = []TicketStatus{
	TicketStatusPendingReview,
	TicketStatusApproved,
	TicketStatusRejected,
}

// ValidStatuses returns the status domain for a ticket type.
func ValidStatuses(t TicketType) []TicketStatus {
	switch t {
	case TicketTypeRepair:
		return repairStatuses
	case TicketTypeMeetingBooking:
		return bookingStatuses
	default:
		return nil
	}
}

// StatusValid reports whether status belongs to the ticket type's domain.
func StatusValid(t TicketType, status TicketStatus) bool {
	for _, s := range ValidStatuses(t) {
		if s == status {
			return true
		}
	}
	return false
}

// InitialStatus returns the status a freshly submitted ticket starts in.
func InitialStatus(t TicketType) TicketStatus {
	if t == TicketTypeMeetingBooking {
		return TicketStatusPendingReview
	}
	return TicketStatusSubmitted
}

// Terminal reports whether the status ends the ticket's lifecycle.
func Terminal(t TicketType, status TicketStatus) bool {
	switch t {
	case TicketTypeRepair:
		return status == TicketStatusClosed || status == TicketStatusRejected
	case TicketTypeMeetingBooking:
		return status == TicketStatusApproved || status == TicketStatusRejected
	}
	return false
}

// Ticket is the aggregate for repair requests and meeting-booking requests.
// Tickets are never hard-deleted; they only reach a terminal status.
type Ticket struct {
	ID          string
	Number      string
	Type        TicketType
	Status      TicketStatus
	Title       string
	Description string
	CreatedBy   string
	AssignedTo  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
