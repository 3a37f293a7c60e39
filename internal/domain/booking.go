package domain

import "time"

// CoHost is a named co-host for a booked meeting.
type CoHost struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Booking extends a meeting-booking ticket with its scheduling fields.
// AccountID, MeetingLink, Passcode and HostKey are assigned only when the
// booking is approved. StartMin/EndMin hold the window as minutes since
// midnight; the window is half-open [StartMin, EndMin).
type Booking struct {
	TicketID              string
	Date                  string // YYYY-MM-DD, same-day windows only
	StartTime             string // HH:MM
	EndTime               string // HH:MM
	StartMin              int
	EndMin                int
	AccountID             *string
	EstimatedParticipants int
	BreakoutRooms         int
	CoHosts               []CoHost
	MeetingLink           *string
	Passcode              *string
	HostKey               *string
	CreatedAt             time.Time
	UpdatedAt             time.Time

	// Status mirrors the owning ticket's status on reads that join the
	// tickets table; it is never written through this struct.
	Status TicketStatus
}
