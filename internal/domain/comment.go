package domain

import "time"

// Comment is one message in a ticket's discussion thread. The thread is
// displayed alongside the timeline but is not part of the state machine.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	CreatedAt time.Time
}

// Feedback is the submitter's optional satisfaction capture on closure.
type Feedback struct {
	ID        string
	TicketID  string
	UserID    string
	Rating    int // 1..5
	Comment   string
	CreatedAt time.Time
}
