package service

import (
	"context"
	"testing"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
)

func submitBooking(t *testing.T, e *env, creator *domain.User, date, start, end string) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.Submit(context.Background(), creator, SubmitInput{
		Type:                  domain.TicketTypeMeetingBooking,
		Title:                 "quarterly all-hands",
		Date:                  date,
		StartTime:             start,
		EndTime:               end,
		EstimatedParticipants: 40,
	})
	if err != nil {
		t.Fatalf("submit booking: %v", err)
	}
	return ticket
}

func validApproval(accountID string) ApproveInput {
	return ApproveInput{
		AccountID:   accountID,
		MeetingLink: "https://meet.example.com/j/123456789",
		Passcode:    "word1234",
		HostKey:     "035791",
	}
}

func TestSubmitBookingStartsPendingReview(t *testing.T) {
	e := newEnv()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:30")
	if ticket.Status != domain.TicketStatusPendingReview {
		t.Fatalf("status=%s, want PENDING_REVIEW", ticket.Status)
	}
	booking := e.store.bookings[ticket.ID]
	if booking.StartMin != 540 || booking.EndMin != 630 {
		t.Fatalf("window=%d-%d, want 540-630", booking.StartMin, booking.EndMin)
	}
	if booking.AccountID != nil {
		t.Fatal("account must not be bound before approval")
	}
}

func TestSubmitBookingValidation(t *testing.T) {
	e := newEnv()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	ctx := context.Background()

	cases := []struct {
		name  string
		input SubmitInput
	}{
		{"missing date", SubmitInput{Type: domain.TicketTypeMeetingBooking, Title: "m", StartTime: "09:00", EndTime: "10:00", EstimatedParticipants: 5}},
		{"bad date", SubmitInput{Type: domain.TicketTypeMeetingBooking, Title: "m", Date: "15.09.2026", StartTime: "09:00", EndTime: "10:00", EstimatedParticipants: 5}},
		{"inverted window", SubmitInput{Type: domain.TicketTypeMeetingBooking, Title: "m", Date: "2026-09-15", StartTime: "11:00", EndTime: "10:00", EstimatedParticipants: 5}},
		{"zero length", SubmitInput{Type: domain.TicketTypeMeetingBooking, Title: "m", Date: "2026-09-15", StartTime: "10:00", EndTime: "10:00", EstimatedParticipants: 5}},
		{"no participants", SubmitInput{Type: domain.TicketTypeMeetingBooking, Title: "m", Date: "2026-09-15", StartTime: "09:00", EndTime: "10:00"}},
		{"bad co-host", SubmitInput{Type: domain.TicketTypeMeetingBooking, Title: "m", Date: "2026-09-15", StartTime: "09:00", EndTime: "10:00", EstimatedParticipants: 5, CoHosts: []domain.CoHost{{Name: "x", Email: "not-an-email"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.tickets.Submit(ctx, creator, tc.input)
			assertCode(t, err, "VALIDATION_FAILED")
		})
	}
}

func TestApproveBooking(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-1", "webinar-a", 100, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:30")
	booking, err := e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-1"))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	if booking.AccountID == nil || *booking.AccountID != "acc-1" {
		t.Fatalf("account=%v, want acc-1", booking.AccountID)
	}
	if booking.MeetingLink == nil || booking.HostKey == nil || booking.Passcode == nil {
		t.Fatal("credentials must be set on approval")
	}
	if got := e.store.tickets[ticket.ID].Status; got != domain.TicketStatusApproved {
		t.Fatalf("ticket status=%s, want APPROVED", got)
	}
	if approved := e.dispatcher.byType(events.EventBookingApproved); len(approved) != 1 {
		t.Fatalf("expected one booking_approved event, got %d", len(approved))
	}
}

func TestApproveInputValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-1", "webinar-a", 100, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}
	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:00")

	cases := []struct {
		name   string
		mutate func(*ApproveInput)
	}{
		{"missing account", func(in *ApproveInput) { in.AccountID = "" }},
		{"http link", func(in *ApproveInput) { in.MeetingLink = "http://meet.example.com/j/1" }},
		{"not a url", func(in *ApproveInput) { in.MeetingLink = "://broken" }},
		{"empty passcode", func(in *ApproveInput) { in.Passcode = "  " }},
		{"short host key", func(in *ApproveInput) { in.HostKey = "12345" }},
		{"non-digit host key", func(in *ApproveInput) { in.HostKey = "12a456" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validApproval("acc-1")
			tc.mutate(&input)
			_, err := e.bookings.Approve(ctx, admin, ticket.ID, input)
			assertCode(t, err, "VALIDATION_FAILED")
		})
	}
}

func TestApproveRejectsOverlapOnSameAccount(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-1", "webinar-a", 100, true)
	e.store.addAccount("acc-2", "webinar-b", 100, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	first := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:30")
	overlapping := submitBooking(t, e, creator, "2026-09-15", "10:00", "11:00")
	adjacent := submitBooking(t, e, creator, "2026-09-15", "10:30", "11:30")

	if _, err := e.bookings.Approve(ctx, admin, first.ID, validApproval("acc-1")); err != nil {
		t.Fatalf("approve first: %v", err)
	}

	_, err := e.bookings.Approve(ctx, admin, overlapping.ID, validApproval("acc-1"))
	assertCode(t, err, "CONFLICT")

	// The same window is fine on a different account.
	if _, err := e.bookings.Approve(ctx, admin, overlapping.ID, validApproval("acc-2")); err != nil {
		t.Fatalf("approve on second account: %v", err)
	}

	// Back-to-back windows on one account never conflict.
	if _, err := e.bookings.Approve(ctx, admin, adjacent.ID, validApproval("acc-1")); err != nil {
		t.Fatalf("approve adjacent: %v", err)
	}
}

func TestApprovePreconditions(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-inactive", "retired", 100, false)
	e.store.addAccount("acc-small", "huddle", 10, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:00")

	_, err := e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-inactive"))
	assertCode(t, err, "PRECONDITION_FAILED")

	// 40 estimated participants exceed the 10-seat account.
	_, err = e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-small"))
	assertCode(t, err, "PRECONDITION_FAILED")

	_, err = e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-missing"))
	assertCode(t, err, "NOT_FOUND")
}

func TestApproveRepeatIsIdempotent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-1", "webinar-a", 100, true)
	e.store.addAccount("acc-2", "webinar-b", 100, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:00")
	if _, err := e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-1")); err != nil {
		t.Fatalf("approve: %v", err)
	}
	timelineLen := len(e.store.timeline[ticket.ID])
	eventsLen := len(e.dispatcher.byType(events.EventBookingApproved))

	// Re-issuing the committed assignment succeeds without new writes.
	repeat, err := e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-1"))
	if err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	if repeat.AccountID == nil || *repeat.AccountID != "acc-1" {
		t.Fatalf("account=%v, want acc-1", repeat.AccountID)
	}
	if repeat.Status != domain.TicketStatusApproved {
		t.Fatalf("status=%s, want APPROVED", repeat.Status)
	}
	if got := len(e.store.timeline[ticket.ID]); got != timelineLen {
		t.Fatalf("timeline grew from %d to %d on repeat", timelineLen, got)
	}
	if got := len(e.dispatcher.byType(events.EventBookingApproved)); got != eventsLen {
		t.Fatalf("approved events grew from %d to %d on repeat", eventsLen, got)
	}

	// Naming a different account for a decided booking is still an error.
	_, err = e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-2"))
	assertCode(t, err, "INVALID_STATE")
}

func TestRejectBooking(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:00")

	_, err := e.bookings.Reject(ctx, admin, ticket.ID, "   ")
	assertCode(t, err, "VALIDATION_FAILED")

	rejected, err := e.bookings.Reject(ctx, admin, ticket.ID, "no account free in that window")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.TicketStatusRejected || rejected.ClosedAt == nil {
		t.Fatalf("ticket=%+v, want REJECTED with timestamp", rejected)
	}
	if got := e.dispatcher.byType(events.EventBookingRejected); len(got) != 1 {
		t.Fatalf("expected one booking_rejected event, got %d", len(got))
	}
}

func TestApproveByNonAdminDenied(t *testing.T) {
	e := newEnv()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addUser("tech-1", domain.RoleTechnician)
	e.store.addAccount("acc-1", "Teams License A", 200, true)
	ctx := context.Background()

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:00")

	for _, p := range []Principal{
		{UserID: "emp-1", ActiveRole: domain.RoleEmployee},
		{UserID: "tech-1", ActiveRole: domain.RoleTechnician},
	} {
		_, err := e.bookings.Approve(ctx, p, ticket.ID, validApproval("acc-1"))
		assertCode(t, err, "PERMISSION_DENIED")
	}

	updated, err := e.tickets.Get(ctx, Principal{UserID: "emp-1", ActiveRole: domain.RoleEmployee}, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if updated.Ticket.Status != domain.TicketStatusPendingReview {
		t.Fatalf("status=%s, want PENDING_REVIEW", updated.Ticket.Status)
	}
}

func TestRejectByEmployeeDenied(t *testing.T) {
	e := newEnv()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	employee := Principal{UserID: "emp-1", ActiveRole: domain.RoleEmployee}

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:00")
	_, err := e.bookings.Reject(context.Background(), employee, ticket.ID, "changed my mind")
	assertCode(t, err, "PERMISSION_DENIED")
}

func TestCalendarForDay(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-1", "webinar-a", 100, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	approvedTicket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:30")
	if _, err := e.bookings.Approve(ctx, admin, approvedTicket.ID, validApproval("acc-1")); err != nil {
		t.Fatalf("approve: %v", err)
	}
	submitBooking(t, e, creator, "2026-09-15", "13:00", "14:00") // stays pending, unassigned
	submitBooking(t, e, creator, "2026-09-16", "09:00", "10:00") // different day

	day, err := e.bookings.CalendarForDay(ctx, "2026-09-15")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(day.Accounts) != 1 {
		t.Fatalf("accounts=%d, want 1", len(day.Accounts))
	}
	accountView := day.Accounts[0]
	if accountView.Account.LoginPassword != "" || accountView.Account.LoginEmail != "" {
		t.Fatal("calendar must not leak account credentials")
	}
	if len(accountView.Approved) != 1 {
		t.Fatalf("approved entries=%d, want 1", len(accountView.Approved))
	}
	// 09:00 on a 07:00 grid at 48px per 30min slot.
	if span := accountView.Approved[0].Span; span.Top != 192 || span.Height != 144 {
		t.Fatalf("span=%+v, want {192 144}", span)
	}
	if len(day.Unassigned) != 1 {
		t.Fatalf("unassigned=%d, want 1", len(day.Unassigned))
	}

	if _, err := e.bookings.CalendarForDay(ctx, "15-09-2026"); err == nil {
		t.Fatal("expected validation error for bad date")
	}
}

func TestAvailabilityConflictProbe(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	creator := e.store.addUser("emp-1", domain.RoleEmployee)
	e.store.addAccount("acc-1", "webinar-a", 100, true)
	admin := Principal{UserID: "adm-1", ActiveRole: domain.RoleServiceAdmin}

	ticket := submitBooking(t, e, creator, "2026-09-15", "09:00", "10:30")
	if _, err := e.bookings.Approve(ctx, admin, ticket.ID, validApproval("acc-1")); err != nil {
		t.Fatalf("approve: %v", err)
	}

	availability, conflicts, err := e.bookings.Availability(ctx, "acc-1", "2026-09-15", "10:00", "11:00")
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(availability.Approved) != 1 {
		t.Fatalf("approved=%d, want 1", len(availability.Approved))
	}
	if len(conflicts) != 1 {
		t.Fatalf("conflicts=%d, want 1", len(conflicts))
	}

	_, conflicts, err = e.bookings.Availability(ctx, "acc-1", "2026-09-15", "10:30", "11:30")
	if err != nil {
		t.Fatalf("availability adjacent: %v", err)
	}
	if len(conflicts) != 0 {
		t.Fatalf("adjacent window reported %d conflicts", len(conflicts))
	}
}
