package scheduler

import (
	"context"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
)

// BookingSource reads bookings for one account and date. Implemented by
// the booking repository.
type BookingSource interface {
	ListByAccountDate(ctx context.Context, accountID, date string, statuses []domain.TicketStatus) ([]domain.Booking, error)
}

// Availability computes per-account occupancy and overlap conflicts.
// Results from Check are advisory outside a transaction; the booking
// repository repeats the scan under row locks at commit time.
type Availability struct {
	bookings BookingSource
}

// NewAvailability constructs the scheduler.
func NewAvailability(bookings BookingSource) *Availability {
	return &Availability{bookings: bookings}
}

// Conflicts returns the approved bookings on the account/date whose
// windows overlap the candidate window. Pending and rejected bookings
// never produce hard conflicts.
func (a *Availability) Conflicts(ctx context.Context, accountID, date string, w Window) ([]domain.Booking, error) {
	approved, err := a.bookings.ListByAccountDate(ctx, accountID, date, []domain.TicketStatus{domain.TicketStatusApproved})
	if err != nil {
		return nil, err
	}
	return FilterOverlapping(approved, w), nil
}

// Occupancy returns the approved bookings plus the pending requests for
// an account/date. Pending entries are surfaced as advisory information
// when rendering availability.
func (a *Availability) Occupancy(ctx context.Context, accountID, date string) (approved, pending []domain.Booking, err error) {
	approved, err = a.bookings.ListByAccountDate(ctx, accountID, date, []domain.TicketStatus{domain.TicketStatusApproved})
	if err != nil {
		return nil, nil, err
	}
	pending, err = a.bookings.ListByAccountDate(ctx, accountID, date, []domain.TicketStatus{domain.TicketStatusPendingReview})
	if err != nil {
		return nil, nil, err
	}
	return approved, pending, nil
}

// FilterOverlapping returns the subset of bookings whose windows overlap w.
func FilterOverlapping(bookings []domain.Booking, w Window) []domain.Booking {
	var conflicts []domain.Booking
	for _, b := range bookings {
		if Overlaps(Window{Start: b.StartMin, End: b.EndMin}, w) {
			conflicts = append(conflicts, b)
		}
	}
	return conflicts
}
