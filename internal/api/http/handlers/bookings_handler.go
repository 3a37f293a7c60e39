package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servicedesk-io/helpdesk-service/internal/api/dto"
	"github.com/servicedesk-io/helpdesk-service/internal/service"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// BookingsHandler serves booking decisions and the calendar read models.
type BookingsHandler struct {
	bookings *service.BookingService
}

// NewBookingsHandler constructs handler.
func NewBookingsHandler(bookings *service.BookingService) *BookingsHandler {
	return &BookingsHandler{bookings: bookings}
}

// Approve POST /bookings/:id/approve.
func (h *BookingsHandler) Approve(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ApproveBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	booking, err := h.bookings.Approve(c.Context(), servicePrincipal(principal), c.Params("id"), service.ApproveInput{
		AccountID:   req.AccountID,
		MeetingLink: req.MeetingLink,
		Passcode:    req.Passcode,
		HostKey:     req.HostKey,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": bookingResponse(booking, true)})
}

// Reject POST /bookings/:id/reject.
func (h *BookingsHandler) Reject(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.RejectBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.bookings.Reject(c.Context(), servicePrincipal(principal), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Calendar GET /calendar?date=YYYY-MM-DD or ?month=YYYY-MM.
func (h *BookingsHandler) Calendar(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	if date := c.Query("date"); date != "" {
		day, err := h.bookings.CalendarForDay(c.Context(), date)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": day})
	}
	if month := c.Query("month"); month != "" {
		entries, err := h.bookings.CalendarForMonth(c.Context(), month)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": entries})
	}
	return apperrors.NewValidationError("date or month query parameter required", nil)
}

// Availability GET /accounts/:id/availability?date=...&start_time=...&end_time=...
func (h *BookingsHandler) Availability(c *fiber.Ctx) error {
	if _, err := requirePrincipal(c); err != nil {
		return err
	}
	date := c.Query("date")
	if date == "" {
		return apperrors.NewValidationError("date query parameter required", nil)
	}
	availability, conflicts, err := h.bookings.Availability(c.Context(),
		c.Params("id"), date, c.Query("start_time"), c.Query("end_time"))
	if err != nil {
		return err
	}
	response := fiber.Map{"data": availability}
	if c.Query("start_time") != "" || c.Query("end_time") != "" {
		windows := make([]fiber.Map, 0, len(conflicts))
		for _, b := range conflicts {
			windows = append(windows, fiber.Map{
				"ticket_id":  b.TicketID,
				"start_time": b.StartTime,
				"end_time":   b.EndTime,
			})
		}
		response["conflicts"] = windows
	}
	return c.JSON(response)
}
