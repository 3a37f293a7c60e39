package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/servicedesk-io/helpdesk-service/internal/api/dto"
	"github.com/servicedesk-io/helpdesk-service/internal/auth"
	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/service"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	comments *service.CommentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, comments *service.CommentService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, comments: comments}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticketType := domain.TicketType(strings.ToUpper(req.Type))
	input := service.SubmitInput{
		Type:                  ticketType,
		Title:                 req.Title,
		Description:           req.Description,
		Date:                  req.Date,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		EstimatedParticipants: req.EstimatedParticipants,
		BreakoutRooms:         req.BreakoutRooms,
		CoHosts:               req.CoHosts,
	}
	ticket, err := h.tickets.Submit(c.Context(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.Context(), servicePrincipal(principal), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.tickets.Get(c.Context(), servicePrincipal(principal), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(principal, detail)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status is required", nil)
	}
	ticket, err := h.tickets.Transition(c.Context(), servicePrincipal(principal), c.Params("id"), service.TransitionInput{
		NewStatus:  domain.TicketStatus(strings.ToUpper(req.Status)),
		Reason:     req.Reason,
		AssigneeID: req.AssigneeID,
		Confirmed:  req.Confirmed,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// SubmitFeedback POST /tickets/:id/feedback.
func (h *TicketsHandler) SubmitFeedback(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	feedback, err := h.tickets.SubmitFeedback(c.Context(), servicePrincipal(principal), c.Params("id"), req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FeedbackResponse{
		ID:      feedback.ID,
		Rating:  feedback.Rating,
		Comment: feedback.Comment,
	}})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	comment, err := h.comments.Add(c.Context(), servicePrincipal(principal), c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": commentResponse(comment)})
}

// ListComments GET /tickets/:id/comments.
func (h *TicketsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	comments, err := h.comments.List(c.Context(), servicePrincipal(principal), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, commentResponse(&comments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) service.ListFilter {
	filter := service.ListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if typeStr := c.Query("type"); typeStr != "" {
		t := domain.TicketType(strings.ToUpper(typeStr))
		filter.Type = &t
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}
	return filter
}

func requirePrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal, nil
}

func servicePrincipal(p *auth.Principal) service.Principal {
	return service.Principal{UserID: p.User.ID, ActiveRole: p.ActiveRole}
}

func ticketSummary(t *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:         t.ID,
		Number:     t.Number,
		Type:       string(t.Type),
		Status:     string(t.Status),
		Title:      t.Title,
		CreatedBy:  t.CreatedBy,
		AssignedTo: t.AssignedTo,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ClosedAt:   t.ClosedAt,
	}
}

func ticketDetail(principal *auth.Principal, detail *service.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketSummary: ticketSummary(detail.Ticket),
		Description:   detail.Ticket.Description,
	}
	for _, entry := range detail.Timeline {
		resp.Timeline = append(resp.Timeline, dto.TimelineEntryResponse{
			Action:      string(entry.Action),
			ActorID:     entry.ActorID,
			ActorRole:   string(entry.ActorRole),
			RelatedStep: string(entry.RelatedStep),
			Details:     entry.Details,
			CreatedAt:   entry.CreatedAt,
		})
	}
	if detail.Diagnosis != nil {
		resp.Diagnosis = diagnosisResponse(detail.Diagnosis)
	}
	if detail.Booking != nil {
		resp.Booking = bookingResponse(detail.Booking, bookingCredentialsVisible(principal, detail.Ticket))
	}
	return resp
}

// bookingCredentialsVisible: the meeting link, passcode and host key go to
// the submitter on approval and to service admins; everyone else sees the
// window only.
func bookingCredentialsVisible(principal *auth.Principal, ticket *domain.Ticket) bool {
	if principal.ActiveRole == domain.RoleServiceAdmin {
		return true
	}
	return ticket.CreatedBy == principal.User.ID
}

func bookingResponse(b *domain.Booking, withCredentials bool) *dto.BookingResponse {
	resp := &dto.BookingResponse{
		TicketID:              b.TicketID,
		Date:                  b.Date,
		StartTime:             b.StartTime,
		EndTime:               b.EndTime,
		AccountID:             b.AccountID,
		EstimatedParticipants: b.EstimatedParticipants,
		BreakoutRooms:         b.BreakoutRooms,
		CoHosts:               b.CoHosts,
		Status:                string(b.Status),
		UpdatedAt:             b.UpdatedAt,
	}
	if withCredentials {
		resp.MeetingLink = b.MeetingLink
		resp.Passcode = b.Passcode
		resp.HostKey = b.HostKey
	}
	return resp
}

func diagnosisResponse(d *domain.Diagnosis) *dto.DiagnosisResponse {
	return &dto.DiagnosisResponse{
		ID:                   d.ID,
		TechnicianID:         d.TechnicianID,
		ProblemCategory:      string(d.ProblemCategory),
		RepairType:           string(d.RepairType),
		Description:          d.Description,
		Reason:               d.Reason,
		Notes:                d.Notes,
		AssetConditionChange: d.AssetConditionChange,
		Version:              d.Version,
		UpdatedAt:            d.UpdatedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
