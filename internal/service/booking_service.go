package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/servicedesk-io/helpdesk-service/internal/config"
	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	"github.com/servicedesk-io/helpdesk-service/internal/scheduler"
	"github.com/servicedesk-io/helpdesk-service/internal/workflow"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// BookingService decides pending meeting bookings and serves the
// calendar read models. Approval is the only path that binds an account
// to a booking.
type BookingService struct {
	tickets      repository.TicketRepository
	bookings     repository.BookingRepository
	accounts     repository.AccountRepository
	availability *scheduler.Availability
	cache        *redis.Client
	calendar     config.CalendarConfig
	dispatcher   events.Dispatcher
	logger       *zap.Logger
}

// BookingDependencies bundles collaborators for the booking service.
type BookingDependencies struct {
	TicketRepo  repository.TicketRepository
	BookingRepo repository.BookingRepository
	AccountRepo repository.AccountRepository
	Cache       *redis.Client
	Calendar    config.CalendarConfig
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewBookingService constructs the service.
func NewBookingService(deps BookingDependencies) *BookingService {
	return &BookingService{
		tickets:      deps.TicketRepo,
		bookings:     deps.BookingRepo,
		accounts:     deps.AccountRepo,
		availability: scheduler.NewAvailability(deps.BookingRepo),
		cache:        deps.Cache,
		calendar:     deps.Calendar,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
	}
}

// ApproveInput carries the approval decision fields.
type ApproveInput struct {
	AccountID   string
	MeetingLink string
	Passcode    string
	HostKey     string
}

func (in ApproveInput) validate() error {
	if in.AccountID == "" {
		return apperrors.NewValidationError("account_id is required", nil)
	}
	link, err := url.Parse(in.MeetingLink)
	if err != nil || link.Scheme != "https" || link.Host == "" {
		return apperrors.NewValidationError("meeting link must be a valid https URL", nil)
	}
	if strings.TrimSpace(in.Passcode) == "" {
		return apperrors.NewValidationError("passcode is required", nil)
	}
	if len(in.HostKey) != 6 {
		return apperrors.NewValidationError("host key must be exactly 6 digits", nil)
	}
	for _, c := range in.HostKey {
		if c < '0' || c > '9' {
			return apperrors.NewValidationError("host key must be exactly 6 digits", nil)
		}
	}
	return nil
}

// Approve assigns an account to a pending booking and moves the ticket
// to APPROVED. The account lock, the overlap scan, the ticket update and
// the timeline entry commit in one transaction; the exclusion constraint
// backstops concurrent approvals that race past the scan.
func (s *BookingService) Approve(ctx context.Context, principal Principal, ticketID string, input ApproveInput) (*domain.Booking, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	ticket, booking, err := s.loadBooking(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	// A repeated approval naming the committed account is a no-op, like
	// a same-status PATCH.
	if ticket.Status == domain.TicketStatusApproved && booking.AccountID != nil && *booking.AccountID == input.AccountID {
		return booking, nil
	}
	if ticket.Status != domain.TicketStatusPendingReview {
		return nil, apperrors.NewInvalidState("booking has already been decided",
			map[string]any{"status": ticket.Status})
	}
	if err := workflow.Authorize(ticket.Type, principal.ActiveRole, ticket.Status, domain.TicketStatusApproved); err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, input.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account", map[string]any{"account_id": input.AccountID})
		}
		return nil, apperrors.MapError(err)
	}
	if !account.IsActive {
		return nil, apperrors.NewPreconditionFailed("account is inactive",
			map[string]any{"account_id": account.ID})
	}
	if booking.EstimatedParticipants > account.MaxParticipants {
		return nil, apperrors.NewPreconditionFailed("account capacity is below the estimated participants",
			map[string]any{
				"estimated": booking.EstimatedParticipants,
				"capacity":  account.MaxParticipants,
			})
	}

	entry := &domain.TimelineEntry{
		Action:      domain.ActionApproved,
		ActorID:     &principal.UserID,
		ActorRole:   principal.ActiveRole,
		RelatedStep: domain.StepReview,
		Details: map[string]any{
			"account_id":   account.ID,
			"account_name": account.Name,
		},
	}
	params := repository.ApproveParams{
		AccountID:   input.AccountID,
		MeetingLink: input.MeetingLink,
		Passcode:    input.Passcode,
		HostKey:     input.HostKey,
	}
	if err := s.bookings.ApproveTx(ctx, ticket, booking, params, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	booking.AccountID = &input.AccountID
	booking.MeetingLink = &input.MeetingLink
	booking.Passcode = &input.Passcode
	booking.HostKey = &input.HostKey
	booking.Status = domain.TicketStatusApproved

	s.invalidateCalendar(ctx, booking.Date)
	s.publishDecision(ctx, events.EventBookingApproved, ticket.ID, principal, events.BookingDecisionPayload{
		AccountID: &input.AccountID,
		Date:      booking.Date,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
	})
	return booking, nil
}

// Reject declines a pending booking with a mandatory reason.
func (s *BookingService) Reject(ctx context.Context, principal Principal, ticketID, reason string) (*domain.Ticket, error) {
	ticket, booking, err := s.loadPending(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	tc := workflow.TransitionContext{
		TicketID:   ticket.ID,
		ActorID:    principal.UserID,
		ActiveRole: principal.ActiveRole,
		Reason:     strings.TrimSpace(reason),
	}
	if err := workflow.Apply(ticket.Type, ticket.Status, domain.TicketStatusRejected, tc); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	now := time.Now()
	ticket.Status = domain.TicketStatusRejected
	ticket.ClosedAt = &now
	entry := &domain.TimelineEntry{
		Action:      domain.ActionRejected,
		ActorID:     &principal.UserID,
		ActorRole:   principal.ActiveRole,
		RelatedStep: domain.StepReview,
		Details:     map[string]any{"reason": tc.Reason},
	}
	if err := s.tickets.UpdateStatus(ctx, ticket, oldStatus, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.invalidateCalendar(ctx, booking.Date)
	s.publishDecision(ctx, events.EventBookingRejected, ticket.ID, principal, events.BookingDecisionPayload{
		Date:      booking.Date,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		Reason:    tc.Reason,
	})
	return ticket, nil
}

func (s *BookingService) loadBooking(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Booking, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	if ticket.Type != domain.TicketTypeMeetingBooking {
		return nil, nil, apperrors.NewInvalidState("ticket is not a meeting booking", nil)
	}
	booking, err := s.bookings.GetByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, booking, nil
}

func (s *BookingService) loadPending(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Booking, error) {
	ticket, booking, err := s.loadBooking(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if ticket.Status != domain.TicketStatusPendingReview {
		return nil, nil, apperrors.NewInvalidState("booking has already been decided",
			map[string]any{"status": ticket.Status})
	}
	return ticket, booking, nil
}

// AccountAvailability is the per-account occupancy for one date.
type AccountAvailability struct {
	Account  domain.Account  `json:"account"`
	Approved []CalendarEntry `json:"approved"`
	Pending  []CalendarEntry `json:"pending"`
}

// CalendarEntry is one booking rendered onto the day grid.
type CalendarEntry struct {
	TicketID  string              `json:"ticket_id"`
	Date      string              `json:"date"`
	StartTime string              `json:"start_time"`
	EndTime   string              `json:"end_time"`
	Status    domain.TicketStatus `json:"status"`
	Span      scheduler.Span      `json:"span"`
}

// CalendarDay is the day read model: every account with its grid entries.
type CalendarDay struct {
	Date     string                 `json:"date"`
	Geometry scheduler.GridGeometry `json:"geometry"`
	Accounts []AccountAvailability  `json:"accounts"`
	// Unassigned holds pending requests not yet bound to any account.
	Unassigned []CalendarEntry `json:"unassigned"`
}

// Availability returns one account's occupancy for a date, with the
// candidate window's conflicts when a window is supplied.
func (s *BookingService) Availability(ctx context.Context, accountID, date, startTime, endTime string) (*AccountAvailability, []domain.Booking, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("account", map[string]any{"account_id": accountID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	approved, pending, err := s.availability.Occupancy(ctx, accountID, date)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	geometry := s.geometry()
	result := &AccountAvailability{
		Account:  redactAccount(*account),
		Approved: toEntries(approved, geometry),
		Pending:  toEntries(pending, geometry),
	}

	var conflicts []domain.Booking
	if startTime != "" || endTime != "" {
		window, err := scheduler.ParseWindow(startTime, endTime)
		if err != nil {
			return nil, nil, apperrors.NewValidationError(err.Error(), nil)
		}
		conflicts = scheduler.FilterOverlapping(approved, window)
	}
	return result, conflicts, nil
}

// CalendarForDay builds the cached day grid across all accounts.
func (s *BookingService) CalendarForDay(ctx context.Context, date string) (*CalendarDay, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apperrors.NewValidationError("date must be YYYY-MM-DD", map[string]any{"date": date})
	}

	cacheKey := "calendar:day:" + date
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		var day CalendarDay
		if err := json.Unmarshal(cached, &day); err == nil {
			return &day, nil
		}
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	bookings, err := s.bookings.ListByDate(ctx, date)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	geometry := s.geometry()
	day := &CalendarDay{Date: date, Geometry: geometry}

	byAccount := make(map[string][]domain.Booking)
	for _, b := range bookings {
		if b.AccountID == nil {
			if b.Status == domain.TicketStatusPendingReview {
				day.Unassigned = append(day.Unassigned, toEntries([]domain.Booking{b}, geometry)...)
			}
			continue
		}
		byAccount[*b.AccountID] = append(byAccount[*b.AccountID], b)
	}
	for _, account := range accounts {
		availability := AccountAvailability{Account: redactAccount(account)}
		for _, b := range byAccount[account.ID] {
			entries := toEntries([]domain.Booking{b}, geometry)
			if b.Status == domain.TicketStatusApproved {
				availability.Approved = append(availability.Approved, entries...)
			} else if b.Status == domain.TicketStatusPendingReview {
				availability.Pending = append(availability.Pending, entries...)
			}
		}
		day.Accounts = append(day.Accounts, availability)
	}

	s.cacheSet(ctx, cacheKey, day)
	return day, nil
}

// CalendarForMonth lists the month's bookings for the overview grid.
func (s *BookingService) CalendarForMonth(ctx context.Context, month string) ([]CalendarEntry, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, apperrors.NewValidationError("month must be YYYY-MM", map[string]any{"month": month})
	}

	cacheKey := "calendar:month:" + month
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		var entries []CalendarEntry
		if err := json.Unmarshal(cached, &entries); err == nil {
			return entries, nil
		}
	}

	bookings, err := s.bookings.ListByMonth(ctx, month)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	entries := toEntries(bookings, s.geometry())
	s.cacheSet(ctx, cacheKey, entries)
	return entries, nil
}

func (s *BookingService) geometry() scheduler.GridGeometry {
	return scheduler.GridGeometry{
		DayStart:   s.calendar.DayStartMinutes,
		DayEnd:     s.calendar.DayEndMinutes,
		SlotMins:   s.calendar.SlotMinutes,
		SlotHeight: s.calendar.SlotHeight,
	}
}

func toEntries(bookings []domain.Booking, geometry scheduler.GridGeometry) []CalendarEntry {
	entries := make([]CalendarEntry, 0, len(bookings))
	for _, b := range bookings {
		span, ok := geometry.Layout(scheduler.Window{Start: b.StartMin, End: b.EndMin})
		if !ok {
			continue
		}
		entries = append(entries, CalendarEntry{
			TicketID:  b.TicketID,
			Date:      b.Date,
			StartTime: b.StartTime,
			EndTime:   b.EndTime,
			Status:    b.Status,
			Span:      span,
		})
	}
	return entries
}

// redactAccount strips login credentials from calendar and availability
// payloads. Credentials surface only through the admin account endpoints.
func redactAccount(account domain.Account) domain.Account {
	account.LoginEmail = ""
	account.LoginPassword = ""
	return account
}

func (s *BookingService) cacheGet(ctx context.Context, key string) []byte {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	return data
}

func (s *BookingService) cacheSet(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.calendar.CacheTTL()).Err(); err != nil && s.logger != nil {
		s.logger.Warn("calendar cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *BookingService) invalidateCalendar(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	keys := []string{"calendar:day:" + date}
	if len(date) >= 7 {
		keys = append(keys, "calendar:month:"+date[:7])
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil && s.logger != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.Error(err))
	}
}

func (s *BookingService) publishDecision(ctx context.Context, t events.EventType, ticketID string, principal Principal, payload events.BookingDecisionPayload) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		TicketID:  ticketID,
		Actor:     events.Actor{UserID: principal.UserID, Role: principal.ActiveRole},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
