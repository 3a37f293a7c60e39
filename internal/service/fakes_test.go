package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/servicedesk-io/helpdesk-service/internal/domain"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	apperrors "github.com/servicedesk-io/helpdesk-service/pkg/util/errorutil"
)

// memStore is a shared in-memory stand-in for Postgres. The repo fakes
// below all point at one store so cross-table behavior (timeline appends,
// guarded status updates, the approval scan) matches the real
// transactional repositories.
type memStore struct {
	mu       sync.Mutex
	seq      int
	tickets  map[string]*domain.Ticket
	timeline map[string][]domain.TimelineEntry
	diags    map[string]*domain.Diagnosis
	orders   map[string]*domain.WorkOrder
	bookings map[string]*domain.Booking
	accounts map[string]*domain.Account
	comments map[string][]domain.Comment
	feedback map[string]*domain.Feedback
	users    map[string]*domain.User
}

func newMemStore() *memStore {
	return &memStore{
		tickets:  make(map[string]*domain.Ticket),
		timeline: make(map[string][]domain.TimelineEntry),
		diags:    make(map[string]*domain.Diagnosis),
		orders:   make(map[string]*domain.WorkOrder),
		bookings: make(map[string]*domain.Booking),
		accounts: make(map[string]*domain.Account),
		comments: make(map[string][]domain.Comment),
		feedback: make(map[string]*domain.Feedback),
		users:    make(map[string]*domain.User),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) appendTimeline(ticketID string, entry *domain.TimelineEntry) {
	entry.TicketID = ticketID
	entry.ID = s.nextID("tl")
	entry.CreatedAt = time.Now()
	s.timeline[ticketID] = append(s.timeline[ticketID], *entry)
}

func (s *memStore) addUser(id string, roles ...domain.Role) *domain.User {
	user := &domain.User{
		ID:     id,
		Name:   id,
		Email:  id + "@example.com",
		Roles:  roles,
		Status: domain.UserStatusActive,
	}
	s.users[id] = user
	return user
}

func (s *memStore) addAccount(id, name string, capacity int, active bool) *domain.Account {
	account := &domain.Account{
		ID:              id,
		Name:            name,
		IsActive:        active,
		MaxParticipants: capacity,
		LoginEmail:      name + "@meet.example.com",
		LoginPassword:   "secret",
	}
	s.accounts[id] = account
	return account
}

type fakeTicketRepo struct{ store *memStore }

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket.ID = r.store.nextID("tk")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	r.store.appendTimeline(ticket.ID, entry)
	return nil
}

func (r *fakeTicketRepo) UpdateStatus(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if current.Status != expected {
		return apperrors.NewConflict("ticket was modified concurrently; re-fetch and retry", nil)
	}
	ticket.UpdatedAt = time.Now()
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	r.store.appendTimeline(ticket.ID, entry)
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByNumber(ctx context.Context, number string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ticket := range r.store.tickets {
		if ticket.Number == number {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.store.tickets {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.AssignedTo != nil && (ticket.AssignedTo == nil || *ticket.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Type != nil && ticket.Type != *filter.Type {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if ticket.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeTimelineRepo struct{ store *memStore }

func (r *fakeTimelineRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]domain.TimelineEntry{}, r.store.timeline[ticketID]...), nil
}

type fakeDiagnosisRepo struct{ store *memStore }

func (r *fakeDiagnosisRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.Diagnosis, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	d, ok := r.store.diags[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDiagnosisRepo) Save(ctx context.Context, d *domain.Diagnosis, ticket *domain.Ticket, expected domain.TicketStatus, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if existing, ok := r.store.diags[d.TicketID]; ok {
		d.ID = existing.ID
		d.Version = existing.Version + 1
		d.CreatedAt = existing.CreatedAt
	} else {
		d.ID = r.store.nextID("dg")
		d.Version = 1
		d.CreatedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	copied := *d
	r.store.diags[d.TicketID] = &copied

	if ticket != nil {
		current, ok := r.store.tickets[ticket.ID]
		if !ok || current.Status != expected {
			return apperrors.NewConflict("ticket was modified concurrently; re-fetch and retry", nil)
		}
		ticket.UpdatedAt = time.Now()
		tcopy := *ticket
		r.store.tickets[ticket.ID] = &tcopy
	}
	if entry != nil {
		r.store.appendTimeline(d.TicketID, entry)
	}
	return nil
}

type fakeWorkOrderRepo struct{ store *memStore }

func (r *fakeWorkOrderRepo) Create(ctx context.Context, wo *domain.WorkOrder, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wo.ID = r.store.nextID("wo")
	wo.CreatedAt = time.Now()
	wo.UpdatedAt = wo.CreatedAt
	copied := *wo
	r.store.orders[wo.ID] = &copied
	r.store.appendTimeline(wo.TicketID, entry)
	return nil
}

func (r *fakeWorkOrderRepo) UpdateStatus(ctx context.Context, wo *domain.WorkOrder, expected domain.WorkOrderStatus, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.orders[wo.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if current.Status != expected {
		return apperrors.NewConflict("work order was modified concurrently", nil)
	}
	wo.UpdatedAt = time.Now()
	copied := *wo
	r.store.orders[wo.ID] = &copied
	r.store.appendTimeline(wo.TicketID, entry)
	return nil
}

func (r *fakeWorkOrderRepo) GetByID(ctx context.Context, id string) (*domain.WorkOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wo, ok := r.store.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *wo
	return &copied, nil
}

func (r *fakeWorkOrderRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.WorkOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.WorkOrder
	for _, wo := range r.store.orders {
		if wo.TicketID == ticketID {
			out = append(out, *wo)
		}
	}
	return out, nil
}

func (r *fakeWorkOrderRepo) AllTerminal(ctx context.Context, ticketID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, wo := range r.store.orders {
		if wo.TicketID == ticketID && !wo.Status.Terminal() {
			return false, nil
		}
	}
	return true, nil
}

type fakeBookingRepo struct{ store *memStore }

func (r *fakeBookingRepo) Create(ctx context.Context, ticket *domain.Ticket, booking *domain.Booking, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket.ID = r.store.nextID("tk")
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	tcopy := *ticket
	r.store.tickets[ticket.ID] = &tcopy

	booking.TicketID = ticket.ID
	booking.CreatedAt = ticket.CreatedAt
	booking.UpdatedAt = ticket.CreatedAt
	bcopy := *booking
	r.store.bookings[ticket.ID] = &bcopy
	r.store.appendTimeline(ticket.ID, entry)
	return nil
}

func (r *fakeBookingRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	booking, ok := r.store.bookings[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *booking
	if ticket, ok := r.store.tickets[ticketID]; ok {
		copied.Status = ticket.Status
	}
	return &copied, nil
}

func (r *fakeBookingRepo) ListByAccountDate(ctx context.Context, accountID, date string, statuses []domain.TicketStatus) ([]domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Booking
	for ticketID, booking := range r.store.bookings {
		if booking.Date != date {
			continue
		}
		if booking.AccountID != nil && *booking.AccountID != accountID {
			continue
		}
		status := r.store.tickets[ticketID].Status
		match := false
		for _, s := range statuses {
			if status == s {
				match = true
			}
		}
		if !match {
			continue
		}
		copied := *booking
		copied.Status = status
		out = append(out, copied)
	}
	return out, nil
}

func (r *fakeBookingRepo) ListByDate(ctx context.Context, date string) ([]domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Booking
	for ticketID, booking := range r.store.bookings {
		if booking.Date != date {
			continue
		}
		copied := *booking
		copied.Status = r.store.tickets[ticketID].Status
		out = append(out, copied)
	}
	return out, nil
}

func (r *fakeBookingRepo) ListByMonth(ctx context.Context, month string) ([]domain.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Booking
	for ticketID, booking := range r.store.bookings {
		if !strings.HasPrefix(booking.Date, month+"-") {
			continue
		}
		copied := *booking
		copied.Status = r.store.tickets[ticketID].Status
		out = append(out, copied)
	}
	return out, nil
}

func (r *fakeBookingRepo) ApproveTx(ctx context.Context, ticket *domain.Ticket, booking *domain.Booking, params repository.ApproveParams, entry *domain.TimelineEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	account, ok := r.store.accounts[params.AccountID]
	if !ok {
		return apperrors.NewNotFound("account", map[string]any{"account_id": params.AccountID})
	}
	if !account.IsActive {
		return apperrors.NewPreconditionFailed("account is inactive", nil)
	}
	for ticketID, other := range r.store.bookings {
		if ticketID == ticket.ID || other.AccountID == nil || *other.AccountID != params.AccountID {
			continue
		}
		if other.Date != booking.Date {
			continue
		}
		if r.store.tickets[ticketID].Status != domain.TicketStatusApproved {
			continue
		}
		if other.StartMin < booking.EndMin && other.EndMin > booking.StartMin {
			return apperrors.NewConflict("requested window overlaps an approved booking on this account", nil)
		}
	}

	current, ok := r.store.tickets[ticket.ID]
	if !ok || current.Status != domain.TicketStatusPendingReview {
		return apperrors.NewConflict("booking was decided concurrently; re-fetch and retry", nil)
	}
	ticket.Status = domain.TicketStatusApproved
	ticket.UpdatedAt = time.Now()
	tcopy := *ticket
	r.store.tickets[ticket.ID] = &tcopy

	stored := r.store.bookings[ticket.ID]
	stored.AccountID = &params.AccountID
	stored.MeetingLink = &params.MeetingLink
	stored.Passcode = &params.Passcode
	stored.HostKey = &params.HostKey
	stored.UpdatedAt = time.Now()
	r.store.appendTimeline(ticket.ID, entry)
	return nil
}

type fakeAccountRepo struct{ store *memStore }

func (r *fakeAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.accounts {
		if existing.Name == account.Name {
			return apperrors.NewConflict("account name already exists", nil)
		}
	}
	account.ID = r.store.nextID("acc")
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	copied := *account
	r.store.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) Update(ctx context.Context, account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	account.UpdatedAt = time.Now()
	copied := *account
	r.store.accounts[account.ID] = &copied
	return nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	account, ok := r.store.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Account
	for _, account := range r.store.accounts {
		out = append(out, *account)
	}
	return out, nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, booking := range r.store.bookings {
		if booking.AccountID != nil && *booking.AccountID == id {
			return apperrors.NewConflict("account has bookings and cannot be deleted", nil)
		}
	}
	delete(r.store.accounts, id)
	return nil
}

type fakeCommentRepo struct{ store *memStore }

func (r *fakeCommentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	comment.ID = r.store.nextID("cm")
	comment.CreatedAt = time.Now()
	r.store.comments[comment.TicketID] = append(r.store.comments[comment.TicketID], *comment)
	return nil
}

func (r *fakeCommentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return append([]domain.Comment{}, r.store.comments[ticketID]...), nil
}

type fakeFeedbackRepo struct{ store *memStore }

func (r *fakeFeedbackRepo) Create(ctx context.Context, feedback *domain.Feedback) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.feedback[feedback.TicketID]; ok {
		return apperrors.NewConflict("feedback already submitted", nil)
	}
	feedback.ID = r.store.nextID("fb")
	feedback.CreatedAt = time.Now()
	copied := *feedback
	r.store.feedback[feedback.TicketID] = &copied
	return nil
}

func (r *fakeFeedbackRepo) GetByTicket(ctx context.Context, ticketID string) (*domain.Feedback, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	feedback, ok := r.store.feedback[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *feedback
	return &copied, nil
}

type fakeUserRepo struct{ store *memStore }

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.users {
		if existing.Email == user.Email {
			return apperrors.NewConflict("email already registered", nil)
		}
	}
	user.ID = r.store.nextID("usr")
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// env bundles every service wired against one shared store.
type env struct {
	store      *memStore
	dispatcher *recordingDispatcher
	tickets    *TicketService
	diagnoses  *DiagnosisService
	workOrders *WorkOrderService
	bookings   *BookingService
	accounts   *AccountService
	comments   *CommentService
}

func newEnv() *env {
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	ticketRepo := &fakeTicketRepo{store: store}
	timelineRepo := &fakeTimelineRepo{store: store}
	diagnosisRepo := &fakeDiagnosisRepo{store: store}
	workOrderRepo := &fakeWorkOrderRepo{store: store}
	bookingRepo := &fakeBookingRepo{store: store}
	accountRepo := &fakeAccountRepo{store: store}
	commentRepo := &fakeCommentRepo{store: store}
	feedbackRepo := &fakeFeedbackRepo{store: store}
	userRepo := &fakeUserRepo{store: store}

	return &env{
		store:      store,
		dispatcher: dispatcher,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:    ticketRepo,
			TimelineRepo:  timelineRepo,
			DiagnosisRepo: diagnosisRepo,
			WorkOrderRepo: workOrderRepo,
			BookingRepo:   bookingRepo,
			UserRepo:      userRepo,
			FeedbackRepo:  feedbackRepo,
			Dispatcher:    dispatcher,
		}),
		diagnoses: NewDiagnosisService(DiagnosisDependencies{
			TicketRepo:    ticketRepo,
			DiagnosisRepo: diagnosisRepo,
			Dispatcher:    dispatcher,
		}),
		workOrders: NewWorkOrderService(WorkOrderDependencies{
			TicketRepo:    ticketRepo,
			DiagnosisRepo: diagnosisRepo,
			WorkOrderRepo: workOrderRepo,
			Dispatcher:    dispatcher,
		}),
		bookings: NewBookingService(BookingDependencies{
			TicketRepo:  ticketRepo,
			BookingRepo: bookingRepo,
			AccountRepo: accountRepo,
			Calendar:    testCalendarConfig(),
			Dispatcher:  dispatcher,
		}),
		accounts: NewAccountService(accountRepo),
		comments: NewCommentService(ticketRepo, commentRepo, dispatcher),
	}
}
