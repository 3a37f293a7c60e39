package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/servicedesk-io/helpdesk-service/internal/events"
)

// NotificationService turns domain events into user-facing notifications.
// Delivery is currently the structured log stream plus the broker bridge;
// channel fan-out (mail, chat) hangs off the same subscriptions.
type NotificationService struct {
	logger *zap.Logger
}

// NewNotificationService constructs the service and registers its
// subscriptions on the dispatcher.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	s := &NotificationService{logger: logger}
	dispatcher.Subscribe(events.EventTicketAssigned, s.onTicketAssigned)
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onStatusChanged)
	dispatcher.Subscribe(events.EventBookingApproved, s.onBookingDecision)
	dispatcher.Subscribe(events.EventBookingRejected, s.onBookingDecision)
	dispatcher.Subscribe(events.EventCommentAdded, s.onCommentAdded)
	return s
}

func (s *NotificationService) onTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notify ticket assigned",
		zap.String("ticket_id", event.TicketID),
		zap.String("technician_id", payload.TechnicianID),
		zap.String("submitter_id", payload.SubmitterID),
	)
	return nil
}

func (s *NotificationService) onStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notify ticket status changed",
		zap.String("ticket_id", event.TicketID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
	)
	return nil
}

func (s *NotificationService) onBookingDecision(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.BookingDecisionPayload)
	if !ok {
		return nil
	}
	fields := []zap.Field{
		zap.String("ticket_id", event.TicketID),
		zap.String("decision", string(event.Type)),
		zap.String("date", payload.Date),
		zap.String("window", payload.StartTime+"-"+payload.EndTime),
	}
	if payload.Reason != "" {
		fields = append(fields, zap.String("reason", payload.Reason))
	}
	s.logger.Info("notify booking decision", fields...)
	return nil
}

func (s *NotificationService) onCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CommentAddedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("notify comment added",
		zap.String("ticket_id", event.TicketID),
		zap.String("comment_id", payload.CommentID),
	)
	return nil
}
