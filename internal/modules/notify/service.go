package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"jaladhar/internal/domain"

	"github.com/sirupsen/logrus"
)

type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUserID(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
}

// Service persists notifications and mirrors them to the websocket hub.
// It implements the booking module's NotificationSender.
type Service struct {
	store  NotificationStore
	hub    *Hub
	logger *logrus.Logger
}

func NewService(store NotificationStore, hub *Hub, logger *logrus.Logger) *Service {
	return &Service{store: store, hub: hub, logger: logger}
}

func (s *Service) NotifyBookingAssigned(ctx context.Context, vendorID, bookingID int64) error {
	return s.deliver(ctx, vendorID, domain.NotifyBookingAssigned,
		"New survey assigned",
		fmt.Sprintf("Booking #%d has been assigned to you. Please accept or reject it.", bookingID),
		bookingID, nil)
}

func (s *Service) NotifyBookingAccepted(ctx context.Context, userID, bookingID int64) error {
	return s.deliver(ctx, userID, domain.NotifyBookingAccepted,
		"Surveyor confirmed",
		fmt.Sprintf("Your surveyor accepted booking #%d and will visit on the scheduled date.", bookingID),
		bookingID, nil)
}

func (s *Service) NotifyReportReady(ctx context.Context, userID, bookingID int64) error {
	return s.deliver(ctx, userID, domain.NotifyReportReady,
		"Survey report ready",
		fmt.Sprintf("The report for booking #%d is ready. Pay the remaining amount to unlock it.", bookingID),
		bookingID, nil)
}

func (s *Service) NotifyPaymentConfirmed(ctx context.Context, userID, bookingID int64, phase domain.PaymentPhase) error {
	return s.deliver(ctx, userID, domain.NotifyPaymentConfirmed,
		"Payment confirmed",
		fmt.Sprintf("Your %s payment for booking #%d has been confirmed.", phase, bookingID),
		bookingID, map[string]interface{}{"phase": phase})
}

func (s *Service) NotifyBookingClosed(ctx context.Context, userID, bookingID int64, status domain.BookingStatus, reason string) error {
	body := fmt.Sprintf("Booking #%d was closed (%s).", bookingID, status)
	if reason != "" {
		body = fmt.Sprintf("Booking #%d was closed (%s): %s", bookingID, status, reason)
	}
	return s.deliver(ctx, userID, domain.NotifyBookingCancelled,
		"Booking closed", body, bookingID,
		map[string]interface{}{"status": status, "reason": reason})
}

func (s *Service) NotifyBookingSettled(ctx context.Context, vendorID, bookingID int64) error {
	return s.deliver(ctx, vendorID, domain.NotifyBookingSettled,
		"Payout approved",
		fmt.Sprintf("Settlement for booking #%d has been approved.", bookingID),
		bookingID, nil)
}

func (s *Service) ListForUser(ctx context.Context, userID int64, limit int) ([]domain.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := s.store.ListByUserID(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	return s.store.MarkAsRead(ctx, notificationID, userID)
}

func (s *Service) deliver(ctx context.Context, userID int64, typ domain.NotificationType, title, body string, bookingID int64, extra map[string]interface{}) error {
	data := map[string]interface{}{"booking_id": bookingID}
	for k, v := range extra {
		data[k] = v
	}
	raw, _ := json.Marshal(data)

	n := &domain.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   raw,
	}
	if err := s.store.Create(ctx, n); err != nil {
		s.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"type":       typ,
			"booking_id": bookingID,
			"error":      err.Error(),
		}).Error("Failed to persist notification")
		return err
	}

	s.hub.SendToUser(userID, pushPayload(n))
	return nil
}

// pushPayload shapes the push event the client receives over the socket.
func pushPayload(n *domain.Notification) map[string]interface{} {
	return map[string]interface{}{
		"event":        "notification",
		"notification": n,
	}
}
