package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"jaladhar/internal/domain"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// transitionRetries bounds re-reads after a lost version race before
// surfacing ErrConflict to the caller.
const transitionRetries = 3

type Service struct {
	bookings BookingRepository
	notifs   NotificationSender
	pricer   Pricer
	logger   *logrus.Logger
}

func NewService(bookings BookingRepository, notifs NotificationSender, pricer Pricer, logger *logrus.Logger) *Service {
	return &Service{
		bookings: bookings,
		notifs:   notifs,
		pricer:   pricer,
		logger:   logger,
	}
}

func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	charges, err := s.pricer.Compute(ctx, req.ServiceID, req.VendorID, req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	b := &domain.Booking{
		UserID:        req.UserID,
		VendorID:      req.VendorID,
		ServiceID:     req.ServiceID,
		Status:        domain.BookingPending,
		ScheduledDate: req.ScheduledDate,
		ScheduledTime: req.ScheduledTime,
		Address:       strings.TrimSpace(req.Address),
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Payment:       domain.NewPayment(charges.BaseServiceFee, charges.TravelCharges, charges.GST),
	}

	if err := s.bookings.CreateWithGuard(ctx, b); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"user_id":    b.UserID,
		"total":      b.Payment.TotalAmount,
		"advance":    b.Payment.AdvanceAmount,
	}).Info("booking created")

	return b, nil
}

func validateCreate(req CreateBookingRequest) error {
	day, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		return ErrValidation
	}
	if _, err := time.Parse("15:04", req.ScheduledTime); err != nil {
		return ErrValidation
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return ErrValidation
	}
	if strings.TrimSpace(req.Address) == "" {
		return ErrValidation
	}
	return nil
}

// Transition is the single write path for booking state. It re-reads and
// re-validates on a lost version race, applies the status change and the
// optional mutate in the same row write, then emits side effects.
//
// mutate runs after the status check passes and may adjust the payment
// sub-record (paid flags, gateway ids); it must not touch Status.
func (s *Service) Transition(ctx context.Context, bookingID int64, ev domain.LifecycleEvent, actor domain.Actor, reason string, mutate func(*domain.Booking) error) (*domain.Booking, error) {
	if !domain.RoleMayFire(actor.Role, ev) {
		return nil, ErrForbidden
	}

	var (
		b    *domain.Booking
		prev domain.BookingStatus
	)
	for attempt := 0; ; attempt++ {
		var err error
		b, err = s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if err := s.checkOwnership(b, actor); err != nil {
			return nil, err
		}

		prev = b.Status
		if err := b.Apply(ev, reason, time.Now().UTC()); err != nil {
			return nil, err
		}
		if mutate != nil {
			if err := mutate(b); err != nil {
				return nil, err
			}
		}

		err = s.bookings.Update(ctx, b)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt+1 >= transitionRetries {
			return nil, err
		}
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"event":      ev,
		"status":     b.Status,
		"actor_role": actor.Role,
	}).Info("booking transition applied")

	s.emitSideEffects(ctx, b, prev, ev, reason)
	return b, nil
}

// MutatePayment updates the payment sub-record without a lifecycle event
// (persisting a freshly created gateway order id). Same version-checked
// write path, no status change.
func (s *Service) MutatePayment(ctx context.Context, bookingID int64, mutate func(*domain.Booking) error) (*domain.Booking, error) {
	for attempt := 0; ; attempt++ {
		b, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		if err := mutate(b); err != nil {
			return nil, err
		}
		err = s.bookings.Update(ctx, b)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt+1 >= transitionRetries {
			return nil, err
		}
	}
}

func (s *Service) checkOwnership(b *domain.Booking, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleUser:
		if b.UserID != actor.UserID {
			return ErrForbidden
		}
	case domain.RoleVendor:
		if b.VendorID != actor.UserID {
			return ErrForbidden
		}
	}
	return nil
}

func (s *Service) emitSideEffects(ctx context.Context, b *domain.Booking, prev domain.BookingStatus, ev domain.LifecycleEvent, reason string) {
	if s.notifs == nil {
		return
	}
	switch ev {
	case domain.EventAdvanceConfirmed:
		_ = s.notifs.NotifyBookingAssigned(ctx, b.VendorID, b.ID)
		_ = s.notifs.NotifyPaymentConfirmed(ctx, b.UserID, b.ID, domain.PhaseAdvance)
	case domain.EventVendorAccepted:
		_ = s.notifs.NotifyBookingAccepted(ctx, b.UserID, b.ID)
	case domain.EventReportUploaded:
		_ = s.notifs.NotifyReportReady(ctx, b.UserID, b.ID)
	case domain.EventRemainingConfirmed:
		_ = s.notifs.NotifyPaymentConfirmed(ctx, b.UserID, b.ID, domain.PhaseRemaining)
	case domain.EventSettlementDone:
		_ = s.notifs.NotifyBookingSettled(ctx, b.VendorID, b.ID)
	case domain.EventCancel, domain.EventReject, domain.EventPaymentFailed:
		_ = s.notifs.NotifyBookingClosed(ctx, b.UserID, b.ID, b.Status, reason)
		// The vendor only learns about bookings whose advance cleared.
		if prev != domain.BookingPending {
			_ = s.notifs.NotifyBookingClosed(ctx, b.VendorID, b.ID, b.Status, reason)
		}
	}
}

// CancelBooking cancels from any non-terminal state. The reason is
// mandatory; it ends up in cancellation_reason and the user notification.
func (s *Service) CancelBooking(ctx context.Context, bookingID int64, actor domain.Actor, reason string) (*domain.Booking, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrValidation
	}
	return s.Transition(ctx, bookingID, domain.EventCancel, actor, reason, nil)
}

// RejectBooking is the vendor-side interrupt. Like cancellation it keeps
// whatever has been paid so far on record.
func (s *Service) RejectBooking(ctx context.Context, bookingID int64, actor domain.Actor, reason string) (*domain.Booking, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrValidation
	}
	return s.Transition(ctx, bookingID, domain.EventReject, actor, reason, nil)
}

func (s *Service) GetByID(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (s *Service) GetActiveBooking(ctx context.Context, userID int64) (*domain.Booking, error) {
	return s.bookings.GetActiveByUserID(ctx, userID)
}

func (s *Service) GetMyBookings(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bookings.ListByUserID(ctx, userID, limit, offset)
}

func (s *Service) GetVendorBookings(ctx context.Context, vendorID int64, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.bookings.ListByVendorID(ctx, vendorID, limit, offset)
}
