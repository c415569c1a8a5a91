package admin

import (
	"context"

	"jaladhar/internal/domain"

	"github.com/sirupsen/logrus"
)

// Service is the back-office side of the lifecycle: settlement approval,
// payout completion and the audit trail.
type Service struct {
	engine  lifecycleEngine
	lister  bookingLister
	audits  auditReader
	sweeper reconciler
	logger  *logrus.Logger
}

func NewService(engine lifecycleEngine, lister bookingLister, audits auditReader, sweeper reconciler, logger *logrus.Logger) *Service {
	return &Service{
		engine:  engine,
		lister:  lister,
		audits:  audits,
		sweeper: sweeper,
		logger:  logger,
	}
}

// SettlementQueue lists fully paid bookings waiting for payout approval.
func (s *Service) SettlementQueue(ctx context.Context, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.lister.ListByStatus(ctx, domain.BookingPaymentSuccess, limit, offset)
}

// ApproveSettlement moves a fully paid booking into final settlement.
func (s *Service) ApproveSettlement(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.Booking, error) {
	b, err := s.engine.Transition(ctx, bookingID, domain.EventAdminApproved, actor, "", nil)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"admin_id":   actor.UserID,
	}).Info("Settlement approved")
	return b, nil
}

// CompleteSettlement records the vendor payout and closes the booking.
func (s *Service) CompleteSettlement(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.Booking, error) {
	b, err := s.engine.Transition(ctx, bookingID, domain.EventSettlementDone, actor, "", nil)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"admin_id":   actor.UserID,
		"payout":     b.Payment.TotalAmount,
	}).Info("Settlement completed, booking closed")
	return b, nil
}

// ListByStatus is the generic back-office browse across any lifecycle state.
func (s *Service) ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.lister.ListByStatus(ctx, status, limit, offset)
}

// PaymentTrail returns the append-only gateway audit log for one booking.
func (s *Service) PaymentTrail(ctx context.Context, bookingID int64) ([]domain.PaymentAudit, error) {
	if _, err := s.engine.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.audits.ListByBookingID(ctx, bookingID)
}

// RunReconciliation triggers the stale-order sweep outside its schedule.
func (s *Service) RunReconciliation(ctx context.Context) (int, error) {
	return s.sweeper.Reconcile(ctx)
}
