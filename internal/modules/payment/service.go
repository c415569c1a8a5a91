package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jaladhar/internal/config"
	"jaladhar/internal/domain"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const orderCurrency = "INR"

const reconcileBatchSize = 100

var systemActor = domain.Actor{Role: domain.RoleSystem}

// Service is the payment coordinator. It drives both phases through the
// same initiate -> await -> verify protocol and owns the rollback rules:
// a failed advance cancels the booking, a failed remaining leaves it
// retryable in awaiting_payment.
type Service struct {
	engine   lifecycleEngine
	bookings bookingReader
	gateway  gatewayClient
	audits   auditLog
	cfg      config.PaymentConfig
	keyID    string
	logger   *logrus.Logger
}

func NewService(engine lifecycleEngine, bookings bookingReader, gw gatewayClient, audits auditLog, cfg config.PaymentConfig, gatewayKeyID string, logger *logrus.Logger) *Service {
	return &Service{
		engine:   engine,
		bookings: bookings,
		gateway:  gw,
		audits:   audits,
		cfg:      cfg,
		keyID:    gatewayKeyID,
		logger:   logger,
	}
}

// receipt is the idempotency key per (booking, phase): a crash between
// gateway order creation and persistence re-creates against the same
// receipt instead of opening a second order.
func receipt(bookingID int64, ph domain.PaymentPhase) string {
	return fmt.Sprintf("bk-%d-%s", bookingID, ph)
}

// InitiatePayment opens (or re-returns) the gateway order for one phase.
// An abandoned checkout is not a failure: calling this again hands back
// the stored open order instead of creating a duplicate.
func (s *Service) InitiatePayment(ctx context.Context, bookingID int64, actor domain.Actor, ph domain.PaymentPhase) (*OrderDetails, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := payerAllowed(b, actor); err != nil {
		return nil, err
	}
	if err := phasePayable(b, ph); err != nil {
		return nil, err
	}

	if existing := b.Payment.GatewayOrderID(ph); existing != "" {
		s.audit(ctx, bookingID, ph, domain.AuditOrderReused, existing, "", "")
		return s.orderDetails(b, ph, existing), nil
	}

	order, err := s.gateway.CreateOrder(ctx, b.Payment.PhaseAmount(ph), orderCurrency, receipt(bookingID, ph), map[string]string{
		"booking_id": fmt.Sprintf("%d", bookingID),
		"phase":      string(ph),
	})
	if err != nil {
		s.audit(ctx, bookingID, ph, domain.AuditGatewayError, "", "", err.Error())
		return nil, err
	}

	// Persist before handing the order to the client. If a concurrent
	// initiate won the race, keep its order and discard ours.
	finalOrderID := order.ID
	updated, err := s.engine.MutatePayment(ctx, bookingID, func(b *domain.Booking) error {
		if err := phasePayable(b, ph); err != nil {
			return err
		}
		if existing := b.Payment.GatewayOrderID(ph); existing != "" {
			finalOrderID = existing
			return nil
		}
		b.Payment.SetGatewayOrderID(ph, order.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, bookingID, ph, domain.AuditOrderCreated, finalOrderID, "", "")
	return s.orderDetails(updated, ph, finalOrderID), nil
}

// VerifyPayment is the single commit path for both phases, safe to call
// repeatedly with the same arguments. The expected signature is recomputed
// from the stored order id, never from client input.
func (s *Service) VerifyPayment(ctx context.Context, bookingID int64, actor domain.Actor, ph domain.PaymentPhase, orderID, paymentID, signature string) (*domain.Booking, error) {
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	// The advance rollback cancels the booking on a mismatch, so a forged
	// verify from anyone but the payer must be refused before it can touch
	// the lifecycle.
	if err := payerAllowed(b, actor); err != nil {
		return nil, err
	}

	// Client retry after a prior success: return it, no second transition.
	if b.Payment.PhasePaid(ph) && b.Payment.GatewayPaymentID(ph) == paymentID {
		return b, nil
	}

	stored := b.Payment.GatewayOrderID(ph)
	if stored == "" {
		return nil, ErrNoOpenOrder
	}
	if err := phasePayable(b, ph); err != nil {
		return nil, err
	}

	if orderID != stored || !s.gateway.VerifySignature(stored, paymentID, signature) {
		return s.rejectPayment(ctx, b, ph, paymentID)
	}

	updated, err := s.engine.Transition(ctx, bookingID, domain.PhaseEvent(ph), systemActor, "", func(b *domain.Booking) error {
		return b.Payment.MarkPaid(ph, paymentID)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, bookingID, ph, domain.AuditVerified, stored, paymentID, "")
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"phase":      ph,
		"payment_id": paymentID,
	}).Info("payment verified")
	return updated, nil
}

// rejectPayment applies the phase-specific rollback. The advance is the
// booking's confirming deposit, so its failure discards the booking; the
// vendor has already worked for the remaining phase, so the booking stays
// in awaiting_payment and the user can retry.
func (s *Service) rejectPayment(ctx context.Context, b *domain.Booking, ph domain.PaymentPhase, paymentID string) (*domain.Booking, error) {
	s.audit(ctx, b.ID, ph, domain.AuditSignatureMismatch, b.Payment.GatewayOrderID(ph), paymentID, "")

	if ph == domain.PhaseRemaining {
		return b, ErrSignatureMismatch
	}

	cancelled, err := s.engine.Transition(ctx, b.ID, domain.EventCancel, systemActor,
		"advance payment failed: signature mismatch", nil)
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Error("failed to cancel booking after advance mismatch")
		return b, ErrSignatureMismatch
	}
	return cancelled, ErrSignatureMismatch
}

// FakeAdvancePayment skips the gateway and confirms the advance directly.
// Only available when the config enables it; Load refuses that in
// production.
func (s *Service) FakeAdvancePayment(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.Booking, error) {
	if !s.cfg.AllowFakeAdvance {
		return nil, ErrFakeDisabled
	}
	b, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := payerAllowed(b, actor); err != nil {
		return nil, err
	}
	fakeID := "fake_" + uuid.NewString()
	updated, err := s.engine.Transition(ctx, bookingID, domain.EventAdvanceConfirmed, systemActor, "", func(b *domain.Booking) error {
		return b.Payment.MarkPaid(domain.PhaseAdvance, fakeID)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, bookingID, domain.PhaseAdvance, domain.AuditFakeApproved, "", fakeID, "")
	return updated, nil
}

// Reconcile sweeps bookings stuck with an open order older than the
// configured threshold and asks the gateway directly whether it was paid.
// Captures feed through VerifyPayment with a server-computed signature, so
// there is exactly one commit path. Orders the gateway knows nothing about
// are left alone for retry or manual expiry.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.cfg.ReconcileAfter)
	stale, err := s.bookings.ListStaleOpenOrders(ctx, cutoff, reconcileBatchSize)
	if err != nil {
		return 0, err
	}

	healed := 0
	for i := range stale {
		b := &stale[i]
		ph := domain.PhaseAdvance
		if b.Status == domain.BookingAwaitingPayment {
			ph = domain.PhaseRemaining
		}
		orderID := b.Payment.GatewayOrderID(ph)

		captured, err := s.gateway.FetchCapturedPayment(ctx, orderID)
		if err != nil {
			s.audit(ctx, b.ID, ph, domain.AuditGatewayError, orderID, "", err.Error())
			continue
		}
		if captured == nil {
			continue
		}

		sig := s.gateway.Sign(orderID, captured.ID)
		if _, err := s.VerifyPayment(ctx, b.ID, systemActor, ph, orderID, captured.ID, sig); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"booking_id": b.ID,
				"phase":      ph,
			}).Error("reconciliation verify failed")
			continue
		}
		s.audit(ctx, b.ID, ph, domain.AuditReconciled, orderID, captured.ID, "")
		healed++
	}

	if healed > 0 {
		s.logger.WithField("healed", healed).Info("payment reconciliation swept stale orders")
	}
	return healed, nil
}

func (s *Service) getBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

// payerAllowed restricts payment operations to the booking owner. Admins
// and the system actor (reconciliation) pass; vendors never pay.
func payerAllowed(b *domain.Booking, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSystem:
		return nil
	case domain.RoleUser:
		if b.UserID == actor.UserID {
			return nil
		}
	}
	return ErrForbidden
}

func phasePayable(b *domain.Booking, ph domain.PaymentPhase) error {
	if b.Status.IsTerminal() {
		return domain.ErrAlreadyTerminal
	}
	if !domain.PhaseAllowedFrom(b.Status, ph) || b.Payment.PhasePaid(ph) {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *Service) orderDetails(b *domain.Booking, ph domain.PaymentPhase, orderID string) *OrderDetails {
	return &OrderDetails{
		BookingID:      b.ID,
		Phase:          ph,
		GatewayOrderID: orderID,
		Amount:         b.Payment.PhaseAmount(ph),
		Currency:       orderCurrency,
		GatewayKeyID:   s.keyID,
	}
}

// audit appends to the payment log; append failures are logged, never
// allowed to fail the payment operation itself.
func (s *Service) audit(ctx context.Context, bookingID int64, ph domain.PaymentPhase, event domain.PaymentAuditEvent, orderID, paymentID, detail string) {
	if s.audits == nil {
		return
	}
	err := s.audits.Append(ctx, &domain.PaymentAudit{
		BookingID:        bookingID,
		Phase:            ph,
		Event:            event,
		GatewayOrderID:   orderID,
		GatewayPaymentID: paymentID,
		Detail:           detail,
	})
	if err != nil {
		s.logger.WithError(err).WithField("booking_id", bookingID).Error("failed to append payment audit")
	}
}
