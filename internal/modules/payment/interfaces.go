package payment

import (
	"context"
	"time"

	"jaladhar/internal/domain"
	"jaladhar/internal/gateway"
)

// lifecycleEngine is the booking state machine. Satisfied by
// *booking.Service; the coordinator never writes booking rows directly.
type lifecycleEngine interface {
	Transition(ctx context.Context, bookingID int64, ev domain.LifecycleEvent, actor domain.Actor, reason string, mutate func(*domain.Booking) error) (*domain.Booking, error)
	MutatePayment(ctx context.Context, bookingID int64, mutate func(*domain.Booking) error) (*domain.Booking, error)
}

type bookingReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	ListStaleOpenOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)
}

type gatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	Sign(orderID, paymentID string) string
	FetchCapturedPayment(ctx context.Context, orderID string) (*gateway.CapturedPayment, error)
}

type auditLog interface {
	Append(ctx context.Context, a *domain.PaymentAudit) error
}
