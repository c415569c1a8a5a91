package admin

import (
	"context"

	"jaladhar/internal/domain"
)

// lifecycleEngine is the slice of the booking service the settlement flow
// drives. Satisfied by *booking.Service.
type lifecycleEngine interface {
	Transition(ctx context.Context, bookingID int64, ev domain.LifecycleEvent, actor domain.Actor, reason string, mutate func(*domain.Booking) error) (*domain.Booking, error)
	GetByID(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

type bookingLister interface {
	ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
}

type auditReader interface {
	ListByBookingID(ctx context.Context, bookingID int64) ([]domain.PaymentAudit, error)
}

// reconciler triggers the stale-order sweep on demand. Satisfied by
// *payment.Service.
type reconciler interface {
	Reconcile(ctx context.Context) (int, error)
}
