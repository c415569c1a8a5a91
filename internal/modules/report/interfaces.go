package report

import (
	"context"

	"jaladhar/internal/domain"
)

// lifecycleEngine is the slice of the booking service the report flow
// drives. Satisfied by *booking.Service.
type lifecycleEngine interface {
	Transition(ctx context.Context, bookingID int64, ev domain.LifecycleEvent, actor domain.Actor, reason string, mutate func(*domain.Booking) error) (*domain.Booking, error)
	GetByID(ctx context.Context, bookingID int64) (*domain.Booking, error)
}

type ReportStore interface {
	Create(ctx context.Context, rep *domain.Report) error
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.Report, error)
	Delete(ctx context.Context, id int64) error
}
