package booking

import (
	"context"
	"time"

	"jaladhar/internal/domain"
)

// BookingRepository is the persisted booking store. Every mutating write
// goes through the version check in Update.
type BookingRepository interface {
	CreateWithGuard(ctx context.Context, b *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetActiveByUserID(ctx context.Context, userID int64) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking) error
	ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
	ListByVendorID(ctx context.Context, vendorID int64, limit, offset int) ([]domain.Booking, error)
	ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error)
	ListStaleOpenOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)
}

// NotificationSender delivers fire-and-forget notifications. Delivery
// failures never roll back a committed transition.
type NotificationSender interface {
	NotifyBookingAssigned(ctx context.Context, vendorID, bookingID int64) error
	NotifyBookingAccepted(ctx context.Context, userID, bookingID int64) error
	NotifyReportReady(ctx context.Context, userID, bookingID int64) error
	NotifyPaymentConfirmed(ctx context.Context, userID, bookingID int64, phase domain.PaymentPhase) error
	NotifyBookingClosed(ctx context.Context, userID, bookingID int64, status domain.BookingStatus, reason string) error
	NotifyBookingSettled(ctx context.Context, vendorID, bookingID int64) error
}

// Charges is the pricing collaborator's output, in paise. Opaque to this
// module beyond the sum.
type Charges struct {
	BaseServiceFee int64
	TravelCharges  int64
	GST            int64
}

type Pricer interface {
	Compute(ctx context.Context, serviceID, vendorID int64, lat, lng float64) (*Charges, error)
}
