package repository

import (
	"context"
	"errors"
	"time"

	"jaladhar/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

var nonTerminalStatuses = []domain.BookingStatus{
	domain.BookingPending,
	domain.BookingAssigned,
	domain.BookingAccepted,
	domain.BookingVisited,
	domain.BookingAwaitingPayment,
	domain.BookingPaymentSuccess,
	domain.BookingFinalSettlement,
}

// CreateWithGuard inserts b only if the user holds no non-terminal booking.
// The check and the insert run in one transaction; the partial unique index
// idx_one_active_booking backs it up against a concurrent insert racing the
// check, surfacing as a unique violation mapped to the same error.
func (r *BookingRepository) CreateWithGuard(ctx context.Context, b *domain.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Booking
		err := tx.Where("user_id = ? AND status IN ?", b.UserID, nonTerminalStatuses).
			First(&existing).Error
		if err == nil {
			return &domain.ActiveBookingError{BookingID: existing.ID}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(b).Error
	})
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" && pgErr.ConstraintName == "idx_one_active_booking" {
			if existing, gerr := r.GetActiveByUserID(ctx, b.UserID); gerr == nil && existing != nil {
				return &domain.ActiveBookingError{BookingID: existing.ID}
			}
			return &domain.ActiveBookingError{}
		}
		return err
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	tx := r.db.WithContext(ctx).Preload("Report").First(&b, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &b, nil
}

func (r *BookingRepository) GetActiveByUserID(ctx context.Context, userID int64) (*domain.Booking, error) {
	var b domain.Booking
	tx := r.db.WithContext(ctx).Preload("Report").
		Where("user_id = ? AND status IN ?", userID, nonTerminalStatuses).
		First(&b)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return &b, nil
}

// Update writes the whole booking row under an optimistic version check.
// A stale version means someone else committed first: domain.ErrConflict,
// nothing written, caller re-reads and retries.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	prev := b.Version
	b.Version = prev + 1
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND version = ?", b.ID, prev).
		Select("*").
		Omit("id", "created_at", "Report").
		Updates(b)
	if res.Error != nil {
		b.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		b.Version = prev
		return domain.ErrConflict
	}
	return nil
}

func (r *BookingRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	tx := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out)
	return out, tx.Error
}

func (r *BookingRepository) ListByVendorID(ctx context.Context, vendorID int64, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	tx := r.db.WithContext(ctx).
		Where("vendor_id = ? AND status <> ?", vendorID, domain.BookingPending).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&out)
	return out, tx.Error
}

func (r *BookingRepository) ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	tx := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&out)
	return out, tx.Error
}

// ListStaleOpenOrders returns bookings sitting in a payment-eligible state
// with a gateway order created before cutoff and the phase still unpaid.
// These are the candidates for the reconciliation sweep.
func (r *BookingRepository) ListStaleOpenOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	tx := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where(
			r.db.Where("status = ? AND payment_advance_paid = ? AND payment_advance_gateway_order_id <> ''",
				domain.BookingPending, false).
				Or("status = ? AND payment_remaining_paid = ? AND payment_remaining_gateway_order_id <> ''",
					domain.BookingAwaitingPayment, false),
		).
		Order("updated_at ASC").
		Limit(limit).
		Find(&out)
	return out, tx.Error
}
