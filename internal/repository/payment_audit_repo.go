package repository

import (
	"context"

	"jaladhar/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentAuditRepository struct {
	db *gorm.DB
}

func NewPaymentAuditRepository(db *gorm.DB) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db}
}

func (r *PaymentAuditRepository) Append(ctx context.Context, a *domain.PaymentAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *PaymentAuditRepository) ListByBookingID(ctx context.Context, bookingID int64) ([]domain.PaymentAudit, error) {
	var out []domain.PaymentAudit
	tx := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&out)
	return out, tx.Error
}
