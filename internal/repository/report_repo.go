package repository

import (
	"context"

	"jaladhar/internal/domain"

	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	return r.db.WithContext(ctx).Create(rep).Error
}

func (r *ReportRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Report, error) {
	var rep domain.Report
	if err := r.db.WithContext(ctx).Where("booking_id = ?", bookingID).First(&rep).Error; err != nil {
		return nil, err
	}
	return &rep, nil
}

func (r *ReportRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Report{}, id).Error
}
