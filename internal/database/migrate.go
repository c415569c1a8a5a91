package database

import (
	"jaladhar/internal/domain"

	"gorm.io/gorm"
)

// Migrate runs AutoMigrate for all models and creates the partial unique
// index backing the one-active-booking-per-user guard. Works on both
// PostgreSQL and SQLite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Booking{},
		&domain.Report{},
		&domain.PaymentAudit{},
		&domain.Notification{},
	); err != nil {
		return err
	}

	return db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_one_active_booking
ON bookings (user_id)
WHERE status NOT IN ('completed', 'cancelled', 'rejected', 'failed')
`).Error
}
