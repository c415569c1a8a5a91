// Reconciliation sweep for stale payment orders. Run from cron; it asks the
// gateway about orders that were opened but never verified and settles the
// ones it actually captured.
package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"jaladhar/internal/config"
	"jaladhar/internal/database"
	"jaladhar/internal/gateway"
	"jaladhar/internal/modules/booking"
	"jaladhar/internal/modules/payment"
	"jaladhar/internal/repository"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithField("error", err.Error()).Fatal("Failed to load configuration")
	}

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		logger.WithField("error", err.Error()).Fatal("Failed to connect to database")
	}

	bookingRepo := repository.NewBookingRepository(db)
	auditRepo := repository.NewPaymentAuditRepository(db)
	gw := gateway.NewClient(cfg.Razorpay, logger)

	// No notifier or pricer: the sweep only settles existing bookings.
	bookingService := booking.NewService(bookingRepo, nil, nil, logger)
	paymentService := payment.NewService(bookingService, bookingRepo, gw, auditRepo, cfg.Payment, cfg.Razorpay.KeyID, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	healed, err := paymentService.Reconcile(ctx)
	if err != nil {
		logger.WithField("error", err.Error()).Fatal("Reconciliation sweep failed")
	}
	logger.WithField("healed", healed).Info("Reconciliation sweep completed")
}
