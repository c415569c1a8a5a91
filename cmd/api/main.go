package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"jaladhar/internal/config"
	"jaladhar/internal/database"
	"jaladhar/internal/gateway"
	"jaladhar/internal/middleware"
	"jaladhar/internal/modules/admin"
	"jaladhar/internal/modules/auth"
	"jaladhar/internal/modules/booking"
	"jaladhar/internal/modules/notify"
	"jaladhar/internal/modules/payment"
	"jaladhar/internal/modules/report"
	jwtsvc "jaladhar/internal/pkg/jwt"
	"jaladhar/internal/pricing"
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
	if err := database.Migrate(db); err != nil {
		logger.WithField("error", err.Error()).Fatal("Failed to run migrations")
	}

	userRepo := repository.NewUserRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	reportRepo := repository.NewReportRepository(db)
	auditRepo := repository.NewPaymentAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	j := jwtsvc.New(cfg.JWT.Secret, cfg.JWT.TTL)
	gw := gateway.NewClient(cfg.Razorpay, logger)

	hub := notify.NewHub()
	defer hub.Close()
	notifyService := notify.NewService(notificationRepo, hub, logger)

	authService := auth.NewService(userRepo, j)
	bookingService := booking.NewService(bookingRepo, notifyService, pricing.NewFlatPricer(), logger)
	paymentService := payment.NewService(bookingService, bookingRepo, gw, auditRepo, cfg.Payment, cfg.Razorpay.KeyID, logger)
	reportService := report.NewService(bookingService, reportRepo, logger)
	adminService := admin.NewService(bookingService, bookingRepo, auditRepo, paymentService, logger)

	authHandler := auth.NewHandler(authService)
	bookingHandler := booking.NewHandler(bookingService, paymentService)
	paymentHandler := payment.NewHandler(paymentService)
	reportHandler := report.NewHandler(reportService)
	notifyHandler := notify.NewHandler(notifyService)
	adminHandler := admin.NewHandler(adminService)
	wsHandler := notify.NewWSHandler(hub, j, logger)

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.ErrorLogger(logger))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterRoutes(v1)

		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			authHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			paymentHandler.RegisterRoutes(protected)
			reportHandler.RegisterRoutes(protected)
			notifyHandler.RegisterRoutes(protected)

			vendor := protected.Group("/vendor")
			vendor.Use(middleware.VendorOnly())
			{
				bookingHandler.RegisterVendorRoutes(vendor)
				reportHandler.RegisterVendorRoutes(vendor)
			}

			adminGroup := protected.Group("/admin")
			adminGroup.Use(middleware.AdminOnly())
			{
				adminHandler.RegisterRoutes(adminGroup)
			}
		}
	}

	r.GET("/ws/notifications", wsHandler.HandleWebSocket)

	logger.WithField("port", cfg.Server.Port).Info("Starting API server")
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.WithField("error", err.Error()).Fatal("Server stopped")
	}
}
