package report

import (
	"context"
	"errors"
	"strings"

	"jaladhar/internal/domain"
	"jaladhar/internal/modules/booking"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	engine  lifecycleEngine
	reports ReportStore
	logger  *logrus.Logger
}

func NewService(engine lifecycleEngine, reports ReportStore, logger *logrus.Logger) *Service {
	return &Service{engine: engine, reports: reports, logger: logger}
}

// UploadReport stores the vendor's findings and moves the booking to
// awaiting_payment. The row is written before the transition; if the
// transition is rejected the row is removed again so a retry starts clean.
func (s *Service) UploadReport(ctx context.Context, bookingID int64, actor domain.Actor, req UploadReportRequest) (*domain.Booking, error) {
	b, err := s.engine.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleVendor && b.VendorID != actor.UserID {
		return nil, booking.ErrForbidden
	}
	if b.Status != domain.BookingVisited {
		if b.Status.IsTerminal() {
			return nil, domain.ErrAlreadyTerminal
		}
		return nil, domain.ErrInvalidTransition
	}

	rep := &domain.Report{
		BookingID:      bookingID,
		WaterFound:     *req.WaterFound,
		DepthMeters:    req.DepthMeters,
		Findings:       strings.TrimSpace(req.Findings),
		Recommendation: strings.TrimSpace(req.Recommendation),
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		if isDuplicate(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	b, err = s.engine.Transition(ctx, bookingID, domain.EventReportUploaded, actor, "", nil)
	if err != nil {
		if delErr := s.reports.Delete(ctx, rep.ID); delErr != nil {
			s.logger.WithFields(logrus.Fields{
				"booking_id": bookingID,
				"report_id":  rep.ID,
				"error":      delErr.Error(),
			}).Error("Failed to remove report after rejected transition")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"report_id":   rep.ID,
		"water_found": rep.WaterFound,
	}).Info("Survey report uploaded")
	return b, nil
}

// GetReport returns the survey result for a booking. Users see the full
// detail only once the remaining payment has cleared; the vendor who wrote
// it and admins always see it unlocked.
func (s *Service) GetReport(ctx context.Context, bookingID int64, actor domain.Actor) (*domain.ReportView, error) {
	b, err := s.engine.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleVendor:
		if b.VendorID != actor.UserID {
			return nil, booking.ErrForbidden
		}
	default:
		if b.UserID != actor.UserID {
			return nil, booking.ErrForbidden
		}
	}

	rep, err := s.reports.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotYetUploaded
		}
		return nil, err
	}

	unlocked := actor.Role != domain.RoleUser || b.Payment.RemainingPaid
	view := rep.View(unlocked)
	return &view, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
