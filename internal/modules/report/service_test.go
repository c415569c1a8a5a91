package report

import (
	"context"
	"testing"
	"time"

	"jaladhar/internal/domain"
	"jaladhar/internal/modules/booking"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeEngine drives a single in-memory booking through the real domain
// transition rules.
type fakeEngine struct {
	booking       *domain.Booking
	transitionErr error
}

func (e *fakeEngine) GetByID(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	if e.booking == nil || e.booking.ID != bookingID {
		return nil, booking.ErrNotFound
	}
	cp := *e.booking
	return &cp, nil
}

func (e *fakeEngine) Transition(ctx context.Context, bookingID int64, ev domain.LifecycleEvent, actor domain.Actor, reason string, mutate func(*domain.Booking) error) (*domain.Booking, error) {
	if e.transitionErr != nil {
		return nil, e.transitionErr
	}
	if e.booking == nil || e.booking.ID != bookingID {
		return nil, booking.ErrNotFound
	}
	if err := e.booking.Apply(ev, reason, time.Now()); err != nil {
		return nil, err
	}
	cp := *e.booking
	return &cp, nil
}

type fakeReportStore struct {
	reports   map[int64]*domain.Report
	nextID    int64
	createErr error
	deleted   []int64
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{reports: make(map[int64]*domain.Report), nextID: 1}
}

func (s *fakeReportStore) Create(ctx context.Context, rep *domain.Report) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.reports[rep.BookingID]; exists {
		return gorm.ErrDuplicatedKey
	}
	rep.ID = s.nextID
	s.nextID++
	cp := *rep
	s.reports[rep.BookingID] = &cp
	return nil
}

func (s *fakeReportStore) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Report, error) {
	rep, ok := s.reports[bookingID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rep
	return &cp, nil
}

func (s *fakeReportStore) Delete(ctx context.Context, id int64) error {
	s.deleted = append(s.deleted, id)
	for bid, rep := range s.reports {
		if rep.ID == id {
			delete(s.reports, bid)
		}
	}
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func visitedBooking() *domain.Booking {
	b := &domain.Booking{
		ID:       10,
		UserID:   1,
		VendorID: 7,
		Status:   domain.BookingVisited,
		Payment:  domain.NewPayment(600000, 50000, 117000),
	}
	b.Payment.AdvancePaid = true
	return b
}

func uploadReq() UploadReportRequest {
	found := true
	return UploadReportRequest{
		WaterFound:     &found,
		DepthMeters:    42.5,
		Findings:       "Strong aquifer indication at the north corner.",
		Recommendation: "Bore at the marked point.",
	}
}

func TestUploadReport_MovesBookingToAwaitingPayment(t *testing.T) {
	engine := &fakeEngine{booking: visitedBooking()}
	store := newFakeReportStore()
	svc := NewService(engine, store, quietLogger())

	vendor := domain.Actor{UserID: 7, Role: domain.RoleVendor}
	b, err := svc.UploadReport(context.Background(), 10, vendor, uploadReq())
	require.NoError(t, err)

	assert.Equal(t, domain.BookingAwaitingPayment, b.Status)
	rep, err := store.GetByBookingID(context.Background(), 10)
	require.NoError(t, err)
	assert.True(t, rep.WaterFound)
	assert.Equal(t, 42.5, rep.DepthMeters)
}

func TestUploadReport_ForeignVendorForbidden(t *testing.T) {
	engine := &fakeEngine{booking: visitedBooking()}
	store := newFakeReportStore()
	svc := NewService(engine, store, quietLogger())

	other := domain.Actor{UserID: 8, Role: domain.RoleVendor}
	_, err := svc.UploadReport(context.Background(), 10, other, uploadReq())
	assert.ErrorIs(t, err, booking.ErrForbidden)
	assert.Empty(t, store.reports)
}

func TestUploadReport_RequiresVisitedState(t *testing.T) {
	b := visitedBooking()
	b.Status = domain.BookingAccepted
	engine := &fakeEngine{booking: b}
	store := newFakeReportStore()
	svc := NewService(engine, store, quietLogger())

	vendor := domain.Actor{UserID: 7, Role: domain.RoleVendor}
	_, err := svc.UploadReport(context.Background(), 10, vendor, uploadReq())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, store.reports)
}

func TestUploadReport_SecondUploadRejected(t *testing.T) {
	engine := &fakeEngine{booking: visitedBooking()}
	store := newFakeReportStore()
	svc := NewService(engine, store, quietLogger())

	vendor := domain.Actor{UserID: 7, Role: domain.RoleVendor}
	_, err := svc.UploadReport(context.Background(), 10, vendor, uploadReq())
	require.NoError(t, err)

	// Reset the state as if the transition had been rolled back elsewhere.
	engine.booking.Status = domain.BookingVisited
	_, err = svc.UploadReport(context.Background(), 10, vendor, uploadReq())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUploadReport_RemovesRowWhenTransitionFails(t *testing.T) {
	engine := &fakeEngine{booking: visitedBooking(), transitionErr: domain.ErrConflict}
	store := newFakeReportStore()
	svc := NewService(engine, store, quietLogger())

	vendor := domain.Actor{UserID: 7, Role: domain.RoleVendor}
	_, err := svc.UploadReport(context.Background(), 10, vendor, uploadReq())
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Empty(t, store.reports, "orphan report row must be cleaned up")
	assert.NotEmpty(t, store.deleted)
}

func seedReport(t *testing.T, store *fakeReportStore) {
	t.Helper()
	found := true
	require.NoError(t, store.Create(context.Background(), &domain.Report{
		BookingID:      10,
		WaterFound:     found,
		DepthMeters:    42.5,
		Findings:       "Strong aquifer indication.",
		Recommendation: "Bore at the marked point.",
	}))
}

func TestGetReport_LockedUntilRemainingPaid(t *testing.T) {
	b := visitedBooking()
	b.Status = domain.BookingAwaitingPayment
	engine := &fakeEngine{booking: b}
	store := newFakeReportStore()
	seedReport(t, store)
	svc := NewService(engine, store, quietLogger())

	owner := domain.Actor{UserID: 1, Role: domain.RoleUser}
	view, err := svc.GetReport(context.Background(), 10, owner)
	require.NoError(t, err)

	// The boolean summary is free; the detail stays behind the paywall.
	assert.True(t, view.Locked)
	assert.True(t, view.WaterFound)
	assert.Zero(t, view.DepthMeters)
	assert.Empty(t, view.Findings)
	assert.Empty(t, view.Recommendation)
}

func TestGetReport_UnlockedAfterRemainingPaid(t *testing.T) {
	b := visitedBooking()
	b.Status = domain.BookingPaymentSuccess
	b.Payment.RemainingPaid = true
	engine := &fakeEngine{booking: b}
	store := newFakeReportStore()
	seedReport(t, store)
	svc := NewService(engine, store, quietLogger())

	owner := domain.Actor{UserID: 1, Role: domain.RoleUser}
	view, err := svc.GetReport(context.Background(), 10, owner)
	require.NoError(t, err)

	assert.False(t, view.Locked)
	assert.Equal(t, 42.5, view.DepthMeters)
	assert.NotEmpty(t, view.Findings)
	assert.NotEmpty(t, view.Recommendation)
}

func TestGetReport_VendorAndAdminAlwaysUnlocked(t *testing.T) {
	b := visitedBooking()
	b.Status = domain.BookingAwaitingPayment
	engine := &fakeEngine{booking: b}
	store := newFakeReportStore()
	seedReport(t, store)
	svc := NewService(engine, store, quietLogger())

	vendor := domain.Actor{UserID: 7, Role: domain.RoleVendor}
	view, err := svc.GetReport(context.Background(), 10, vendor)
	require.NoError(t, err)
	assert.False(t, view.Locked)

	admin := domain.Actor{UserID: 99, Role: domain.RoleAdmin}
	view, err = svc.GetReport(context.Background(), 10, admin)
	require.NoError(t, err)
	assert.False(t, view.Locked)
}

func TestGetReport_StrangerForbidden(t *testing.T) {
	engine := &fakeEngine{booking: visitedBooking()}
	store := newFakeReportStore()
	seedReport(t, store)
	svc := NewService(engine, store, quietLogger())

	stranger := domain.Actor{UserID: 55, Role: domain.RoleUser}
	_, err := svc.GetReport(context.Background(), 10, stranger)
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestGetReport_NotYetUploaded(t *testing.T) {
	engine := &fakeEngine{booking: visitedBooking()}
	store := newFakeReportStore()
	svc := NewService(engine, store, quietLogger())

	owner := domain.Actor{UserID: 1, Role: domain.RoleUser}
	_, err := svc.GetReport(context.Background(), 10, owner)
	assert.ErrorIs(t, err, ErrNotYetUploaded)
}
