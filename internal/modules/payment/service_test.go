package payment_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"jaladhar/internal/config"
	"jaladhar/internal/domain"
	"jaladhar/internal/gateway"
	"jaladhar/internal/modules/booking"
	"jaladhar/internal/modules/payment"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memStore is an in-memory booking repository with the same optimistic
// version semantics as the real one. Backing the coordinator tests with a
// real booking.Service keeps the coordinator-engine contract honest.
type memStore struct {
	mu       sync.Mutex
	bookings map[int64]*domain.Booking
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[int64]*domain.Booking), nextID: 1}
}

func (s *memStore) put(b *domain.Booking) *domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.nextID
		s.nextID++
	}
	cp := *b
	s.bookings[b.ID] = &cp
	return b
}

func (s *memStore) CreateWithGuard(ctx context.Context, b *domain.Booking) error {
	s.put(b)
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) GetActiveByUserID(ctx context.Context, userID int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.UserID == userID && !b.Status.IsTerminal() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) Update(ctx context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.bookings[b.ID]
	if !ok || stored.Version != b.Version {
		return domain.ErrConflict
	}
	b.Version++
	cp := *b
	cp.UpdatedAt = time.Now()
	s.bookings[b.ID] = &cp
	return nil
}

func (s *memStore) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	return nil, nil
}

func (s *memStore) ListByVendorID(ctx context.Context, vendorID int64, limit, offset int) ([]domain.Booking, error) {
	return nil, nil
}

func (s *memStore) ListByStatus(ctx context.Context, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	return nil, nil
}

func (s *memStore) ListStaleOpenOrders(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if !b.UpdatedAt.Before(cutoff) {
			continue
		}
		advOpen := b.Status == domain.BookingPending && !b.Payment.AdvancePaid && b.Payment.AdvanceGatewayOrderID != ""
		remOpen := b.Status == domain.BookingAwaitingPayment && !b.Payment.RemainingPaid && b.Payment.RemainingGatewayOrderID != ""
		if advOpen || remOpen {
			out = append(out, *b)
		}
	}
	return out, nil
}

// fakeGateway signs deterministically so tests can forge valid and invalid
// signatures at will.
type fakeGateway struct {
	mu           sync.Mutex
	orderCount   int
	createCalls  int
	createErr    error
	captured     map[string]*gateway.CapturedPayment
	capturedErrs map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		captured:     make(map[string]*gateway.CapturedPayment),
		capturedErrs: make(map[string]error),
	}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.orderCount++
	return &gateway.Order{
		ID:       fmt.Sprintf("order_test_%d", g.orderCount),
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}, nil
}

func (g *fakeGateway) Sign(orderID, paymentID string) string {
	return "sig:" + orderID + "|" + paymentID
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == g.Sign(orderID, paymentID)
}

func (g *fakeGateway) FetchCapturedPayment(ctx context.Context, orderID string) (*gateway.CapturedPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.capturedErrs[orderID]; err != nil {
		return nil, err
	}
	return g.captured[orderID], nil
}

type memAuditLog struct {
	mu      sync.Mutex
	entries []domain.PaymentAudit
}

func (l *memAuditLog) Append(ctx context.Context, a *domain.PaymentAudit) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, *a)
	return nil
}

func (l *memAuditLog) events() []domain.PaymentAuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.PaymentAuditEvent, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Event)
	}
	return out
}

// owner is the user every seeded booking belongs to; stranger is another
// authenticated user with no claim on it.
var (
	owner    = domain.Actor{UserID: 1, Role: domain.RoleUser}
	stranger = domain.Actor{UserID: 999, Role: domain.RoleUser}
)

type fixture struct {
	store   *memStore
	gw      *fakeGateway
	audits  *memAuditLog
	engine  *booking.Service
	service *payment.Service
}

func newFixture(t *testing.T, cfg config.PaymentConfig) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	store := newMemStore()
	gw := newFakeGateway()
	audits := &memAuditLog{}
	engine := booking.NewService(store, nil, nil, logger)
	svc := payment.NewService(engine, store, gw, audits, cfg, "rzp_test_key", logger)
	return &fixture{store: store, gw: gw, audits: audits, engine: engine, service: svc}
}

func (f *fixture) seedBooking(status domain.BookingStatus) *domain.Booking {
	b := &domain.Booking{
		UserID:    owner.UserID,
		VendorID:  7,
		ServiceID: 1,
		Status:    status,
		Payment:   domain.NewPayment(600000, 50000, 117000),
	}
	return f.store.put(b)
}

func (f *fixture) current(t *testing.T, id int64) *domain.Booking {
	t.Helper()
	b, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return b
}

func TestInitiatePayment_CreatesAndPersistsAdvanceOrder(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)
	assert.Equal(t, "order_test_1", order.GatewayOrderID)
	assert.Equal(t, b.Payment.AdvanceAmount, order.Amount)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, "rzp_test_key", order.GatewayKeyID)

	// Persisted so verification and reconciliation can find it.
	assert.Equal(t, "order_test_1", f.current(t, b.ID).Payment.AdvanceGatewayOrderID)
	assert.Equal(t, []domain.PaymentAuditEvent{domain.AuditOrderCreated}, f.audits.events())
}

func TestInitiatePayment_SecondCallReusesOpenOrder(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	first, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)
	second, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	assert.Equal(t, first.GatewayOrderID, second.GatewayOrderID)
	assert.Equal(t, 1, f.gw.createCalls, "abandoned checkout must not open a second gateway order")
}

func TestInitiatePayment_WrongPhaseForState(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	_, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseRemaining)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	terminal := f.seedBooking(domain.BookingCancelled)
	_, err = f.service.InitiatePayment(context.Background(), terminal.ID, owner, domain.PhaseAdvance)
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
}

func TestInitiatePayment_StrangerForbidden(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	_, err := f.service.InitiatePayment(context.Background(), b.ID, stranger, domain.PhaseAdvance)
	assert.ErrorIs(t, err, payment.ErrForbidden)
	assert.Equal(t, 0, f.gw.createCalls)

	vendor := domain.Actor{UserID: b.VendorID, Role: domain.RoleVendor}
	_, err = f.service.InitiatePayment(context.Background(), b.ID, vendor, domain.PhaseAdvance)
	assert.ErrorIs(t, err, payment.ErrForbidden)
}

func TestVerifyPayment_AdvanceSuccessAssignsVendor(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	sig := f.gw.Sign(order.GatewayOrderID, "pay_adv_1")
	updated, err := f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseAdvance, order.GatewayOrderID, "pay_adv_1", sig)
	require.NoError(t, err)

	// Status and paid flag commit together.
	assert.Equal(t, domain.BookingAssigned, updated.Status)
	assert.True(t, updated.Payment.AdvancePaid)
	assert.Equal(t, "pay_adv_1", updated.Payment.AdvanceGatewayPaymentID)

	stored := f.current(t, b.ID)
	assert.Equal(t, domain.BookingAssigned, stored.Status)
	assert.True(t, stored.Payment.AdvancePaid)
}

func TestVerifyPayment_RetryAfterSuccessIsIdempotent(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)
	sig := f.gw.Sign(order.GatewayOrderID, "pay_adv_1")

	first, err := f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseAdvance, order.GatewayOrderID, "pay_adv_1", sig)
	require.NoError(t, err)
	again, err := f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseAdvance, order.GatewayOrderID, "pay_adv_1", sig)
	require.NoError(t, err)

	assert.Equal(t, first.Status, again.Status)
	assert.Equal(t, first.Version, again.Version, "duplicate verify must not write the row again")
}

func TestVerifyPayment_NoOpenOrder(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	_, err := f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseAdvance, "order_x", "pay_x", "sig_x")
	assert.ErrorIs(t, err, payment.ErrNoOpenOrder)
}

func TestVerifyPayment_AdvanceMismatchCancelsBooking(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	got, err := f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseAdvance, order.GatewayOrderID, "pay_adv_1", "forged")
	assert.ErrorIs(t, err, payment.ErrSignatureMismatch)

	// The deposit never cleared, so the booking is discarded outright.
	assert.Equal(t, domain.BookingCancelled, got.Status)
	assert.Equal(t, "advance payment failed: signature mismatch", got.CancellationReason)

	stored := f.current(t, b.ID)
	assert.Equal(t, domain.BookingCancelled, stored.Status)
	assert.False(t, stored.Payment.AdvancePaid)
}

func TestVerifyPayment_StrangerCannotCancelViaForgedVerify(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	// A garbage signature from another user must be refused before the
	// advance rollback can fire, or anyone could destroy a pending booking.
	_, err = f.service.VerifyPayment(context.Background(), b.ID, stranger, domain.PhaseAdvance, order.GatewayOrderID, "pay_x", "garbage")
	assert.ErrorIs(t, err, payment.ErrForbidden)

	stored := f.current(t, b.ID)
	assert.Equal(t, domain.BookingPending, stored.Status)
	assert.Empty(t, stored.CancellationReason)
}

func TestVerifyPayment_RemainingMismatchLeavesBookingRetryable(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingAwaitingPayment)
	b.Payment.AdvancePaid = true
	b.Payment.AdvanceGatewayPaymentID = "pay_adv_1"
	f.store.put(b)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseRemaining)
	require.NoError(t, err)

	_, err = f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseRemaining, order.GatewayOrderID, "pay_rem_1", "forged")
	assert.ErrorIs(t, err, payment.ErrSignatureMismatch)

	// Work is already done; the booking must stay open for a retry.
	stored := f.current(t, b.ID)
	assert.Equal(t, domain.BookingAwaitingPayment, stored.Status)
	assert.False(t, stored.Payment.RemainingPaid)

	// And the retry with a valid signature completes the phase.
	sig := f.gw.Sign(order.GatewayOrderID, "pay_rem_1")
	updated, err := f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseRemaining, order.GatewayOrderID, "pay_rem_1", sig)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPaymentSuccess, updated.Status)
	assert.True(t, updated.Payment.RemainingPaid)
}

func TestVerifyPayment_MismatchedOrderIDRejected(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	// Signature is valid for the forged order id, but the stored order is
	// what counts.
	sig := f.gw.Sign("order_other", "pay_x")
	_, err = f.service.VerifyPayment(context.Background(), b.ID, owner, domain.PhaseAdvance, "order_other", "pay_x", sig)
	assert.ErrorIs(t, err, payment.ErrSignatureMismatch)
	assert.NotEqual(t, "order_other", order.GatewayOrderID)
}

func TestFakeAdvancePayment_DisabledByDefault(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	_, err := f.service.FakeAdvancePayment(context.Background(), b.ID, owner)
	assert.ErrorIs(t, err, payment.ErrFakeDisabled)
	assert.Equal(t, domain.BookingPending, f.current(t, b.ID).Status)
}

func TestFakeAdvancePayment_ConfirmsWithoutGateway(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{AllowFakeAdvance: true, ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	updated, err := f.service.FakeAdvancePayment(context.Background(), b.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingAssigned, updated.Status)
	assert.True(t, updated.Payment.AdvancePaid)
	assert.Contains(t, updated.Payment.AdvanceGatewayPaymentID, "fake_")
	assert.Equal(t, 0, f.gw.createCalls)
	assert.Equal(t, []domain.PaymentAuditEvent{domain.AuditFakeApproved}, f.audits.events())
}

func TestFakeAdvancePayment_StrangerForbidden(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{AllowFakeAdvance: true, ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	_, err := f.service.FakeAdvancePayment(context.Background(), b.ID, stranger)
	assert.ErrorIs(t, err, payment.ErrForbidden)
	assert.Equal(t, domain.BookingPending, f.current(t, b.ID).Status)
}

func TestReconcile_HealsCapturedOrder(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	// Age the row past the threshold and tell the gateway it was paid.
	f.store.mu.Lock()
	f.store.bookings[b.ID].UpdatedAt = time.Now().Add(-time.Hour)
	f.store.mu.Unlock()
	f.gw.captured[order.GatewayOrderID] = &gateway.CapturedPayment{ID: "pay_reco_1", Status: "captured"}

	healed, err := f.service.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, healed)

	stored := f.current(t, b.ID)
	assert.Equal(t, domain.BookingAssigned, stored.Status)
	assert.True(t, stored.Payment.AdvancePaid)
	assert.Equal(t, "pay_reco_1", stored.Payment.AdvanceGatewayPaymentID)
	assert.Contains(t, f.audits.events(), domain.AuditReconciled)
}

func TestReconcile_LeavesUncapturedOrdersAlone(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	_, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)

	f.store.mu.Lock()
	f.store.bookings[b.ID].UpdatedAt = time.Now().Add(-time.Hour)
	f.store.mu.Unlock()

	healed, err := f.service.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, healed)
	assert.Equal(t, domain.BookingPending, f.current(t, b.ID).Status)
}

func TestReconcile_SkipsFreshOrders(t *testing.T) {
	f := newFixture(t, config.PaymentConfig{ReconcileAfter: 30 * time.Minute})
	b := f.seedBooking(domain.BookingPending)

	order, err := f.service.InitiatePayment(context.Background(), b.ID, owner, domain.PhaseAdvance)
	require.NoError(t, err)
	f.gw.captured[order.GatewayOrderID] = &gateway.CapturedPayment{ID: "pay_fresh", Status: "captured"}

	// Row is fresher than the threshold: the user may still be mid-checkout.
	healed, err := f.service.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, healed)
}
