package domain

import (
	"errors"
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending         BookingStatus = "pending"
	BookingAssigned        BookingStatus = "assigned"
	BookingAccepted        BookingStatus = "accepted"
	BookingVisited         BookingStatus = "visited"
	BookingAwaitingPayment BookingStatus = "awaiting_payment"
	BookingPaymentSuccess  BookingStatus = "payment_success"
	BookingFinalSettlement BookingStatus = "final_settlement"
	BookingCompleted       BookingStatus = "completed"
	BookingCancelled       BookingStatus = "cancelled"
	BookingRejected        BookingStatus = "rejected"
	BookingFailed          BookingStatus = "failed"
)

func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingCompleted, BookingCancelled, BookingRejected, BookingFailed:
		return true
	default:
		return false
	}
}

type LifecycleEvent string

const (
	EventAdvanceConfirmed   LifecycleEvent = "advance_confirmed"
	EventVendorAccepted     LifecycleEvent = "vendor_accepted"
	EventVisitRecorded      LifecycleEvent = "visit_recorded"
	EventReportUploaded     LifecycleEvent = "report_uploaded"
	EventRemainingConfirmed LifecycleEvent = "remaining_confirmed"
	EventAdminApproved      LifecycleEvent = "admin_approved"
	EventSettlementDone     LifecycleEvent = "settlement_done"
	EventCancel             LifecycleEvent = "cancel"
	EventReject             LifecycleEvent = "reject"
	EventPaymentFailed      LifecycleEvent = "payment_failed"
)

var (
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrAlreadyTerminal   = errors.New("booking_already_terminal")
	ErrConflict          = errors.New("booking_version_conflict")
)

// ActiveBookingError is returned when a user who already holds a non-terminal
// booking tries to create another one. It carries the existing booking id so
// the caller can offer resume or cancel-then-create.
type ActiveBookingError struct {
	BookingID int64
}

func (e *ActiveBookingError) Error() string {
	return fmt.Sprintf("active booking %d already exists", e.BookingID)
}

// forwardTransitions: each forward event is valid from exactly one state.
var forwardTransitions = map[LifecycleEvent]struct{ From, To BookingStatus }{
	EventAdvanceConfirmed:   {BookingPending, BookingAssigned},
	EventVendorAccepted:     {BookingAssigned, BookingAccepted},
	EventVisitRecorded:      {BookingAccepted, BookingVisited},
	EventReportUploaded:     {BookingVisited, BookingAwaitingPayment},
	EventRemainingConfirmed: {BookingAwaitingPayment, BookingPaymentSuccess},
	EventAdminApproved:      {BookingPaymentSuccess, BookingFinalSettlement},
	EventSettlementDone:     {BookingFinalSettlement, BookingCompleted},
}

// interruptTransitions are valid from every non-terminal state.
var interruptTransitions = map[LifecycleEvent]BookingStatus{
	EventCancel:        BookingCancelled,
	EventReject:        BookingRejected,
	EventPaymentFailed: BookingFailed,
}

// NextStatus validates ev against current and returns the resulting status.
// Terminal bookings accept no events at all.
func NextStatus(current BookingStatus, ev LifecycleEvent) (BookingStatus, error) {
	if current.IsTerminal() {
		return current, ErrAlreadyTerminal
	}
	if to, ok := interruptTransitions[ev]; ok {
		return to, nil
	}
	t, ok := forwardTransitions[ev]
	if !ok || t.From != current {
		return current, ErrInvalidTransition
	}
	return t.To, nil
}

type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
	// RoleSystem is the payment coordinator and the reconciliation sweep.
	RoleSystem Role = "system"
)

// Actor identifies who requested a transition.
type Actor struct {
	UserID int64
	Role   Role
}

// eventRoles lists which roles may fire each event. Admin may fire anything.
var eventRoles = map[LifecycleEvent][]Role{
	EventAdvanceConfirmed:   {RoleSystem},
	EventVendorAccepted:     {RoleVendor},
	EventVisitRecorded:      {RoleVendor},
	EventReportUploaded:     {RoleVendor},
	EventRemainingConfirmed: {RoleSystem},
	EventAdminApproved:      {RoleAdmin},
	EventSettlementDone:     {RoleAdmin},
	EventCancel:             {RoleUser, RoleVendor, RoleSystem},
	EventReject:             {RoleVendor},
	EventPaymentFailed:      {RoleSystem},
}

func RoleMayFire(role Role, ev LifecycleEvent) bool {
	if role == RoleAdmin {
		return true
	}
	for _, r := range eventRoles[ev] {
		if r == role {
			return true
		}
	}
	return false
}

type Booking struct {
	ID        int64         `json:"id" gorm:"primaryKey"`
	UserID    int64         `json:"user_id" gorm:"index;not null"`
	VendorID  int64         `json:"vendor_id" gorm:"index;not null"`
	ServiceID int64         `json:"service_id" gorm:"not null"`
	Status    BookingStatus `json:"status" gorm:"type:varchar(32);index;default:'pending'"`

	ScheduledDate string  `json:"scheduled_date" gorm:"type:varchar(16)"` // YYYY-MM-DD
	ScheduledTime string  `json:"scheduled_time" gorm:"type:varchar(8)"`  // HH:MM
	Address       string  `json:"address" gorm:"type:text"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`

	Payment Payment `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Report  *Report `json:"report,omitempty" gorm:"foreignKey:BookingID"`

	CancellationReason string `json:"cancellation_reason,omitempty" gorm:"type:text"`

	// Version backs the optimistic compare-and-swap every mutating write
	// goes through. A lost race surfaces as ErrConflict.
	Version int64 `json:"-" gorm:"not null;default:0"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (Booking) TableName() string { return "bookings" }

// Apply validates and applies ev, stamping cancellation metadata for
// interrupt events. Field writes outside this path desynchronize the
// lifecycle and are not allowed.
func (b *Booking) Apply(ev LifecycleEvent, reason string, now time.Time) error {
	next, err := NextStatus(b.Status, ev)
	if err != nil {
		return err
	}
	b.Status = next
	if _, interrupt := interruptTransitions[ev]; interrupt {
		b.CancellationReason = reason
		t := now
		b.CancelledAt = &t
	}
	return nil
}
