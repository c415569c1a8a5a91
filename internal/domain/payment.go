package domain

// PaymentPhase names the two halves of the split payment.
type PaymentPhase string

const (
	PhaseAdvance   PaymentPhase = "advance"
	PhaseRemaining PaymentPhase = "remaining"
)

// Payment is the 1:1 money record embedded in Booking. All amounts are
// integer paise. The charge fields are computed once at creation and never
// change afterwards; changing them would desynchronize the two gateway
// orders. The paid flags only ever go false -> true.
type Payment struct {
	BaseServiceFee  int64 `json:"base_service_fee" gorm:"column:base_service_fee"`
	TravelCharges   int64 `json:"travel_charges" gorm:"column:travel_charges"`
	GST             int64 `json:"gst" gorm:"column:gst"`
	TotalAmount     int64 `json:"total_amount" gorm:"column:total_amount"`
	AdvanceAmount   int64 `json:"advance_amount" gorm:"column:advance_amount"`
	RemainingAmount int64 `json:"remaining_amount" gorm:"column:remaining_amount"`

	AdvancePaid   bool `json:"advance_paid" gorm:"column:advance_paid"`
	RemainingPaid bool `json:"remaining_paid" gorm:"column:remaining_paid"`

	AdvanceGatewayOrderID     string `json:"advance_gateway_order_id,omitempty" gorm:"column:advance_gateway_order_id;type:varchar(64)"`
	AdvanceGatewayPaymentID   string `json:"advance_gateway_payment_id,omitempty" gorm:"column:advance_gateway_payment_id;type:varchar(64)"`
	RemainingGatewayOrderID   string `json:"remaining_gateway_order_id,omitempty" gorm:"column:remaining_gateway_order_id;type:varchar(64)"`
	RemainingGatewayPaymentID string `json:"remaining_gateway_payment_id,omitempty" gorm:"column:remaining_gateway_payment_id;type:varchar(64)"`
}

// SplitAdvance computes the 40% advance share of total (paise), rounded to
// the nearest paisa, and the remaining share as the exact complement so the
// two always re-add to total. A 2/5 multiple of an integer never lands on
// exactly half a paisa, so round-half-even and round-half-up coincide here.
func SplitAdvance(total int64) (advance, remaining int64) {
	num := total * 2 // total * 0.4 == num / 5
	advance = num / 5
	if num%5 >= 3 {
		advance++
	}
	return advance, total - advance
}

func NewPayment(baseServiceFee, travelCharges, gst int64) Payment {
	total := baseServiceFee + travelCharges + gst
	adv, rem := SplitAdvance(total)
	return Payment{
		BaseServiceFee:  baseServiceFee,
		TravelCharges:   travelCharges,
		GST:             gst,
		TotalAmount:     total,
		AdvanceAmount:   adv,
		RemainingAmount: rem,
	}
}

func (p *Payment) PhasePaid(ph PaymentPhase) bool {
	if ph == PhaseAdvance {
		return p.AdvancePaid
	}
	return p.RemainingPaid
}

func (p *Payment) PhaseAmount(ph PaymentPhase) int64 {
	if ph == PhaseAdvance {
		return p.AdvanceAmount
	}
	return p.RemainingAmount
}

func (p *Payment) GatewayOrderID(ph PaymentPhase) string {
	if ph == PhaseAdvance {
		return p.AdvanceGatewayOrderID
	}
	return p.RemainingGatewayOrderID
}

func (p *Payment) SetGatewayOrderID(ph PaymentPhase, orderID string) {
	if ph == PhaseAdvance {
		p.AdvanceGatewayOrderID = orderID
		return
	}
	p.RemainingGatewayOrderID = orderID
}

func (p *Payment) GatewayPaymentID(ph PaymentPhase) string {
	if ph == PhaseAdvance {
		return p.AdvanceGatewayPaymentID
	}
	return p.RemainingGatewayPaymentID
}

// MarkPaid flips the phase flag and records the gateway payment id. The
// remaining phase refuses to settle before the advance has.
func (p *Payment) MarkPaid(ph PaymentPhase, gatewayPaymentID string) error {
	if ph == PhaseRemaining && !p.AdvancePaid {
		return ErrInvalidTransition
	}
	if ph == PhaseAdvance {
		p.AdvancePaid = true
		p.AdvanceGatewayPaymentID = gatewayPaymentID
		return nil
	}
	p.RemainingPaid = true
	p.RemainingGatewayPaymentID = gatewayPaymentID
	return nil
}

// PhaseState tells whether a booking status permits initiating the phase.
func PhaseAllowedFrom(status BookingStatus, ph PaymentPhase) bool {
	if ph == PhaseAdvance {
		return status == BookingPending
	}
	return status == BookingAwaitingPayment
}

// PhaseEvent is the lifecycle event a verified phase fires.
func PhaseEvent(ph PaymentPhase) LifecycleEvent {
	if ph == PhaseAdvance {
		return EventAdvanceConfirmed
	}
	return EventRemainingConfirmed
}
