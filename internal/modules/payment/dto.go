package payment

import "jaladhar/internal/domain"

// OrderDetails is what the client needs to open the hosted checkout.
type OrderDetails struct {
	BookingID      int64               `json:"booking_id"`
	Phase          domain.PaymentPhase `json:"phase"`
	GatewayOrderID string              `json:"gateway_order_id"`
	Amount         int64               `json:"amount"`
	Currency       string              `json:"currency"`
	GatewayKeyID   string              `json:"gateway_key_id"`
}

type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}
