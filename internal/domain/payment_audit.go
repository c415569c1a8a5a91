package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentAuditEvent string

const (
	AuditOrderCreated      PaymentAuditEvent = "order_created"
	AuditOrderReused       PaymentAuditEvent = "order_reused"
	AuditVerified          PaymentAuditEvent = "verified"
	AuditSignatureMismatch PaymentAuditEvent = "signature_mismatch"
	AuditGatewayError      PaymentAuditEvent = "gateway_error"
	AuditFakeApproved      PaymentAuditEvent = "fake_approved"
	AuditReconciled        PaymentAuditEvent = "reconciled"
)

// PaymentAudit is an append-only log entry per payment event, so support can
// see why a phase is stuck. Never updated or deleted.
type PaymentAudit struct {
	ID               uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	BookingID        int64             `json:"booking_id" gorm:"index;not null"`
	Phase            PaymentPhase      `json:"phase" gorm:"type:varchar(16);not null"`
	Event            PaymentAuditEvent `json:"event" gorm:"type:varchar(32);not null"`
	GatewayOrderID   string            `json:"gateway_order_id,omitempty" gorm:"type:varchar(64)"`
	GatewayPaymentID string            `json:"gateway_payment_id,omitempty" gorm:"type:varchar(64)"`
	Detail           string            `json:"detail,omitempty" gorm:"type:text"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (PaymentAudit) TableName() string { return "payment_audits" }
