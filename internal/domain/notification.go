package domain

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotifyBookingAssigned  NotificationType = "booking_assigned"  // vendor: advance confirmed, job is yours
	NotifyBookingAccepted  NotificationType = "booking_accepted"  // user: vendor accepted
	NotifyReportReady      NotificationType = "report_ready"      // user: report uploaded, remaining due
	NotifyPaymentConfirmed NotificationType = "payment_confirmed" // both: a phase settled
	NotifyBookingCancelled NotificationType = "booking_cancelled" // both: cancelled/rejected/failed
	NotifyBookingSettled   NotificationType = "booking_settled"   // vendor: payout approved
)

type Notification struct {
	ID        int64            `json:"id" gorm:"primaryKey"`
	UserID    int64            `json:"user_id" gorm:"index:idx_notifications_user_unread"`
	Type      NotificationType `json:"type" gorm:"type:varchar(32)"`
	Title     string           `json:"title"`
	Body      string           `json:"body,omitempty" gorm:"type:text"`
	Data      json.RawMessage  `json:"data,omitempty" gorm:"type:jsonb"`
	IsRead    bool             `json:"is_read" gorm:"index:idx_notifications_user_unread"`
	CreatedAt time.Time        `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
