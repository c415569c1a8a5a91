package booking

type CreateBookingRequest struct {
	UserID        int64   `json:"-"`
	VendorID      int64   `json:"vendor_id" binding:"required"`
	ServiceID     int64   `json:"service_id" binding:"required"`
	ScheduledDate string  `json:"scheduled_date" binding:"required"` // YYYY-MM-DD
	ScheduledTime string  `json:"scheduled_time" binding:"required"` // HH:MM
	Address       string  `json:"address" binding:"required"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"required"`
}
