package domain

import "time"

// Report holds the vendor's survey findings for one booking. Created when
// the vendor uploads results; full detail stays locked behind the remaining
// payment (see ReportView).
type Report struct {
	ID        int64 `json:"id" gorm:"primaryKey"`
	BookingID int64 `json:"booking_id" gorm:"uniqueIndex;not null"`

	WaterFound     bool    `json:"water_found"`
	DepthMeters    float64 `json:"depth_meters,omitempty"`
	Findings       string  `json:"findings,omitempty" gorm:"type:text"`
	Recommendation string  `json:"recommendation,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Report) TableName() string { return "reports" }

// ReportView is what a user gets back. Until the remaining payment clears,
// only the boolean summary is exposed.
type ReportView struct {
	BookingID  int64 `json:"booking_id"`
	WaterFound bool  `json:"water_found"`
	Locked     bool  `json:"locked"`

	DepthMeters    float64 `json:"depth_meters,omitempty"`
	Findings       string  `json:"findings,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

func (r *Report) View(remainingPaid bool) ReportView {
	v := ReportView{
		BookingID:  r.BookingID,
		WaterFound: r.WaterFound,
		Locked:     !remainingPaid,
	}
	if remainingPaid {
		v.DepthMeters = r.DepthMeters
		v.Findings = r.Findings
		v.Recommendation = r.Recommendation
	}
	return v
}
