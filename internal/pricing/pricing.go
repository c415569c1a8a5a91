// Package pricing computes the charge breakdown for a survey booking.
// All amounts are integer paise.
package pricing

import (
	"context"

	"jaladhar/internal/modules/booking"
)

const (
	defaultBaseServiceFee = 600000 // Rs 6000
	defaultTravelCharges  = 50000  // Rs 500
	gstBasisPoints        = 1800   // 18%
)

// FlatPricer charges a fixed base fee and travel component plus GST.
// Per-vendor and distance-based pricing can replace it behind the same
// interface without touching the booking flow.
type FlatPricer struct {
	BaseServiceFee int64
	TravelCharges  int64
}

func NewFlatPricer() *FlatPricer {
	return &FlatPricer{
		BaseServiceFee: defaultBaseServiceFee,
		TravelCharges:  defaultTravelCharges,
	}
}

func (p *FlatPricer) Compute(ctx context.Context, serviceID, vendorID int64, lat, lng float64) (*booking.Charges, error) {
	base := p.BaseServiceFee
	travel := p.TravelCharges
	gst := (base + travel) * gstBasisPoints / 10000
	return &booking.Charges{
		BaseServiceFee: base,
		TravelCharges:  travel,
		GST:            gst,
	}, nil
}
