package report

// UploadReportRequest carries the vendor's survey findings. WaterFound is a
// pointer so that an explicit false still passes the required binding.
type UploadReportRequest struct {
	WaterFound     *bool   `json:"water_found" binding:"required"`
	DepthMeters    float64 `json:"depth_meters"`
	Findings       string  `json:"findings"`
	Recommendation string  `json:"recommendation"`
}
