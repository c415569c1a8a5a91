package report

import (
	"errors"
	"net/http"
	"strconv"

	"jaladhar/internal/domain"
	"jaladhar/internal/modules/booking"
	"jaladhar/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings/:id/report", h.GetReport)
}

func (h *Handler) RegisterVendorRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/:id/report", h.UploadReport)
}

func (h *Handler) UploadReport(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	var req UploadReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "water_found is required")
		return
	}

	b, err := h.service.UploadReport(c.Request.Context(), id, actorFrom(c), req)
	if err != nil {
		writeReportError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"booking": b})
}

func (h *Handler) GetReport(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	view, err := h.service.GetReport(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeReportError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"report": view})
}

func actorFrom(c *gin.Context) domain.Actor {
	return domain.Actor{
		UserID: c.GetInt64("user_id"),
		Role:   domain.Role(c.GetString("role")),
	}
}

func bookingIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return 0, false
	}
	return id, true
}

func writeReportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid report data")
	case errors.Is(err, ErrAlreadyExists):
		response.Error(c, http.StatusConflict, "REPORT_EXISTS", "A report was already uploaded for this booking")
	case errors.Is(err, ErrNotYetUploaded):
		response.Error(c, http.StatusNotFound, "REPORT_NOT_READY", "The survey report has not been uploaded yet")
	case errors.Is(err, booking.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, booking.ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not allowed for this booking")
	case errors.Is(err, domain.ErrAlreadyTerminal):
		response.Error(c, http.StatusConflict, "BOOKING_TERMINAL", "Booking is already closed")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Report upload requires a completed visit")
	case errors.Is(err, domain.ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", "Booking was modified concurrently, retry")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Report operation failed")
	}
}
