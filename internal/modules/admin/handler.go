package admin

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
	rg.GET("/settlements", h.SettlementQueue)
	rg.PATCH("/bookings/:id/approve", h.ApproveSettlement)
	rg.PATCH("/bookings/:id/settle", h.CompleteSettlement)
	rg.GET("/bookings", h.ListByStatus)
	rg.GET("/bookings/:id/payments/audit", h.PaymentTrail)
	rg.POST("/reconcile", h.RunReconciliation)
}

func (h *Handler) SettlementQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.SettlementQueue(c.Request.Context(), limit, offset)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) ApproveSettlement(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.service.ApproveSettlement(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeAdminError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) CompleteSettlement(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.service.CompleteSettlement(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writeAdminError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) ListByStatus(c *gin.Context) {
	status := domain.BookingStatus(c.DefaultQuery("status", string(domain.BookingPending)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
}

func (h *Handler) PaymentTrail(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	trail, err := h.service.PaymentTrail(c.Request.Context(), id)
	if err != nil {
		writeAdminError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"audit": trail})
}

func (h *Handler) RunReconciliation(c *gin.Context) {
	healed, err := h.service.RunReconciliation(c.Request.Context())
	if err != nil {
		writeAdminError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"healed": healed})
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

func writeAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, domain.ErrAlreadyTerminal):
		response.Error(c, http.StatusConflict, "BOOKING_TERMINAL", "Booking is already closed")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Action is not valid for the current booking state")
	case errors.Is(err, domain.ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", "Booking was modified concurrently, retry")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}
