package payment

import (
	"errors"
	"net/http"
	"strconv"

	"jaladhar/internal/domain"
	"jaladhar/internal/gateway"
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
	rg.POST("/bookings/:id/payments/advance/initiate", h.InitiateAdvance)
	rg.POST("/bookings/:id/payments/advance/verify", h.VerifyAdvance)
	rg.POST("/bookings/:id/payments/remaining/initiate", h.InitiateRemaining)
	rg.POST("/bookings/:id/payments/remaining/verify", h.VerifyRemaining)
	rg.POST("/bookings/:id/payments/advance/fake", h.FakeAdvance)
}

func (h *Handler) InitiateAdvance(c *gin.Context) {
	h.initiate(c, domain.PhaseAdvance)
}

func (h *Handler) InitiateRemaining(c *gin.Context) {
	h.initiate(c, domain.PhaseRemaining)
}

func (h *Handler) initiate(c *gin.Context, ph domain.PaymentPhase) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	order, err := h.service.InitiatePayment(c.Request.Context(), id, actorFrom(c), ph)
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"order": order})
}

func (h *Handler) VerifyAdvance(c *gin.Context) {
	h.verify(c, domain.PhaseAdvance)
}

func (h *Handler) VerifyRemaining(c *gin.Context) {
	h.verify(c, domain.PhaseRemaining)
}

func (h *Handler) verify(c *gin.Context, ph domain.PaymentPhase) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Order ID, payment ID and signature are required")
		return
	}

	b, err := h.service.VerifyPayment(c.Request.Context(), id, actorFrom(c), ph, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			// For the advance phase b carries the cancelled booking; the
			// client needs it to show the rollback.
			response.ErrorWithDetails(c, http.StatusBadRequest, "SIGNATURE_MISMATCH",
				"Payment signature verification failed", gin.H{"booking": b})
			return
		}
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) FakeAdvance(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.service.FakeAdvancePayment(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		writePaymentError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
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

func writePaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrNoOpenOrder):
		response.Error(c, http.StatusConflict, "NO_OPEN_ORDER", "No payment order is open for this booking")
	case errors.Is(err, ErrFakeDisabled):
		response.Error(c, http.StatusForbidden, "FAKE_PAYMENTS_DISABLED", "Fake payments are not enabled")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your booking")
	case errors.Is(err, domain.ErrAlreadyTerminal):
		response.Error(c, http.StatusConflict, "BOOKING_TERMINAL", "Booking is already closed")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Payment phase is not open in the current booking state")
	case errors.Is(err, domain.ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", "Booking was modified concurrently, retry")
	case errors.Is(err, gateway.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE", "Payment gateway is unavailable, retry later")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Payment operation failed")
	}
}
