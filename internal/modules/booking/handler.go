package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"jaladhar/internal/domain"
	"jaladhar/internal/modules/payment"
	"jaladhar/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// advanceInitiator opens the phase-1 gateway order right after creation so
// the client gets booking and checkout in one round trip.
type advanceInitiator interface {
	InitiatePayment(ctx context.Context, bookingID int64, actor domain.Actor, ph domain.PaymentPhase) (*payment.OrderDetails, error)
}

type Handler struct {
	service  *Service
	payments advanceInitiator
}

func NewHandler(service *Service, payments advanceInitiator) *Handler {
	return &Handler{service: service, payments: payments}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/me", h.GetMyBookings)
	rg.GET("/bookings/:id", h.GetBooking)
	rg.PATCH("/bookings/:id/cancel", h.CancelBooking)
}

func (h *Handler) RegisterVendorRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings", h.GetVendorBookings)
	rg.PATCH("/bookings/:id/accept", h.AcceptBooking)
	rg.PATCH("/bookings/:id/reject", h.RejectBooking)
	rg.PATCH("/bookings/:id/visit", h.RecordVisit)
}

func (h *Handler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	req.UserID = c.GetInt64("user_id")

	b, err := h.service.CreateBooking(c.Request.Context(), req)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	order, err := h.payments.InitiatePayment(c.Request.Context(), b.ID, actorFrom(c), domain.PhaseAdvance)
	if err != nil {
		// The booking exists and is resumable; surface the order failure
		// so the client can re-initiate.
		response.ErrorWithDetails(c, http.StatusBadGateway, "GATEWAY_UNAVAILABLE",
			"Booking created but the payment order could not be opened", gin.H{"booking_id": b.ID})
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"booking":       b,
		"advance_order": order,
	})
}

func (h *Handler) GetMyBookings(c *gin.Context) {
	userID := c.GetInt64("user_id")

	active, err := h.service.GetActiveBooking(c.Request.Context(), userID)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	history, err := h.service.GetMyBookings(c.Request.Context(), userID, limit, offset)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"active":   active,
		"bookings": history,
	})
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeBookingError(c, err)
		return
	}

	userID := c.GetInt64("user_id")
	role := c.GetString("role")
	if role != string(domain.RoleAdmin) && b.UserID != userID && b.VendorID != userID {
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not your booking")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Cancellation reason is required")
		return
	}

	b, err := h.service.CancelBooking(c.Request.Context(), id, actorFrom(c), req.Reason)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) RejectBooking(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	var req CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Rejection reason is required")
		return
	}

	b, err := h.service.RejectBooking(c.Request.Context(), id, actorFrom(c), req.Reason)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) AcceptBooking(c *gin.Context) {
	h.vendorTransition(c, domain.EventVendorAccepted)
}

func (h *Handler) RecordVisit(c *gin.Context) {
	h.vendorTransition(c, domain.EventVisitRecorded)
}

func (h *Handler) vendorTransition(c *gin.Context, ev domain.LifecycleEvent) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	b, err := h.service.Transition(c.Request.Context(), id, ev, actorFrom(c), "", nil)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"booking": b})
}

func (h *Handler) GetVendorBookings(c *gin.Context) {
	vendorID := c.GetInt64("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.service.GetVendorBookings(c.Request.Context(), vendorID, limit, offset)
	if err != nil {
		writeBookingError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"bookings": list})
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

func writeBookingError(c *gin.Context, err error) {
	var active *domain.ActiveBookingError
	switch {
	case errors.As(err, &active):
		response.ErrorWithDetails(c, http.StatusConflict, "ACTIVE_BOOKING_EXISTS",
			"You already have an active booking", gin.H{"booking_id": active.BookingID})
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid booking data")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not allowed for this booking")
	case errors.Is(err, domain.ErrAlreadyTerminal):
		response.Error(c, http.StatusConflict, "BOOKING_TERMINAL", "Booking is already closed")
	case errors.Is(err, domain.ErrInvalidTransition):
		response.Error(c, http.StatusConflict, "INVALID_TRANSITION", "Event is not valid for the current booking state")
	case errors.Is(err, domain.ErrConflict):
		response.Error(c, http.StatusConflict, "CONFLICT", "Booking was modified concurrently, retry")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Operation failed")
	}
}
