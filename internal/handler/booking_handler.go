package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"car-rental-api/internal/event"
	"car-rental-api/internal/middleware"
	"car-rental-api/internal/model"
)

func (h *Handler) MyBookings(c *gin.Context) {
	bookings, err := h.store.BookingsByUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, toBookingResponses(bookings))
}

type bookingCreateRequest struct {
	CarID     string    `json:"car_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

// CreateBooking admits the requested range against the car's ledger and
// inserts on success. Admission and insert happen atomically in the store.
// No start<=end ordering check is performed here; the overlap predicate is
// the sole gatekeeper.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req bookingCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	b := &model.Booking{
		ID:        uuid.New().String(),
		UserID:    middleware.UserID(c),
		CarID:     req.CarID,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := h.store.CreateBooking(c.Request.Context(), b); err != nil {
		fail(c, err, "Car not found")
		return
	}

	created, err := h.store.BookingByID(c.Request.Context(), b.ID)
	if err != nil {
		fail(c, err, "Booking not found")
		return
	}

	h.events.Publish(c.Request.Context(), event.BookingCreated, gin.H{
		"booking_id": b.ID, "user_id": b.UserID, "car_id": b.CarID,
		"start": b.StartDate.Unix(), "end": b.EndDate.Unix(),
	})
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *Handler) CancelBooking(c *gin.Context) {
	if h.removeBooking(c, event.BookingCancelled, "You cannot cancel this booking") {
		c.Status(http.StatusNoContent)
	}
}

// CompleteBooking has the same effect as cancellation: the row is deleted and
// no completed record is retained. Only the endpoint and the emitted event
// kind differ.
func (h *Handler) CompleteBooking(c *gin.Context) {
	if h.removeBooking(c, event.BookingCompleted, "You cannot complete this booking") {
		c.Status(http.StatusOK)
	}
}

func (h *Handler) removeBooking(c *gin.Context, eventKey, forbiddenMsg string) bool {
	b, err := h.store.BookingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Booking not found")
		return false
	}
	if b.UserID != middleware.UserID(c) {
		forbidden(c, forbiddenMsg)
		return false
	}

	if err := h.store.DeleteBooking(c.Request.Context(), b.ID); err != nil {
		fail(c, err, "Booking not found")
		return false
	}

	h.events.Publish(c.Request.Context(), eventKey, gin.H{
		"booking_id": b.ID, "user_id": b.UserID, "car_id": b.CarID,
	})
	return true
}
