package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"car-rental-api/internal/booking"
	"car-rental-api/internal/media"
	"car-rental-api/internal/middleware"
	"car-rental-api/internal/model"
)

type carCreateRequest struct {
	Brand         string  `form:"brand" binding:"required,max=50"`
	Model         string  `form:"model" binding:"required,max=50"`
	Year          int     `form:"year" binding:"required,gte=2000"`
	PricePerDay   float64 `form:"price_per_day" binding:"required,gt=0"`
	Location      string  `form:"location" binding:"required,max=100"`
	ContactNumber string  `form:"contact_number" binding:"required,max=20"`
}

func (h *Handler) CreateCar(c *gin.Context) {
	var req carCreateRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Year > time.Now().Year()+1 {
		badRequest(c, "year is in the future")
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file required")
		return
	}

	name, err := h.media.Save(media.CarImages, fh)
	if err != nil {
		fail(c, err, "")
		return
	}

	car := &model.Car{
		ID:            uuid.New().String(),
		OwnerID:       middleware.UserID(c),
		Brand:         req.Brand,
		Model:         req.Model,
		Year:          req.Year,
		PricePerDay:   req.PricePerDay,
		Location:      req.Location,
		ContactNumber: req.ContactNumber,
		ImageFile:     name,
		Status:        "available",
	}
	if err := h.store.CreateCar(c.Request.Context(), car); err != nil {
		_ = h.media.Remove(media.CarImages, name)
		fail(c, err, "")
		return
	}
	c.JSON(http.StatusCreated, toCarResponse(car))
}

func (h *Handler) ListCars(c *gin.Context) {
	cars, err := h.store.ListCars(c.Request.Context())
	if err != nil {
		fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, toCarResponses(cars))
}

func (h *Handler) MyCars(c *gin.Context) {
	cars, err := h.store.CarsByOwner(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, toCarResponses(cars))
}

func (h *Handler) GetCar(c *gin.Context) {
	car, err := h.store.CarByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Car not found")
		return
	}
	bookings, err := h.store.BookingsByCar(c.Request.Context(), car.ID)
	if err != nil {
		fail(c, err, "")
		return
	}

	resp := struct {
		carResponse
		Bookings []bookingResponse `json:"bookings"`
	}{toCarResponse(car), toBookingResponses(bookings)}
	c.JSON(http.StatusOK, resp)
}

// CarAvailability probes whether a date range is free without creating
// anything. Same inclusive-overlap semantics as booking admission.
func (h *Handler) CarAvailability(c *gin.Context) {
	start, err1 := time.Parse(time.RFC3339, c.Query("start"))
	end, err2 := time.Parse(time.RFC3339, c.Query("end"))
	if err1 != nil || err2 != nil {
		badRequest(c, "start and end must be RFC3339 timestamps")
		return
	}

	car, err := h.store.CarByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Car not found")
		return
	}
	existing, err := h.store.BookingsByCar(c.Request.Context(), car.ID)
	if err != nil {
		fail(c, err, "")
		return
	}

	if conflict, found := booking.FirstConflict(existing, start, end); found {
		c.JSON(http.StatusOK, gin.H{"available": false, "conflict": toBookingResponse(conflict)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true})
}

type carUpdateRequest struct {
	Brand         *string  `json:"brand" binding:"omitempty,min=1,max=50"`
	Model         *string  `json:"model" binding:"omitempty,min=1,max=50"`
	Year          *int     `json:"year" binding:"omitempty,gte=2000"`
	PricePerDay   *float64 `json:"price_per_day" binding:"omitempty,gt=0"`
	Location      *string  `json:"location" binding:"omitempty,min=1,max=100"`
	ContactNumber *string  `json:"contact_number" binding:"omitempty,min=1,max=20"`
	Status        *string  `json:"status" binding:"omitempty,min=1,max=20"`
}

func (h *Handler) UpdateCar(c *gin.Context) {
	car, err := h.store.CarByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Car not found")
		return
	}
	if car.OwnerID != middleware.UserID(c) {
		forbidden(c, "You cannot update this car")
		return
	}

	var req carUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if req.Brand != nil {
		car.Brand = *req.Brand
	}
	if req.Model != nil {
		car.Model = *req.Model
	}
	if req.Year != nil {
		car.Year = *req.Year
	}
	if req.PricePerDay != nil {
		car.PricePerDay = *req.PricePerDay
	}
	if req.Location != nil {
		car.Location = *req.Location
	}
	if req.ContactNumber != nil {
		car.ContactNumber = *req.ContactNumber
	}
	if req.Status != nil {
		car.Status = *req.Status
	}

	if err := h.store.UpdateCar(c.Request.Context(), car); err != nil {
		fail(c, err, "Car not found")
		return
	}
	c.JSON(http.StatusOK, toCarResponse(car))
}

func (h *Handler) DeleteCar(c *gin.Context) {
	car, err := h.store.CarByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "Car not found")
		return
	}
	if car.OwnerID != middleware.UserID(c) {
		forbidden(c, "You cannot delete this car")
		return
	}

	if err := h.store.DeleteCar(c.Request.Context(), car.ID); err != nil {
		fail(c, err, "Car not found")
		return
	}
	_ = h.media.Remove(media.CarImages, car.ImageFile)
	c.Status(http.StatusNoContent)
}
