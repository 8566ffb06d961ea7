package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"car-rental-api/internal/config"
	"car-rental-api/internal/event"
	"car-rental-api/internal/media"
	"car-rental-api/internal/middleware"
	"car-rental-api/internal/store"
)

type Handler struct {
	store  *store.Store
	media  *media.Store
	events *event.Publisher
	cfg    config.App
}

func New(st *store.Store, m *media.Store, ev *event.Publisher, cfg config.App) *Handler {
	return &Handler{store: st, media: m, events: ev, cfg: cfg}
}

// Router wires every route. Credential endpoints sit behind the rate limiter,
// everything mutating behind the auth middleware.
func (h *Handler) Router() *gin.Engine {
	r := gin.Default()

	r.Static("/media", h.media.Root())

	rl := middleware.NewRateLimiter(h.cfg.AuthRateLimitRPS, h.cfg.AuthRateBurst)
	authed := middleware.Auth(h.cfg.JWTSecret)

	api := r.Group("/api")
	{
		users := api.Group("/users")
		users.POST("", middleware.RateLimit(rl), h.Register)
		users.POST("/token", middleware.RateLimit(rl), h.Login)
		users.GET("/me", authed, h.GetMe)
		users.POST("/me/avatar", authed, h.UploadAvatar)
		users.GET("/:id", h.GetUser)
		users.PATCH("/:id", authed, h.UpdateUser)
		users.DELETE("/:id", authed, h.DeleteUser)

		api.POST("/auth/refresh", h.Refresh)

		cars := api.Group("/cars")
		cars.POST("", authed, h.CreateCar)
		cars.GET("", h.ListCars)
		cars.GET("/my", authed, h.MyCars)
		cars.GET("/:id", h.GetCar)
		cars.GET("/:id/availability", h.CarAvailability)
		cars.PUT("/:id", authed, h.UpdateCar)
		cars.DELETE("/:id", authed, h.DeleteCar)

		bookings := api.Group("/bookings", authed)
		bookings.GET("/my", h.MyBookings)
		bookings.POST("", h.CreateBooking)
		bookings.DELETE("/:id", h.CancelBooking)
		bookings.POST("/:id/complete", h.CompleteBooking)
	}

	return r
}

// fail maps store errors to their one deterministic status.
func fail(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"detail": notFoundMsg})
	case errors.Is(err, store.ErrOverlap):
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Car is already booked for the selected dates"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"detail": "already exists"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "internal error"})
	}
}

func forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, gin.H{"detail": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": msg})
}
