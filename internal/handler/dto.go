package handler

import (
	"time"

	"car-rental-api/internal/model"
)

type userPublic struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	ImageFile string `json:"image_file,omitempty"`
	ImagePath string `json:"image_path"`
}

type userPrivate struct {
	userPublic
	Email string `json:"email"`
}

func toUserPublic(u *model.User) userPublic {
	return userPublic{ID: u.ID, Username: u.Username, ImageFile: u.ImageFile, ImagePath: u.ImagePath()}
}

func toUserPrivate(u *model.User) userPrivate {
	return userPrivate{userPublic: toUserPublic(u), Email: u.Email}
}

type carResponse struct {
	ID            string  `json:"id"`
	OwnerID       string  `json:"owner_id"`
	Brand         string  `json:"brand"`
	Model         string  `json:"model"`
	Year          int     `json:"year"`
	PricePerDay   float64 `json:"price_per_day"`
	Location      string  `json:"location"`
	ContactNumber string  `json:"contact_number"`
	ImageFile     string  `json:"image_file"`
	Status        string  `json:"status"`
	ImagePath     string  `json:"image_path"`
}

func toCarResponse(c *model.Car) carResponse {
	return carResponse{
		ID:            c.ID,
		OwnerID:       c.OwnerID,
		Brand:         c.Brand,
		Model:         c.Model,
		Year:          c.Year,
		PricePerDay:   c.PricePerDay,
		Location:      c.Location,
		ContactNumber: c.ContactNumber,
		ImageFile:     c.ImageFile,
		Status:        c.Status,
		ImagePath:     c.ImagePath(),
	}
}

func toCarResponses(cars []model.Car) []carResponse {
	out := make([]carResponse, len(cars))
	for i := range cars {
		out[i] = toCarResponse(&cars[i])
	}
	return out
}

type bookingResponse struct {
	ID        string       `json:"id"`
	UserID    string       `json:"user_id"`
	CarID     string       `json:"car_id"`
	StartDate time.Time    `json:"start_date"`
	EndDate   time.Time    `json:"end_date"`
	Car       *carResponse `json:"car,omitempty"`
}

func toBookingResponse(b *model.Booking) bookingResponse {
	out := bookingResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		CarID:     b.CarID,
		StartDate: b.StartDate,
		EndDate:   b.EndDate,
	}
	if b.Car != nil {
		car := toCarResponse(b.Car)
		out.Car = &car
	}
	return out
}

func toBookingResponses(bookings []model.Booking) []bookingResponse {
	out := make([]bookingResponse, len(bookings))
	for i := range bookings {
		out[i] = toBookingResponse(&bookings[i])
	}
	return out
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
