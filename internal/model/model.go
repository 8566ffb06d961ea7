package model

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	ImageFile    string // avatar filename under media/profile_pics, may be empty
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ImagePath is the public URL of the avatar, falling back to the bundled default.
func (u *User) ImagePath() string {
	if u.ImageFile != "" {
		return "/media/profile_pics/" + u.ImageFile
	}
	return "/static/profile_pics/default.jpg"
}

type Car struct {
	ID            string
	OwnerID       string
	Brand         string
	Model         string
	Year          int
	PricePerDay   float64
	Location      string
	ContactNumber string
	ImageFile     string
	// Status is informational only. Availability is decided by the booking
	// overlap check, never by this label.
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Car) ImagePath() string {
	return "/media/car_images/" + c.ImageFile
}

type Booking struct {
	ID        string
	UserID    string
	CarID     string
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	Car       *Car // snapshot, populated on joined reads
}
