package store

import (
	"context"

	"car-rental-api/internal/model"
)

// CreateBooking admits and inserts a booking as one atomic unit. The
// transaction takes a per-car advisory lock before the overlap check, so two
// concurrent requests for the same car are serialized and exactly one of a
// conflicting pair can win. Returns ErrNotFound if the car does not exist and
// ErrOverlap if the range touches an existing booking (boundaries inclusive).
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, b.CarID); err != nil {
		return err
	}

	var carExists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM cars WHERE id = $1)`, b.CarID,
	).Scan(&carExists); err != nil {
		return err
	}
	if !carExists {
		return ErrNotFound
	}

	// inclusive overlap: s1 <= e2 AND e1 >= s2, shared endpoints conflict
	var conflict bool
	if err := tx.QueryRow(
		ctx,
		`SELECT EXISTS(
			SELECT 1 FROM bookings
			WHERE car_id = $1 AND start_date <= $3 AND end_date >= $2
		)`,
		b.CarID, b.StartDate, b.EndDate,
	).Scan(&conflict); err != nil {
		return err
	}
	if conflict {
		return ErrOverlap
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO bookings (id, user_id, car_id, start_date, end_date)
		 VALUES ($1,$2,$3,$4,$5) RETURNING created_at`,
		b.ID, b.UserID, b.CarID, b.StartDate, b.EndDate,
	).Scan(&b.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const bookingCols = `b.id, b.user_id, b.car_id, b.start_date, b.end_date, b.created_at`

const bookingWithCarCols = bookingCols + `,
	c.id, c.owner_id, c.brand, c.model, c.year, c.price_per_day,
	c.location, c.contact_number, c.image_file, c.status, c.created_at, c.updated_at`

func scanBooking(row interface{ Scan(...any) error }, withCar bool) (*model.Booking, error) {
	b := &model.Booking{}
	dest := []any{&b.ID, &b.UserID, &b.CarID, &b.StartDate, &b.EndDate, &b.CreatedAt}
	if withCar {
		b.Car = &model.Car{}
		c := b.Car
		dest = append(dest, &c.ID, &c.OwnerID, &c.Brand, &c.Model, &c.Year, &c.PricePerDay,
			&c.Location, &c.ContactNumber, &c.ImageFile, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, mapRowErr(err)
	}
	return b, nil
}

func (s *Store) BookingByID(ctx context.Context, id string) (*model.Booking, error) {
	return scanBooking(s.pool.QueryRow(ctx,
		`SELECT `+bookingWithCarCols+`
		 FROM bookings b JOIN cars c ON c.id = b.car_id
		 WHERE b.id = $1`, id), true)
}

// BookingsByUser returns the caller's bookings with car snapshots, newest
// start date first.
func (s *Store) BookingsByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingWithCarCols+`
		 FROM bookings b JOIN cars c ON c.id = b.car_id
		 WHERE b.user_id = $1
		 ORDER BY b.start_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows, true)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// BookingsByCar lists the ledger entries for one car, earliest first.
func (s *Store) BookingsByCar(ctx context.Context, carID string) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+bookingCols+`
		 FROM bookings b
		 WHERE b.car_id = $1
		 ORDER BY b.start_date`, carID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows, false)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
