package store

import (
	"context"

	"car-rental-api/internal/model"
)

func (s *Store) CreateCar(ctx context.Context, c *model.Car) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cars (id, owner_id, brand, model, year, price_per_day, location, contact_number, image_file, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		c.ID, c.OwnerID, c.Brand, c.Model, c.Year, c.PricePerDay, c.Location, c.ContactNumber, c.ImageFile, c.Status,
	)
	return err
}

const carCols = `id, owner_id, brand, model, year, price_per_day, location, contact_number, image_file, status, created_at, updated_at`

func scanCar(row interface{ Scan(...any) error }) (*model.Car, error) {
	c := &model.Car{}
	err := row.Scan(&c.ID, &c.OwnerID, &c.Brand, &c.Model, &c.Year, &c.PricePerDay,
		&c.Location, &c.ContactNumber, &c.ImageFile, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return c, nil
}

func (s *Store) CarByID(ctx context.Context, id string) (*model.Car, error) {
	return scanCar(s.pool.QueryRow(ctx,
		`SELECT `+carCols+` FROM cars WHERE id = $1`, id))
}

func (s *Store) ListCars(ctx context.Context) ([]model.Car, error) {
	return s.queryCars(ctx, `SELECT `+carCols+` FROM cars ORDER BY created_at DESC`)
}

func (s *Store) CarsByOwner(ctx context.Context, ownerID string) ([]model.Car, error) {
	return s.queryCars(ctx,
		`SELECT `+carCols+` FROM cars WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

func (s *Store) queryCars(ctx context.Context, q string, args ...any) ([]model.Car, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCar(ctx context.Context, c *model.Car) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cars
		 SET brand=$1, model=$2, year=$3, price_per_day=$4, location=$5,
		     contact_number=$6, image_file=$7, status=$8, updated_at=NOW()
		 WHERE id=$9`,
		c.Brand, c.Model, c.Year, c.PricePerDay, c.Location,
		c.ContactNumber, c.ImageFile, c.Status, c.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCar removes the car and its bookings in one transaction.
func (s *Store) DeleteCar(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE car_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
