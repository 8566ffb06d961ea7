package store

import (
	"context"

	"car-rental-api/internal/model"
)

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash) VALUES ($1,$2,$3,$4)`,
		u.ID, u.Username, u.Email, u.PasswordHash,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

const userCols = `id, username, email, password_hash, COALESCE(image_file,''), created_at, updated_at`

func (s *Store) scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.ImageFile, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapRowErr(err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

// UsernameTaken reports whether another user already holds the name,
// compared case-insensitively. excludeID skips the user being updated.
func (s *Store) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1) AND id != $2)`,
		username, excludeID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id != $2)`,
		email, excludeID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET username=$1, email=$2, image_file=NULLIF($3,''), updated_at=NOW() WHERE id=$4`,
		u.Username, u.Email, u.ImageFile, u.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user together with every dependent row: bookings the
// user made, bookings on cars the user owns, and the cars themselves. The
// cleanup is explicit rather than delegated to FK cascades so the order stays
// obvious and testable.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM bookings
		 WHERE user_id = $1 OR car_id IN (SELECT id FROM cars WHERE owner_id = $1)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM cars WHERE owner_id = $1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}
