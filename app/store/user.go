package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/coffeeshop/account-service/app/models"
)

type UsersStore struct {
	db *sql.DB
}

const userColumns = `id, email, first_name, last_name, password_hash, role, is_verified, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, user *models.User) error {
	return row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.Role,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
}

func (s *UsersStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := scanUser(s.db.QueryRowContext(ctx, query, id), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	var user models.User
	if err := scanUser(s.db.QueryRowContext(ctx, query, email), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) Create(ctx context.Context, user *models.User) error {
	query := `
	INSERT INTO users (email, first_name, last_name, password_hash, role, is_verified)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at, updated_at
	`

	return s.db.QueryRowContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

// List returns one page of users in primary-key order.
func (s *UsersStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *UsersStore) Count(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total)
	return total, err
}

func (s *UsersStore) Update(ctx context.Context, user *models.User) error {
	query := `
	UPDATE users
	SET first_name = $1, last_name = $2, password_hash = $3, role = $4, is_verified = $5, updated_at = now()
	WHERE id = $6
	RETURNING updated_at
	`
	return s.db.QueryRowContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.Role,
		user.IsVerified,
		user.ID,
	).Scan(&user.UpdatedAt)
}

func (s *UsersStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// DeleteUnverifiedBefore hard-deletes unverified users created before cutoff
// and returns the deleted ids. Used by the periodic sweep.
func (s *UsersStore) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]int64, error) {
	query := `DELETE FROM users WHERE is_verified = FALSE AND created_at < $1 RETURNING id`
	rows, err := s.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
