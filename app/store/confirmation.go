package store

import (
	"context"
	"database/sql"

	"github.com/coffeeshop/account-service/app/models"
)

type ConfirmationsStore struct {
	db *sql.DB
}

const confirmationColumns = `id, email, code, try_count, resend_count, expire_time, unlock_time, resend_unlock_time`

func scanConfirmation(row interface{ Scan(...any) error }, c *models.ConfirmationCode) error {
	return row.Scan(
		&c.ID,
		&c.Email,
		&c.Code,
		&c.TryCount,
		&c.ResendCount,
		&c.ExpireTime,
		&c.UnlockTime,
		&c.ResendUnlockTime,
	)
}

func (s *ConfirmationsStore) GetByEmail(ctx context.Context, email string) (*models.ConfirmationCode, error) {
	query := `SELECT ` + confirmationColumns + ` FROM confirmation_codes WHERE email = $1`
	var c models.ConfirmationCode
	if err := scanConfirmation(s.db.QueryRowContext(ctx, query, email), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *ConfirmationsStore) Create(ctx context.Context, c *models.ConfirmationCode) error {
	query := `
	INSERT INTO confirmation_codes (email, code, try_count, resend_count, expire_time, unlock_time, resend_unlock_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
	`
	return s.db.QueryRowContext(ctx, query,
		c.Email,
		c.Code,
		c.TryCount,
		c.ResendCount,
		c.ExpireTime,
		c.UnlockTime,
		c.ResendUnlockTime,
	).Scan(&c.ID)
}

func (s *ConfirmationsStore) Update(ctx context.Context, c *models.ConfirmationCode) error {
	query := `
	UPDATE confirmation_codes
	SET code = $1, try_count = $2, resend_count = $3, expire_time = $4, unlock_time = $5, resend_unlock_time = $6
	WHERE id = $7
	`
	_, err := s.db.ExecContext(ctx, query,
		c.Code,
		c.TryCount,
		c.ResendCount,
		c.ExpireTime,
		c.UnlockTime,
		c.ResendUnlockTime,
		c.ID,
	)
	return err
}

func (s *ConfirmationsStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM confirmation_codes WHERE id = $1`, id)
	return err
}
