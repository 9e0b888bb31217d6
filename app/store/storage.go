package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/coffeeshop/account-service/app/models"
)

type Storage struct {
	Users interface {
		GetByID(ctx context.Context, id int64) (*models.User, error)
		GetByEmail(ctx context.Context, email string) (*models.User, error)
		Create(ctx context.Context, user *models.User) error
		List(ctx context.Context, limit, offset int) ([]models.User, error)
		Count(ctx context.Context) (int, error)
		Update(ctx context.Context, user *models.User) error
		Delete(ctx context.Context, id int64) error
		DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) ([]int64, error)
	}
	Confirmations interface {
		GetByEmail(ctx context.Context, email string) (*models.ConfirmationCode, error)
		Create(ctx context.Context, code *models.ConfirmationCode) error
		Update(ctx context.Context, code *models.ConfirmationCode) error
		Delete(ctx context.Context, id int64) error
	}
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Users:         &UsersStore{db: db},
		Confirmations: &ConfirmationsStore{db: db},
	}
}
