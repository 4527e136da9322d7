package repositories

import (
	"context"

	"github.com/Al-amen/exam-system/internal/models"
)

// UserRepository interface for user lookups. Users live in Casdoor, so
// this repository is read-only and does not take a transaction handle.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}
