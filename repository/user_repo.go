package repository

import (
	"context"
	"strings"

	"productsapi/models"
)

// UserRepository defines the interface for user operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.AppUser) error
	GetUserByEmail(ctx context.Context, email string) (*models.AppUser, error)
	GetUserByID(ctx context.Context, id int64) (*models.AppUser, error)
}

// NormalizeEmail is the stored form of an address; emails are unique
// regardless of case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
