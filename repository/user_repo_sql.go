package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"productsapi/models"
)

type SQLUserRepo struct {
	DB *sql.DB
}

func NewSQLUserRepo(db *sql.DB) *SQLUserRepo {
	return &SQLUserRepo{DB: db}
}

// CreateUser inserts a user whose password is already hashed. The email must
// not be registered yet.
func (r *SQLUserRepo) CreateUser(ctx context.Context, user *models.AppUser) error {
	user.Email = NormalizeEmail(user.Email)

	if _, err := r.GetUserByEmail(ctx, user.Email); err == nil {
		return ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if user.PasswordHash == "" {
		return errors.New("password hash cannot be empty")
	}
	if user.Role == "" {
		user.Role = models.DefaultRole
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, user.Email, user.PasswordHash, user.Name, user.Role, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		// lost a race with a concurrent registration
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "create user")
	}
	return nil
}

func (r *SQLUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.AppUser, error) {
	return r.getUser(ctx, "email = $1", NormalizeEmail(email))
}

func (r *SQLUserRepo) GetUserByID(ctx context.Context, id int64) (*models.AppUser, error) {
	return r.getUser(ctx, "id = $1", id)
}

func (r *SQLUserRepo) getUser(ctx context.Context, where string, arg any) (*models.AppUser, error) {
	user := &models.AppUser{}
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, role, created_at, updated_at
		FROM users
		WHERE `+where, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Role, &user.CreatedAt, &user.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	return user, nil
}
