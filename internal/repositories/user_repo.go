package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/vestibule/internal/database"
	"github.com/BradenHooton/vestibule/internal/models"
	"github.com/google/uuid"
)

// UserRepository is the credential store.
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

// GetByUsername returns models.ErrNotFound when no record matches.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_hash, is_admin, created_at, updated_at
		FROM users WHERE username = $1
	`

	var user *models.User
	err := r.db.Retry(ctx, "users.get_by_username", func(ctx context.Context) error {
		var err error
		user, err = scanUserRow(r.db.Pool.QueryRow(ctx, query, username))
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	err := r.db.Retry(ctx, "users.create", func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, query,
			user.ID, user.Username, user.PasswordHash, user.IsAdmin,
			user.CreatedAt, user.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", database.MapPostgresError(err))
	}

	return user, nil
}
