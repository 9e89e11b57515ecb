package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/flashy/pkg/models"
)

const userColumns = "id, username, credential, registered_on"

// UserRepository handles database operations for users
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername returns a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// GetAll returns all users
func (r *UserRepository) GetAll(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := sqlx.SelectContext(ctx, r.db, &users, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, newPersistenceError("list", "users", err)
	}
	return users, nil
}

// Create inserts a new user and sets its ID. An existing username yields
// models.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.RegisteredOn.IsZero() {
		user.RegisteredOn = time.Now()
	}
	query := r.db.Rebind(`
		INSERT INTO users (username, credential, registered_on)
		VALUES (?, ?, ?)
		ON CONFLICT (username) DO NOTHING
		RETURNING id
	`)
	err := sqlx.GetContext(ctx, r.db, &user.ID, query, user.Username, user.Credential, user.RegisteredOn)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: user %q", models.ErrDuplicate, user.Username)
	}
	if err != nil {
		return newPersistenceError("create", "user", err)
	}
	return nil
}

// GetOrCreate returns the user with the given username, registering it with
// credential when it does not exist yet. created reports a registration.
func (r *UserRepository) GetOrCreate(ctx context.Context, username, credential string) (user *models.User, created bool, err error) {
	user, err = r.GetByUsername(ctx, username)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, false, err
	}

	user = &models.User{Username: username, Credential: credential, RegisteredOn: time.Now()}
	if err := r.Create(ctx, user); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			// registered between the lookup and the insert
			user, err = r.GetByUsername(ctx, username)
			return user, false, err
		}
		return nil, false, err
	}
	return user, true, nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := sqlx.GetContext(ctx, r.db, &user, r.db.Rebind(query), arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", models.ErrUserNotFound, arg)
		}
		return nil, newPersistenceError("get", "user", err)
	}
	return &user, nil
}
