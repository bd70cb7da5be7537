package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerly/ledgerly-api/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and sets the generated ID on the user struct.
// Only the driver's unique-constraint error is reported as ErrDuplicateEmail.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (email, password_hash, created_at) VALUES (?, ?, ?)`

	if r.db.dialect.returning {
		err := r.db.QueryRowContext(ctx, r.db.dialect.Rebind(query+` RETURNING id`),
			user.Email, user.PasswordHash, user.CreatedAt,
		).Scan(&user.ID)
		return r.insertError(err)
	}

	result, err := r.db.ExecContext(ctx, r.db.dialect.Rebind(query), user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return r.insertError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	user.ID = id
	return nil
}

func (r *UserRepository) insertError(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("db error: %w", err)
	}
}

// GetByEmail retrieves a user, including the password hash, by email address.
// The comparison is exact.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, r.db.dialect.Rebind(query), arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
