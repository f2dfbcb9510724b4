package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ UserRepository = (*UserRepositoryImpl)(nil)

// UserRepositoryImpl handles database operations for users
type UserRepositoryImpl struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) GetUser(userID string) (*User, error) {
	var user User
	err := r.db.QueryRow(`
		SELECT id, email, created_at
		FROM users
		WHERE id = ?
	`, userID).Scan(&user.ID, &user.Email, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// EnsureUser returns the user with the given email, creating one when
// none exists.
func (r *UserRepositoryImpl) EnsureUser(email string) (*User, error) {
	var user User
	err := r.db.QueryRow(`
		SELECT id, email, created_at
		FROM users
		WHERE email = ?
	`, email).Scan(&user.ID, &user.Email, &user.CreatedAt)

	if err == nil {
		return &user, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.db.Exec(`
		INSERT INTO users (id, email, created_at)
		VALUES (?, ?, ?)
	`, user.ID, user.Email, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) GetUserCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get user count: %w", err)
	}
	return count, nil
}
