package user

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// User is an account that owns profiles. Its id is the owner id carried in
// bearer tokens.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         *string   `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Upsert inserts the user or, when the email exists, replaces its name and
	// password hash. The stored id is written back to u.
	Upsert(ctx context.Context, u *User) error
}
