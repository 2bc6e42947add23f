package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-card/internal/domain/user"
	"github.com/khoahotran/profile-card/pkg/apperror"
)

type UserRepo struct {
	mu      sync.RWMutex
	byEmail map[string]user.User
}

var _ user.Repository = (*UserRepo)(nil)

func NewUserRepo() *UserRepo {
	return &UserRepo{byEmail: make(map[string]user.User)}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, apperror.NewNotFound("user", email)
	}
	return &u, nil
}

func (r *UserRepo) Upsert(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(u.Email)
	if existing, ok := r.byEmail[key]; ok {
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	} else {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = key
	r.byEmail[key] = *u
	return nil
}
