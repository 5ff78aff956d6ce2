package memory

import (
	"context"

	"github.com/iho/bankledger/internal/domain"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	store *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// Create stores a user with a unique username.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.users[user.Username]; ok {
		return domain.ErrUserAlreadyExists
	}

	u := *user
	r.store.users[user.Username] = &u

	return nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	u, ok := r.store.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	c := *u
	return &c, nil
}
