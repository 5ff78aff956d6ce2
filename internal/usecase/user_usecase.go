package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/iho/bankledger/internal/domain"
)

// UserUseCase handles user provisioning and identity resolution.
type UserUseCase struct {
	userRepo UserRepository
	idGen    IDGenerator
	cache    Cache
	cacheTTL time.Duration
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(userRepo UserRepository, idGen IDGenerator) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
		idGen:    idGen,
		cacheTTL: DefaultUserCacheTTL,
	}
}

// WithCache enables caching of resolved users.
func (uc *UserUseCase) WithCache(cache Cache, ttl time.Duration) *UserUseCase {
	uc.cache = cache
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// RegisterUserInput represents input for provisioning a user
type RegisterUserInput struct {
	Username string
	Email    string
}

// Register stores the authenticated caller as a user.
func (uc *UserUseCase) Register(ctx context.Context, input RegisterUserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email != "" {
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uc.idGen.Generate(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// ResolveUser returns the stored user for username or domain.ErrUserNotFound.
func (uc *UserUseCase) ResolveUser(ctx context.Context, username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, domain.ErrUserNotFound
	}

	if user, ok := uc.cached(ctx, username); ok {
		return user, nil
	}

	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	uc.store(ctx, user)

	return user, nil
}

type cachedUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userCacheKey(username string) string {
	return "user:" + username
}

func (uc *UserUseCase) cached(ctx context.Context, username string) (*domain.User, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, userCacheKey(username))
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Ctx(ctx).Warn().Err(err).Str("username", username).Msg("user cache read failed")
		}
		return nil, false
	}

	var entry cachedUser
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	return &domain.User{
		ID:        entry.ID,
		Username:  entry.Username,
		Email:     entry.Email,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}, true
}

func (uc *UserUseCase) store(ctx context.Context, user *domain.User) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(cachedUser{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, userCacheKey(user.Username), data, uc.cacheTTL); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("username", user.Username).Msg("user cache write failed")
	}
}
