package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultUserCacheTTL is how long resolved users stay cached
	DefaultUserCacheTTL = 5 * time.Minute

	// maxAccountNumberAttempts bounds regeneration on account number collisions
	maxAccountNumberAttempts = 5
)
