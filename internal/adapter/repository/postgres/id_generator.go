package postgres

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/iho/bankledger/internal/domain"
)

// UUIDGenerator generates random UUIDs for entity ids.
type UUIDGenerator struct{}

// NewUUIDGenerator creates a new UUIDGenerator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// Generate generates a new UUID.
func (g *UUIDGenerator) Generate() string {
	return uuid.NewString()
}

// ULIDGenerator generates ULID-based IDs. They sort by creation time, which
// keeps outbox events in insertion order.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// AccountNumberGenerator draws uniformly random account numbers.
type AccountNumberGenerator struct{}

// NewAccountNumberGenerator creates a new AccountNumberGenerator.
func NewAccountNumberGenerator() *AccountNumberGenerator {
	return &AccountNumberGenerator{}
}

var accountNumberSpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(domain.AccountNumberLength), nil)

// Generate returns a zero-padded number of domain.AccountNumberLength digits.
func (g *AccountNumberGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, accountNumberSpace)
	if err != nil {
		return "", err
	}

	s := n.String()
	for len(s) < domain.AccountNumberLength {
		s = "0" + s
	}

	return s, nil
}
