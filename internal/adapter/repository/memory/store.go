// Package memory is a process-local storage backend. Accounts are locked
// individually for the life of a transaction and writes become visible at
// commit, mirroring the row-lock semantics of the postgres backend.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/iho/bankledger/internal/domain"
)

// Store holds all ledger state for the memory backend.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	numbers      map[string]string // number -> account id
	names        map[string]string // owner + name -> account id
	transactions []*domain.Transaction
	users        map[string]*domain.User
	outbox       []*domain.OutboxEvent

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		numbers:  make(map[string]string),
		names:    make(map[string]string),
		users:    make(map[string]*domain.User),
		locks:    make(map[string]chan struct{}),
	}
}

func nameKey(ownerID, name string) string {
	return ownerID + "\x00" + name
}

func (s *Store) accountLock(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// acquire blocks until the account lock is free or ctx is done.
func (s *Store) acquire(ctx context.Context, id string) (chan struct{}, error) {
	l := s.accountLock(id)
	select {
	case l <- struct{}{}:
		return l, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrConcurrentUpdate, ctx.Err())
	}
}

func cloneAccount(a *domain.Account) *domain.Account {
	c := *a
	return &c
}
