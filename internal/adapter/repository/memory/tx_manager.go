package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/bankledger/internal/usecase"
)

var (
	errForeignTransaction = errors.New("memory: transaction was not begun by this store")
	errTxFinished         = errors.New("memory: transaction already finished")
)

// op is a staged write. check runs for every op before any apply, all under
// the store write lock, so a commit is all-or-nothing.
type op struct {
	check func(s *Store) error
	apply func(s *Store)
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &Tx{store: m.store, held: make(map[string]chan struct{})}, nil
}

// Tx stages writes and holds account locks until Commit or Rollback.
type Tx struct {
	mu    sync.Mutex
	store *Store
	held  map[string]chan struct{}
	ops   []op
	done  bool
}

// Commit applies staged writes and releases held locks.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxFinished
	}
	defer t.finish()

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range t.ops {
		if o.check == nil {
			continue
		}
		if err := o.check(s); err != nil {
			return err
		}
	}
	for _, o := range t.ops {
		o.apply(s)
	}

	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return nil
	}
	t.finish()

	return nil
}

func (t *Tx) finish() {
	t.done = true
	t.ops = nil
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

func (t *Tx) lock(ctx context.Context, id string) error {
	t.mu.Lock()
	_, ok := t.held[id]
	done := t.done
	t.mu.Unlock()
	if done {
		return errTxFinished
	}
	if ok {
		return nil
	}

	l, err := t.store.acquire(ctx, id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		<-l
		return errTxFinished
	}
	t.held[id] = l

	return nil
}

func (t *Tx) stage(o op) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return errTxFinished
	}
	t.ops = append(t.ops, o)

	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok {
		return nil, errForeignTransaction
	}
	return t, nil
}
