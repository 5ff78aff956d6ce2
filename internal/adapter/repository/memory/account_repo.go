package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bankledger/internal/domain"
	"github.com/iho/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// Create stages a new account. Uniqueness is checked again at commit.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	acc := cloneAccount(account)
	check := func(s *Store) error {
		if _, ok := s.numbers[acc.Number]; ok {
			return domain.ErrAccountNumberTaken
		}
		if _, ok := s.names[nameKey(acc.OwnerID, acc.Name)]; ok {
			return domain.ErrAccountNameTaken
		}
		return nil
	}

	r.store.mu.RLock()
	err = check(r.store)
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	return t.stage(op{
		check: check,
		apply: func(s *Store) {
			s.accounts[acc.ID] = acc
			s.numbers[acc.Number] = acc.ID
			s.names[nameKey(acc.OwnerID, acc.Name)] = acc.ID
		},
	})
}

// GetByIDAndOwner retrieves an account owned by ownerID.
func (r *AccountRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[id]
	if !ok || acc.OwnerID != ownerID {
		return nil, domain.ErrAccountNotFound
	}

	return cloneAccount(acc), nil
}

// GetByIDsForUpdate locks the given accounts in ascending id order.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ownerID string, ids []string) ([]*domain.Account, error) {
	t, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	for _, id := range sorted {
		if err := t.lock(ctx, id); err != nil {
			return nil, err
		}
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(sorted))
	for _, id := range sorted {
		acc, ok := r.store.accounts[id]
		if !ok || acc.OwnerID != ownerID {
			continue
		}
		accounts = append(accounts, cloneAccount(acc))
	}

	return accounts, nil
}

// UpdateBalance stages a balance change.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	return t.stage(op{
		check: func(s *Store) error {
			if _, ok := s.accounts[id]; !ok {
				return domain.ErrAccountNotFound
			}
			return nil
		},
		apply: func(s *Store) {
			acc := s.accounts[id]
			acc.Balance = balance
			acc.Version++
			acc.UpdatedAt = updatedAt
		},
	})
}

// UpdateName renames an owned account outside any transaction.
func (r *AccountRepository) UpdateName(ctx context.Context, id, ownerID, name string, updatedAt time.Time) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	acc, ok := r.store.accounts[id]
	if !ok || acc.OwnerID != ownerID {
		return nil, domain.ErrAccountNotFound
	}

	if acc.Name != name {
		key := nameKey(ownerID, name)
		if _, taken := r.store.names[key]; taken {
			return nil, domain.ErrAccountNameTaken
		}
		delete(r.store.names, nameKey(ownerID, acc.Name))
		r.store.names[key] = id
	}

	acc.Name = name
	acc.UpdatedAt = updatedAt

	return cloneAccount(acc), nil
}

// Delete stages removal of an owned account.
func (r *AccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id, ownerID string) error {
	t, err := asTx(tx)
	if err != nil {
		return err
	}

	check := func(s *Store) error {
		acc, ok := s.accounts[id]
		if !ok || acc.OwnerID != ownerID {
			return domain.ErrAccountNotFound
		}
		return nil
	}

	r.store.mu.RLock()
	err = check(r.store)
	r.store.mu.RUnlock()
	if err != nil {
		return err
	}

	return t.stage(op{
		check: check,
		apply: func(s *Store) {
			acc := s.accounts[id]
			delete(s.numbers, acc.Number)
			delete(s.names, nameKey(acc.OwnerID, acc.Name))
			delete(s.accounts, id)
		},
	})
}

// Search lists owned accounts by case-insensitive name or number fragment,
// oldest first.
func (r *AccountRepository) Search(ctx context.Context, filter usecase.AccountFilter) ([]*domain.Account, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	name := strings.ToLower(filter.Name)

	var matched []*domain.Account
	for _, acc := range r.store.accounts {
		if acc.OwnerID != filter.OwnerID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(acc.Name), name) {
			continue
		}
		if filter.Number != "" && !strings.Contains(acc.Number, filter.Number) {
			continue
		}
		matched = append(matched, acc)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := int64(len(matched))

	start := min(filter.Offset, len(matched))
	end := len(matched)
	if filter.Limit > 0 {
		end = min(start+filter.Limit, len(matched))
	}

	page := make([]*domain.Account, 0, end-start)
	for _, acc := range matched[start:end] {
		page = append(page, cloneAccount(acc))
	}

	return page, total, nil
}
