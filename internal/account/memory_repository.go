package account

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
	byOwner  map[string]string
}

// NewMemoryRepository builds an in-memory account repository.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account), byOwner: make(map[string]string)}
}

func (r *memoryRepository) Create(_ context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byOwner[a.OwnerID]; exists {
		return ErrExists
	}
	r.accounts[a.ID] = a
	r.byOwner[a.OwnerID] = a.ID
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *memoryRepository) GetByOwner(ctx context.Context, ownerID string) (Account, error) {
	r.mu.RLock()
	id, ok := r.byOwner[ownerID]
	r.mu.RUnlock()
	if !ok {
		return Account{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *memoryRepository) List(_ context.Context) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, a Account) error {
	return r.update(a.ID, func(cur *Account) {
		cur.FirstName, cur.MiddleName, cur.LastName = a.FirstName, a.MiddleName, a.LastName
		cur.Phone, cur.Country, cur.DateOfBirth = a.Phone, a.Country, a.DateOfBirth
		cur.Gender, cur.Address, cur.City = a.Gender, a.Address, a.City
	})
}

func (r *memoryRepository) SetVerified(_ context.Context, id string, verified bool) error {
	return r.update(id, func(cur *Account) { cur.KYCVerified = verified })
}

func (r *memoryRepository) TouchLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(cur *Account) { cur.LastLogin = &at })
}

func (r *memoryRepository) update(id string, fn func(*Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return ErrNotFound
	}
	fn(&a)
	r.accounts[id] = a
	return nil
}
