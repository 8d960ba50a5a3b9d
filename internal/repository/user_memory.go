package repository

import (
	"context"
	"sync"

	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
)

// memoryUserRepository keeps records in volatile process memory, matching the
// reference deployment mode. A single RWMutex guards the map; mutations to a
// given username are therefore linearized.
type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

// NewMemoryUserRepository builds the in-memory store.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: map[string]*model.User{}}
}

func (r *memoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Username]; ok {
		return apperrors.ErrUsernameTaken
	}
	clone := *user
	r.users[user.Username] = &clone
	return nil
}

func (r *memoryUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[username]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryUserRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ProviderSubscriptionID != nil && *u.ProviderSubscriptionID == subscriptionID {
			clone := *u
			return &clone, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryUserRepository) ApplyFieldUpdates(ctx context.Context, username string, updates model.FieldUpdates) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return apperrors.ErrNotFound
	}
	if updates.Name != nil {
		u.Name = *updates.Name
	}
	if updates.Email != nil {
		u.Email = *updates.Email
	}
	if updates.SubscriptionPlan != nil {
		u.SubscriptionPlan = *updates.SubscriptionPlan
	}
	if updates.PaymentActive != nil {
		u.PaymentActive = *updates.PaymentActive
	}
	if updates.ProviderCustomerID != nil {
		u.ProviderCustomerID = updates.ProviderCustomerID
	}
	if updates.ProviderSubscriptionID != nil {
		u.ProviderSubscriptionID = updates.ProviderSubscriptionID
	}
	return nil
}

func (r *memoryUserRepository) UpdateCredentials(ctx context.Context, username, digest, salt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return apperrors.ErrNotFound
	}
	u.PasswordHash = digest
	s := salt
	u.Salt = &s
	return nil
}
