package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "aizeeno/internal/errors"
	"aizeeno/internal/model"
)

// UserRepository is the single authoritative mapping from username to user
// record. Mutations to one username are linearized relative to each other.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error)
	// ApplyFieldUpdates merges only the whitelisted fields into the record.
	ApplyFieldUpdates(ctx context.Context, username string, updates model.FieldUpdates) error
	// UpdateCredentials replaces digest and salt atomically.
	UpdateCredentials(ctx context.Context, username, digest, salt string) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.ErrUsernameTaken
	}
	return err
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("provider_subscription_id = ?", subscriptionID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ApplyFieldUpdates(ctx context.Context, username string, updates model.FieldUpdates) error {
	values := map[string]interface{}{}
	if updates.Name != nil {
		values["name"] = *updates.Name
	}
	if updates.Email != nil {
		values["email"] = *updates.Email
	}
	if updates.SubscriptionPlan != nil {
		values["subscription_plan"] = *updates.SubscriptionPlan
	}
	if updates.PaymentActive != nil {
		values["payment_active"] = *updates.PaymentActive
	}
	if updates.ProviderCustomerID != nil {
		values["provider_customer_id"] = *updates.ProviderCustomerID
	}
	if updates.ProviderSubscriptionID != nil {
		values["provider_subscription_id"] = *updates.ProviderSubscriptionID
	}
	// Existence is checked up front: MySQL reports changed rows, not matched
	// rows, so RowsAffected cannot distinguish "missing" from an identical
	// re-apply of the same values.
	if _, err := r.FindByUsername(ctx, username); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		Updates(values).Error
}

func (r *userRepository) UpdateCredentials(ctx context.Context, username, digest, salt string) error {
	if _, err := r.FindByUsername(ctx, username); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ?", username).
		Updates(map[string]interface{}{
			"password_hash": digest,
			"salt":          salt,
		}).Error
}
