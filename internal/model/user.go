package model

import (
	"time"
)

// User represents an account in the system, keyed by username.
// Secret fields are never serialized.
type User struct {
	Username               string    `json:"username" gorm:"primaryKey;size:255"`
	PasswordHash           string    `json:"-" gorm:"size:255;not null"`
	Salt                   *string   `json:"-" gorm:"size:64"` // nil for legacy records
	Name                   string    `json:"name" gorm:"size:255"`
	Email                  string    `json:"email" gorm:"size:255;index"`
	SubscriptionPlan       Plan      `json:"subscription" gorm:"type:varchar(20);not null;default:'free'"`
	PaymentActive          bool      `json:"payment" gorm:"default:false"`
	ProviderCustomerID     *string   `json:"stripe_customer_id" gorm:"size:255"`
	ProviderSubscriptionID *string   `json:"stripe_subscription_id" gorm:"size:255;index"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// UserView is the sanitized representation returned to callers after
// authentication. It carries no credential material.
type UserView struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// View returns the sanitized representation of the user.
func (u *User) View() UserView {
	return UserView{
		Username: u.Username,
		Name:     u.Name,
		Email:    u.Email,
	}
}

// Legacy reports whether the record predates salted hashing.
func (u *User) Legacy() bool {
	return u.Salt == nil || *u.Salt == ""
}

// SubscriptionView is the subscription status surface for a user.
type SubscriptionView struct {
	Username               string  `json:"username"`
	SubscriptionPlan       Plan    `json:"subscription"`
	PaymentActive          bool    `json:"payment"`
	ProviderCustomerID     *string `json:"stripe_customer_id"`
	ProviderSubscriptionID *string `json:"stripe_subscription_id"`
}

// SubscriptionStatus returns the subscription status surface of the user.
func (u *User) SubscriptionStatus() SubscriptionView {
	return SubscriptionView{
		Username:               u.Username,
		SubscriptionPlan:       u.SubscriptionPlan,
		PaymentActive:          u.PaymentActive,
		ProviderCustomerID:     u.ProviderCustomerID,
		ProviderSubscriptionID: u.ProviderSubscriptionID,
	}
}

// FieldUpdates is a partial update of the mutable user fields. Nil pointers
// leave the stored value untouched.
type FieldUpdates struct {
	Name                   *string
	Email                  *string
	SubscriptionPlan       *Plan
	PaymentActive          *bool
	ProviderCustomerID     *string
	ProviderSubscriptionID *string
}

// Empty reports whether the update would touch no field.
func (f FieldUpdates) Empty() bool {
	return f.Name == nil && f.Email == nil && f.SubscriptionPlan == nil &&
		f.PaymentActive == nil && f.ProviderCustomerID == nil && f.ProviderSubscriptionID == nil
}
