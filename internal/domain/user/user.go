package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested user does not exist.
var ErrNotFound = errors.New("user not found")

// Role identifies what a user is allowed to do on the platform.
type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleShopOwner Role = "SHOP_OWNER"
	RoleAdmin     Role = "ADMIN"
)

// Subscription is a customer's paid subscription tier. The tier determines
// the flat discount applied as the final step of item pricing.
type Subscription string

const (
	// SubscriptionNone marks the absence of a customer context, e.g. for
	// anonymous price estimates. No subscription discount applies.
	SubscriptionNone Subscription = ""

	SubscriptionFree     Subscription = "FREE"
	SubscriptionStudent  Subscription = "STUDENT"
	SubscriptionBusiness Subscription = "BUSINESS"
)

// User is a platform account: either a customer placing orders or a shop
// owner fulfilling them.
type User struct {
	ID           string
	Email        string
	Role         Role
	Subscription Subscription
}

// Repository defines read operations for the user directory.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
