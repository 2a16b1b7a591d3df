// Package session defines the persisted shape of a wizard session.
package session

import (
	"time"

	"github.com/advantage-shop/shop-service/internal/app/domain/cart"
)

// Record is the durable snapshot of one wizard session: the step values
// and the cart line items, enough to rebuild a live controller after a
// restart.
type Record struct {
	ID        string              `json:"id"`
	Steps     map[string][]string `json:"steps"`
	Items     []cart.LineItem     `json:"items"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// Expired reports whether the record's TTL has passed at the given time.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
