// Package order defines recorded checkout orders. Payment capture is
// handled by an external collaborator; the service records what was in the
// cart and what it cost at checkout time.
package order

import "time"

// Line is one priced line of an order.
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitMinor int64  `json:"unit_minor"`
	// Cost is the rendered per-line amount, computed before the unit
	// price is floored to whole major units.
	Cost string `json:"cost"`
}

// Order is a recorded checkout.
type Order struct {
	ID        string `json:"id" db:"id"`
	SessionID string `json:"session_id" db:"session_id"`
	Currency  string `json:"currency" db:"currency"`
	// SubtotalMajor is the cart subtotal in whole major units, summed
	// from floored unit prices.
	SubtotalMajor int64     `json:"subtotal_major" db:"subtotal_major"`
	Subtotal      string    `json:"subtotal" db:"subtotal_text"`
	Lines         []Line    `json:"lines"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
