// Package catalog defines the read-only product catalog consumed by the
// product selector and checkout flows.
package catalog

import "time"

// Price is a product price in minor currency units (cents).
type Price struct {
	Value    int64  `json:"value" db:"price_minor"`
	Currency string `json:"currency" db:"currency"`
}

// Product is one purchasable subscription product.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     Price     `json:"price"`
	CreatedAt time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Provider exposes synchronous product lookup. The selector resolves
// synthesized product ids against it on every render pass.
type Provider interface {
	Product(id string) (Product, bool)
}

// Index is an immutable in-memory Provider built from a product list.
type Index struct {
	products map[string]Product
}

// NewIndex builds an Index from the given products. Later duplicates of the
// same id win.
func NewIndex(products []Product) *Index {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &Index{products: m}
}

// Product returns the product with the given id.
func (i *Index) Product(id string) (Product, bool) {
	p, ok := i.products[id]
	return p, ok
}

// Len returns the number of indexed products.
func (i *Index) Len() int {
	return len(i.products)
}
