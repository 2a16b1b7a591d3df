// Package storage declares the persistence interfaces consumed by the
// shop services, with in-memory, PostgreSQL and Redis implementations in
// subpackages.
package storage

import (
	"context"
	"time"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/order"
	"github.com/advantage-shop/shop-service/internal/app/domain/session"
)

// CatalogStore persists the product catalog.
type CatalogStore interface {
	UpsertProduct(ctx context.Context, p catalog.Product) (catalog.Product, error)
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// OrderStore persists recorded checkouts.
type OrderStore interface {
	CreateOrder(ctx context.Context, o order.Order) (order.Order, error)
	GetOrder(ctx context.Context, id string) (order.Order, error)
	ListOrders(ctx context.Context) ([]order.Order, error)
}

// SessionStore persists wizard session snapshots.
type SessionStore interface {
	SaveSession(ctx context.Context, rec session.Record, ttl time.Duration) error
	GetSession(ctx context.Context, id string) (session.Record, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions past their TTL. Backends
	// with server-side expiry implement this as a no-op.
	DeleteExpiredSessions(ctx context.Context) error
}
