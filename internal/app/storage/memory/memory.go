// Package memory is an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/advantage-shop/shop-service/internal/app/domain/cart"
	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/order"
	"github.com/advantage-shop/shop-service/internal/app/domain/session"
	"github.com/advantage-shop/shop-service/internal/app/storage"
)

// Store implements every storage interface over mutex-guarded maps.
type Store struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
	orders   map[string]order.Order
	sessions map[string]session.Record

	// now is swappable so expiry tests control the clock.
	now func() time.Time
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		products: make(map[string]catalog.Product),
		orders:   make(map[string]order.Order),
		sessions: make(map[string]session.Record),
		now:      time.Now,
	}
}

// WithClock overrides the store's clock. Test helper.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) UpsertProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		return catalog.Product{}, fmt.Errorf("product id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.products[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.products[p.ID] = p
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, fmt.Errorf("product %s: %w", id, sql.ErrNoRows)
	}
	return p, nil
}

func (s *Store) ListProducts(_ context.Context) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		result = append(result, p)
	}
	return result, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, sql.ErrNoRows)
	}
	delete(s.products, id)
	return nil
}

// OrderStore implementation ---------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, o order.Order) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.ID == "" {
		o.ID = uuid.NewString()
	} else if _, exists := s.orders[o.ID]; exists {
		return order.Order{}, fmt.Errorf("order %s already exists", o.ID)
	}

	o.CreatedAt = s.now().UTC()
	o.Lines = append([]order.Line(nil), o.Lines...)

	s.orders[o.ID] = o
	return cloneOrder(o), nil
}

func (s *Store) GetOrder(_ context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("order %s: %w", id, sql.ErrNoRows)
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]order.Order, 0, len(s.orders))
	for _, o := range s.orders {
		result = append(result, cloneOrder(o))
	}
	return result, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) SaveSession(_ context.Context, rec session.Record, ttl time.Duration) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.sessions[rec.ID]; ok {
		rec.CreatedAt = existing.CreatedAt
	} else if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}
	rec.Steps = cloneSteps(rec.Steps)
	rec.Items = append([]cart.LineItem(nil), rec.Items...)

	s.sessions[rec.ID] = rec
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok || rec.Expired(s.now().UTC()) {
		return session.Record{}, fmt.Errorf("session %s: %w", id, sql.ErrNoRows)
	}
	return cloneSession(rec), nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	for id, rec := range s.sessions {
		if rec.Expired(now) {
			delete(s.sessions, id)
		}
	}
	return nil
}

// Helpers --------------------------------------------------------------------

func cloneOrder(o order.Order) order.Order {
	o.Lines = append([]order.Line(nil), o.Lines...)
	return o
}

func cloneSteps(src map[string][]string) map[string][]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string][]string, len(src))
	for k, v := range src {
		dst[k] = append([]string(nil), v...)
	}
	return dst
}

func cloneSession(rec session.Record) session.Record {
	rec.Steps = cloneSteps(rec.Steps)
	rec.Items = append([]cart.LineItem(nil), rec.Items...)
	return rec
}
