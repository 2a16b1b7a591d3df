// Package postgres implements the storage interfaces backed by
// PostgreSQL via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/advantage-shop/shop-service/internal/app/domain/cart"
	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/order"
	"github.com/advantage-shop/shop-service/internal/app/domain/session"
	"github.com/advantage-shop/shop-service/internal/app/storage"
)

// Store implements the storage interfaces over a sqlx database handle.
type Store struct {
	db *sqlx.DB
}

var _ storage.CatalogStore = (*Store)(nil)
var _ storage.OrderStore = (*Store)(nil)
var _ storage.SessionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type productRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	PriceMinor int64     `db:"price_minor"`
	Currency   string    `db:"currency"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r productRow) toProduct() catalog.Product {
	return catalog.Product{
		ID:        r.ID,
		Name:      r.Name,
		Price:     catalog.Price{Value: r.PriceMinor, Currency: r.Currency},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// --- CatalogStore -----------------------------------------------------------

func (s *Store) UpsertProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == "" {
		return catalog.Product{}, fmt.Errorf("product id is required")
	}
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_products (id, name, price_minor, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    price_minor = EXCLUDED.price_minor,
		    currency = EXCLUDED.currency,
		    updated_at = EXCLUDED.updated_at
	`, p.ID, p.Name, p.Price.Value, p.Price.Currency, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return catalog.Product{}, err
	}
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, price_minor, currency, created_at, updated_at
		FROM shop_products
		WHERE id = $1
	`, id)
	if err != nil {
		return catalog.Product{}, err
	}
	return row.toProduct(), nil
}

func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, price_minor, currency, created_at, updated_at
		FROM shop_products
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}

	result := make([]catalog.Product, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toProduct())
	}
	return result, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM shop_products WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- OrderStore -------------------------------------------------------------

func (s *Store) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = time.Now().UTC()

	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return order.Order{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shop_orders (id, session_id, currency, subtotal_major, subtotal_text, lines, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.SessionID, o.Currency, o.SubtotalMajor, o.Subtotal, linesJSON, o.CreatedAt)
	if err != nil {
		return order.Order{}, err
	}
	return o, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (order.Order, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, currency, subtotal_major, subtotal_text, lines, created_at
		FROM shop_orders
		WHERE id = $1
	`, id)
	return scanOrder(row)
}

func (s *Store) ListOrders(ctx context.Context) ([]order.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, currency, subtotal_major, subtotal_text, lines, created_at
		FROM shop_orders
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (order.Order, error) {
	var (
		o        order.Order
		linesRaw []byte
	)
	if err := row.Scan(&o.ID, &o.SessionID, &o.Currency, &o.SubtotalMajor, &o.Subtotal, &linesRaw, &o.CreatedAt); err != nil {
		return order.Order{}, err
	}
	if len(linesRaw) > 0 {
		if err := json.Unmarshal(linesRaw, &o.Lines); err != nil {
			return order.Order{}, fmt.Errorf("decode order lines: %w", err)
		}
	}
	return o, nil
}

// --- SessionStore -----------------------------------------------------------

type sessionState struct {
	Steps map[string][]string `json:"steps"`
	Items []cart.LineItem     `json:"items"`
}

func (s *Store) SaveSession(ctx context.Context, rec session.Record, ttl time.Duration) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}

	stateJSON, err := json.Marshal(sessionState{Steps: rec.Steps, Items: rec.Items})
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO shop_sessions (id, state, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
		    updated_at = EXCLUDED.updated_at,
		    expires_at = EXCLUDED.expires_at
	`, rec.ID, stateJSON, rec.CreatedAt, rec.UpdatedAt, rec.ExpiresAt)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (session.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, state, created_at, updated_at, expires_at
		FROM shop_sessions
		WHERE id = $1 AND expires_at > NOW()
	`, id)

	var (
		rec      session.Record
		stateRaw []byte
	)
	if err := row.Scan(&rec.ID, &stateRaw, &rec.CreatedAt, &rec.UpdatedAt, &rec.ExpiresAt); err != nil {
		return session.Record{}, err
	}

	var state sessionState
	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &state); err != nil {
			return session.Record{}, fmt.Errorf("decode session state: %w", err)
		}
	}
	rec.Steps = state.Steps
	rec.Items = state.Items
	return rec, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM shop_sessions WHERE id = $1
	`, id)
	return err
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM shop_sessions WHERE expires_at <= NOW()
	`)
	return err
}
