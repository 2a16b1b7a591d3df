package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/order"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestUpsertProduct(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO shop_products`).
		WithArgs("uai-standard-physical", "Ubuntu Pro", int64(22500), "USD",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := store.UpsertProduct(context.Background(), catalog.Product{
		ID:    "uai-standard-physical",
		Name:  "Ubuntu Pro",
		Price: catalog.Price{Value: 22500, Currency: "USD"},
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
	if p.UpdatedAt.IsZero() || p.CreatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertProductRequiresID(t *testing.T) {
	store, _ := newMockStore(t)
	if _, err := store.UpsertProduct(context.Background(), catalog.Product{Name: "no id"}); err == nil {
		t.Fatal("expected error for empty product id")
	}
}

func TestGetProduct(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "name", "price_minor", "currency", "created_at", "updated_at"}).
		AddRow("uai-standard-physical", "Ubuntu Pro", int64(22500), "USD", now, now)
	mock.ExpectQuery(`SELECT id, name, price_minor, currency, created_at, updated_at\s+FROM shop_products`).
		WithArgs("uai-standard-physical").
		WillReturnRows(rows)

	p, err := store.GetProduct(context.Background(), "uai-standard-physical")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Price.Value != 22500 || p.Price.Currency != "USD" {
		t.Fatalf("unexpected price: %+v", p.Price)
	}
}

func TestGetProductNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id, name, price_minor, currency, created_at, updated_at\s+FROM shop_products`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.GetProduct(context.Background(), "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM shop_products`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteProduct(context.Background(), "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestCreateOrderAssignsID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO shop_orders`).
		WithArgs(sqlmock.AnyArg(), "sess-1", "USD", int64(450), "$450",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	o, err := store.CreateOrder(context.Background(), order.Order{
		SessionID:     "sess-1",
		Currency:      "USD",
		SubtotalMajor: 450,
		Subtotal:      "$450",
		Lines: []order.Line{
			{ProductID: "uai-standard-physical", Name: "Ubuntu Pro", Quantity: 3, UnitMinor: 15050, Cost: "$452"},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.ID == "" {
		t.Fatal("expected generated order id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetOrderDecodesLines(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	lines, err := json.Marshal([]order.Line{
		{ProductID: "uai-standard-physical", Name: "Ubuntu Pro", Quantity: 2, UnitMinor: 15050, Cost: "$301"},
	})
	if err != nil {
		t.Fatalf("marshal lines: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "session_id", "currency", "subtotal_major", "subtotal_text", "lines", "created_at"}).
		AddRow("ord-1", "sess-1", "USD", int64(300), "$300", lines, now)
	mock.ExpectQuery(`SELECT id, session_id, currency, subtotal_major, subtotal_text, lines, created_at\s+FROM shop_orders`).
		WithArgs("ord-1").
		WillReturnRows(rows)

	o, err := store.GetOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if len(o.Lines) != 1 || o.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines: %+v", o.Lines)
	}
}
