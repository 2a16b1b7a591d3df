// Package checkout turns a session's cart into a recorded order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/advantage-shop/shop-service/internal/app/domain/cart"
	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/order"
	"github.com/advantage-shop/shop-service/internal/app/storage"
	"github.com/advantage-shop/shop-service/pkg/logger"
)

// ErrEmptyCart is returned when checkout is attempted with no items.
var ErrEmptyCart = errors.New("cart is empty")

// Service prices cart items against the catalog and records orders.
type Service struct {
	products catalog.Provider
	orders   storage.OrderStore
	log      *logger.Logger
}

// NewService wires a checkout service.
func NewService(products catalog.Provider, orders storage.OrderStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	return &Service{products: products, orders: orders, log: log}
}

// Checkout records an order for the given cart items. Items naming an
// unknown product fail the whole checkout: a price cannot be invented.
func (s *Service) Checkout(ctx context.Context, sessionID string, items []cart.LineItem) (order.Order, error) {
	if len(items) == 0 {
		return order.Order{}, ErrEmptyCart
	}

	var (
		lines      []order.Line
		prices     []catalog.Price
		quantities []int64
		currency   string
	)
	for _, item := range items {
		p, ok := s.products.Product(item.ProductID)
		if !ok {
			return order.Order{}, fmt.Errorf("product %s is not available", item.ProductID)
		}
		qty, err := strconv.ParseInt(item.Quantity, 10, 64)
		if err != nil || qty <= 0 {
			return order.Order{}, fmt.Errorf("invalid quantity %q for %s", item.Quantity, item.ProductID)
		}
		if currency == "" {
			currency = p.Price.Currency
		}
		lines = append(lines, order.Line{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  qty,
			UnitMinor: p.Price.Value,
			Cost:      catalog.FormatMajor(catalog.LineMajor(p.Price, qty), p.Price.Currency),
		})
		prices = append(prices, p.Price)
		quantities = append(quantities, qty)
	}
	subtotal := catalog.SubtotalMajor(prices, quantities)

	o, err := s.orders.CreateOrder(ctx, order.Order{
		SessionID:     sessionID,
		Currency:      currency,
		SubtotalMajor: subtotal,
		Subtotal:      catalog.FormatMajor(float64(subtotal), currency),
		Lines:         lines,
	})
	if err != nil {
		return order.Order{}, fmt.Errorf("record order: %w", err)
	}

	s.log.WithField("order_id", o.ID).
		WithField("session_id", sessionID).
		WithField("subtotal", o.Subtotal).
		Info("order recorded")
	return o, nil
}

// Order fetches a recorded order.
func (s *Service) Order(ctx context.Context, id string) (order.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

// Orders lists every recorded order.
func (s *Service) Orders(ctx context.Context) ([]order.Order, error) {
	return s.orders.ListOrders(ctx)
}
