// Package catalogsvc exposes the product catalog: read access for the
// wizard and admin mutations that keep the in-memory index current.
package catalogsvc

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/storage"
	"github.com/advantage-shop/shop-service/pkg/logger"
)

// Service serves catalog reads from an in-memory index and writes
// through to the store, reloading the index after each mutation.
type Service struct {
	store storage.CatalogStore
	log   *logger.Logger

	mu    sync.RWMutex
	index *catalog.Index

	cron *cron.Cron
}

var _ catalog.Provider = (*Service)(nil)

// NewService loads the catalog from the store and builds the index.
func NewService(ctx context.Context, store storage.CatalogStore, log *logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewDefault("catalog")
	}
	s := &Service{store: store, log: log}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the index from the store.
func (s *Service) Reload(ctx context.Context) error {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	index := catalog.NewIndex(products)

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	s.log.WithField("products", index.Len()).Info("catalog loaded")
	return nil
}

// StartReload schedules periodic index rebuilds so catalog changes made
// by another instance become visible. Empty spec disables the job.
func (s *Service) StartReload(spec string) error {
	if spec == "" {
		return nil
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Reload(ctx); err != nil {
			s.log.WithError(err).Error("scheduled catalog reload failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule catalog reload: %w", err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the reload job.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Seed upserts every product in the slice and reloads the index. It is
// used at startup to import a catalog document.
func (s *Service) Seed(ctx context.Context, products []catalog.Product) error {
	for _, p := range products {
		if _, err := s.store.UpsertProduct(ctx, p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return s.Reload(ctx)
}

// Product implements catalog.Provider from the in-memory index.
func (s *Service) Product(id string) (catalog.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Product(id)
}

// Get returns a single product from the store.
func (s *Service) Get(ctx context.Context, id string) (catalog.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// List returns products filtered by a case-insensitive substring match
// on id and name, paged by limit and offset. A limit of zero means no
// cap.
func (s *Service) List(ctx context.Context, query string, limit, offset int) ([]catalog.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if query != "" {
		q := strings.ToLower(query)
		filtered := products[:0]
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.ID), q) || strings.Contains(strings.ToLower(p.Name), q) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })

	if offset >= len(products) {
		return []catalog.Product{}, nil
	}
	products = products[offset:]
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	return products, nil
}

// Upsert writes a product and refreshes the index.
func (s *Service) Upsert(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	saved, err := s.store.UpsertProduct(ctx, p)
	if err != nil {
		return catalog.Product{}, err
	}
	if err := s.Reload(ctx); err != nil {
		return catalog.Product{}, err
	}
	s.log.WithField("product_id", saved.ID).Info("product upserted")
	return saved, nil
}

// Delete removes a product and refreshes the index.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	if err := s.Reload(ctx); err != nil {
		return err
	}
	s.log.WithField("product_id", id).Info("product deleted")
	return nil
}
