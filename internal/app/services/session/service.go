// Package session manages wizard sessions. Each session holds a live
// selector controller; state is persisted after every mutation so a
// session survives a restart.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/advantage-shop/shop-service/internal/app/domain/catalog"
	"github.com/advantage-shop/shop-service/internal/app/domain/session"
	"github.com/advantage-shop/shop-service/internal/app/metrics"
	"github.com/advantage-shop/shop-service/internal/app/services/selector"
	"github.com/advantage-shop/shop-service/internal/app/storage"
	"github.com/advantage-shop/shop-service/pkg/logger"
)

// DefaultTTL is applied when Config.TTL is zero.
const DefaultTTL = 30 * time.Minute

// Config controls session lifetime and janitor cadence.
type Config struct {
	TTL time.Duration
	// SweepSpec is a cron spec for expired-session cleanup. Empty
	// disables the janitor (backends with native expiry do not need it).
	SweepSpec string
	// Selector options applied to every controller.
	Selector selector.Options
}

// liveEntry pairs a controller with its expiry deadline. The deadline
// slides forward on every resolve and save, mirroring the TTL reset the
// store applies on SaveSession.
type liveEntry struct {
	ctrl      *selector.Controller
	expiresAt time.Time
}

// Service creates and resolves sessions, keeping live controllers in
// memory and persisting their snapshots through the session store.
type Service struct {
	store    storage.SessionStore
	products catalog.Provider
	renderer *selector.Renderer
	cfg      Config
	log      *logger.Logger

	mu   sync.Mutex
	live map[string]*liveEntry

	cron *cron.Cron

	// now is swappable so expiry tests control the clock.
	now func() time.Time
}

// NewService wires a session service. Call Start to run the janitor and
// Stop to shut it down.
func NewService(store storage.SessionStore, products catalog.Provider, renderer *selector.Renderer, cfg Config, log *logger.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if log == nil {
		log = logger.NewDefault("session")
	}
	return &Service{
		store:    store,
		products: products,
		renderer: renderer,
		cfg:      cfg,
		log:      log,
		live:     make(map[string]*liveEntry),
		now:      time.Now,
	}
}

// WithClock overrides the service's clock. Test helper.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start schedules the expired-session janitor if a sweep spec is set.
func (s *Service) Start() error {
	if s.cfg.SweepSpec == "" {
		return nil
	}
	s.cron = cron.New()
	_, err := s.cron.AddFunc(s.cfg.SweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	s.cron.Start()
	s.log.WithField("spec", s.cfg.SweepSpec).Info("session janitor started")
	return nil
}

// Sweep removes expired sessions from the store and evicts live
// controllers past their deadline. The janitor calls this on every tick.
func (s *Service) Sweep(ctx context.Context) {
	if err := s.store.DeleteExpiredSessions(ctx); err != nil {
		s.log.WithError(err).Error("failed to sweep expired sessions")
	}

	now := s.now()
	s.mu.Lock()
	evicted := 0
	for id, entry := range s.live {
		if now.After(entry.expiresAt) {
			entry.ctrl.Close()
			delete(s.live, id)
			evicted++
		}
	}
	metrics.SetLiveSessions(len(s.live))
	s.mu.Unlock()

	if evicted > 0 {
		s.log.WithField("evicted", evicted).Info("evicted expired live sessions")
	}
}

// Stop halts the janitor and closes every live controller.
func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.live {
		entry.ctrl.Close()
		delete(s.live, id)
	}
	metrics.SetLiveSessions(0)
}

// Create starts a new session and returns its id with the initial view.
func (s *Service) Create(ctx context.Context) (string, selector.View, error) {
	id := uuid.NewString()
	ctrl, err := s.newController()
	if err != nil {
		return "", selector.View{}, err
	}

	if err := s.persist(ctx, id, ctrl); err != nil {
		ctrl.Close()
		return "", selector.View{}, err
	}

	s.mu.Lock()
	s.live[id] = &liveEntry{ctrl: ctrl, expiresAt: s.now().Add(s.cfg.TTL)}
	metrics.SetLiveSessions(len(s.live))
	s.mu.Unlock()

	s.log.WithField("session_id", id).Info("session created")
	return id, ctrl.View(), nil
}

// Controller resolves the controller for a session, rehydrating it from
// the store when it is not live in this process. A live entry past its
// deadline is evicted and reported not-found, same as a swept record.
func (s *Service) Controller(ctx context.Context, id string) (*selector.Controller, error) {
	now := s.now()
	s.mu.Lock()
	if entry, ok := s.live[id]; ok {
		if now.After(entry.expiresAt) {
			entry.ctrl.Close()
			delete(s.live, id)
			metrics.SetLiveSessions(len(s.live))
		} else {
			entry.expiresAt = now.Add(s.cfg.TTL)
			s.mu.Unlock()
			return entry.ctrl, nil
		}
	}
	s.mu.Unlock()

	rec, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	ctrl, err := s.newController()
	if err != nil {
		return nil, err
	}
	ctrl.Restore(rec.Steps, rec.Items)

	s.mu.Lock()
	if existing, ok := s.live[id]; ok {
		// another request rehydrated it first
		existing.expiresAt = s.now().Add(s.cfg.TTL)
		s.mu.Unlock()
		ctrl.Close()
		return existing.ctrl, nil
	}
	s.live[id] = &liveEntry{ctrl: ctrl, expiresAt: s.now().Add(s.cfg.TTL)}
	metrics.SetLiveSessions(len(s.live))
	s.mu.Unlock()
	return ctrl, nil
}

// Save persists the current controller snapshot for a session and
// slides its live deadline, matching the TTL reset in the store.
func (s *Service) Save(ctx context.Context, id string, ctrl *selector.Controller) error {
	if err := s.persist(ctx, id, ctrl); err != nil {
		return err
	}
	s.mu.Lock()
	if entry, ok := s.live[id]; ok {
		entry.expiresAt = s.now().Add(s.cfg.TTL)
	}
	s.mu.Unlock()
	return nil
}

// Delete removes a session from memory and from the store.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if entry, ok := s.live[id]; ok {
		entry.ctrl.Close()
		delete(s.live, id)
	}
	metrics.SetLiveSessions(len(s.live))
	s.mu.Unlock()
	return s.store.DeleteSession(ctx, id)
}

func (s *Service) newController() (*selector.Controller, error) {
	opts := s.cfg.Selector
	opts.Log = s.log
	return selector.New(s.products, s.renderer, opts)
}

func (s *Service) persist(ctx context.Context, id string, ctrl *selector.Controller) error {
	steps, items := ctrl.Snapshot()
	rec := session.Record{ID: id, Steps: steps, Items: items}
	if err := s.store.SaveSession(ctx, rec, s.cfg.TTL); err != nil {
		return fmt.Errorf("save session %s: %w", id, err)
	}
	return nil
}
