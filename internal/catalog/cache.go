// Package catalog holds the process-wide services list that public pages and
// the admin API read from. Updates are applied in memory first and persisted
// in the background.
package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"medibilling/portal/internal/content"
	"medibilling/portal/internal/util"
)

var ErrClosed = errors.New("catalog closed")

type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

type Source interface {
	Services(ctx context.Context) []content.Service
	SaveServices(ctx context.Context, services []content.Service) ([]content.Service, error)
}

type Options struct {
	// RollbackOnFailure restores the previous list when persisting an update fails.
	RollbackOnFailure bool
	Logger            *zap.Logger
}

type Cache struct {
	source   Source
	rollback bool
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.RWMutex
	state    State
	services []content.Service
	// durable is the last list known to be persisted; rollback restores it.
	durable []content.Service
	// generation increases on every replacement of services so that late
	// results from older loads and saves can be recognized and dropped.
	generation uint64
	closed     bool

	// persistMu serializes saves and loads against the source. savedGen and
	// savedErr describe the most recent save.
	persistMu sync.Mutex
	savedGen  uint64
	savedErr  error
}

func New(source Source, opts Options) *Cache {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		source:   source,
		rollback: opts.RollbackOnFailure,
		logger:   opts.Logger.Named("catalog"),
		ctx:      ctx,
		cancel:   cancel,
		services: []content.Service{},
		durable:  []content.Service{},
	}
}

func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Init loads the list once. Later calls are no-ops; use Refresh to reload.
func (c *Cache) Init(ctx context.Context) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()
	if state != Uninitialized {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh replaces the cached list with freshly loaded data. It waits for a
// save in progress. The result is dropped if the cache was updated or closed
// while loading.
func (c *Cache) Refresh(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.state = Loading
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	services := c.source.Services(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if gen == c.generation {
		c.services = content.CloneServices(services)
		c.durable = content.CloneServices(services)
	} else {
		c.logger.Debug("discarding stale load")
	}
	c.state = Ready
	return nil
}

func (c *Cache) Services() []content.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return content.CloneServices(c.services)
}

func (c *Cache) Service(id string) (content.Service, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.services {
		if s.ID == id {
			return content.CloneService(s), true
		}
	}
	return content.Service{}, false
}

// UpdateServices replaces the cached list immediately and persists it in the
// background. The returned channel yields the persistence result once.
func (c *Cache) UpdateServices(services []content.Service) <-chan error {
	return c.update(func([]content.Service) []content.Service {
		return services
	})
}

// update applies change to a copy of the current list under the lock, so
// concurrent callers never build on a stale read.
func (c *Cache) update(change func(current []content.Service) []content.Service) <-chan error {
	result := make(chan error, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		result <- ErrClosed
		return result
	}
	next := content.CloneServices(content.NormalizeServices(change(content.CloneServices(c.services))))
	c.services = next
	c.state = Ready
	c.generation++
	gen := c.generation
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		result <- c.persist(gen)
	}()
	return result
}

// persist saves the newest cached list, one save at a time. An update whose
// generation was already covered by a later save reports that save's result
// without writing again.
func (c *Cache) persist(gen uint64) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if c.savedGen >= gen {
		return c.savedErr
	}

	c.mu.RLock()
	latest := content.CloneServices(c.services)
	latestGen := c.generation
	c.mu.RUnlock()

	saved, err := c.source.SaveServices(c.ctx, latest)
	c.savedGen, c.savedErr = latestGen, err
	c.apply(latestGen, latest, saved, err)
	return err
}

func (c *Cache) apply(gen uint64, persisted, saved []content.Service, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.durable = persisted
		if saved != nil {
			c.durable = content.CloneServices(saved)
		}
	}
	if c.closed || gen != c.generation {
		return
	}
	switch {
	case err == nil && saved != nil:
		c.services = content.CloneServices(saved)
	case err != nil && c.rollback:
		c.logger.Warn("persisting services failed, rolling back", zap.Error(err))
		c.services = content.CloneServices(c.durable)
		c.generation++
	case err != nil:
		c.logger.Warn("persisting services failed, keeping in-memory list", zap.Error(err))
	}
}

// Upsert replaces the service with the same id or appends it. A service
// without an id gets one.
func (c *Cache) Upsert(service content.Service) (content.Service, <-chan error) {
	if service.ID == "" {
		service.ID = util.NewID("svc")
	}
	service = content.NormalizeService(service)

	return service, c.update(func(list []content.Service) []content.Service {
		for i := range list {
			if list[i].ID == service.ID {
				list[i] = service
				return list
			}
		}
		return append(list, service)
	})
}

// Remove drops the service with id. Removing an unknown id still persists the
// unchanged list and succeeds.
func (c *Cache) Remove(id string) <-chan error {
	return c.update(func(list []content.Service) []content.Service {
		out := list[:0]
		for _, s := range list {
			if s.ID != id {
				out = append(out, s)
			}
		}
		return out
	})
}

// Close stops accepting updates and waits for in-flight saves to finish.
// Their results are not applied to the cache.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()
	c.cancel()
}
