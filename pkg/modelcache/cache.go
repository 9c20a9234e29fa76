// Package modelcache holds a read-mostly, periodically refreshed table of
// the upstream's available models. It backs the 404-with-model-listing
// error path; no capability check consults it.
package modelcache

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sirouk/responses-proxy/pkg/upstream"
)

// Lister is satisfied by *upstream.Client. Kept as an interface so tests
// can supply a fake without a real HTTP server.
type Lister interface {
	ListModels(ctx context.Context) ([]upstream.ChatModel, error)
}

// Cache is a thread-safe, read-mostly snapshot of the upstream model list.
type Cache struct {
	lister Lister
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	models   map[string]upstream.ChatModel
	order    []string
	lastSync time.Time
}

// New creates a Cache. Call Refresh once synchronously before serving
// traffic, then Start to keep it refreshed on ttl.
func New(lister Lister, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		lister: lister,
		ttl:    ttl,
		logger: logger,
		models: make(map[string]upstream.ChatModel),
	}
}

// Refresh synchronously fetches the current model list and replaces the
// cached snapshot. Returns the error from the upstream call, if any; a
// failed refresh leaves the previous snapshot in place.
func (c *Cache) Refresh(ctx context.Context) error {
	models, err := c.lister.ListModels(ctx)
	if err != nil {
		return err
	}

	byID := make(map[string]upstream.ChatModel, len(models))
	order := make([]string, 0, len(models))
	for _, m := range models {
		byID[m.ID] = m
		order = append(order, m.ID)
	}
	sort.Strings(order)

	c.mu.Lock()
	c.models = byID
	c.order = order
	c.lastSync = time.Now()
	c.mu.Unlock()

	return nil
}

// Start launches a background goroutine that calls Refresh every ttl,
// logging (not propagating) failures, until ctx is cancelled. Subsequent
// refreshes are best-effort: a failure just keeps serving the stale
// snapshot until the next tick.
func (c *Cache) Start(ctx context.Context) {
	if c.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(c.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Refresh(ctx); err != nil {
					c.logger.Warn("model cache refresh failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Lookup returns the cached model entry for id, if known.
func (c *Cache) Lookup(id string) (upstream.ChatModel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[id]
	return m, ok
}

// IDs returns the known model IDs in sorted order, capped at max (0 means
// unbounded).
func (c *Cache) IDs(max int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if max <= 0 || max >= len(c.order) {
		out := make([]string, len(c.order))
		copy(out, c.order)
		return out
	}
	out := make([]string, max)
	copy(out, c.order[:max])
	return out
}

// Models returns the known models in sorted-by-ID order, capped at max (0
// means unbounded).
func (c *Cache) Models(max int) []upstream.ChatModel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	order := c.order
	if max > 0 && max < len(order) {
		order = order[:max]
	}
	out := make([]upstream.ChatModel, 0, len(order))
	for _, id := range order {
		out = append(out, c.models[id])
	}
	return out
}

// Len returns the number of cached models.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}
