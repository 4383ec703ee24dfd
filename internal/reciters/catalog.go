package reciters

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mfarhan/tarteel/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CatalogTTL is how long a fetched reciter listing stays fresh.
const CatalogTTL = 6 * time.Hour

// Catalog caches the reciter directory for CatalogTTL and answers
// audio-base lookups. The cached slice is replaced in one assignment so
// concurrent readers never observe a partially updated list.
type Catalog struct {
	directory domain.ReciterDirectory
	logger    *slog.Logger

	mu        sync.RWMutex
	reciters  []domain.Reciter
	fetchedAt time.Time

	group singleflight.Group

	// Injected in tests to control the freshness clock
	now func() time.Time
}

// NewCatalog creates a catalog over the given directory
func NewCatalog(directory domain.ReciterDirectory, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		directory: directory,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns the cached reciter list while it is younger than
// CatalogTTL, refreshing it otherwise. Concurrent refreshes collapse
// into a single upstream fetch. With no cached list at all, a fetch
// failure is returned to the caller.
func (c *Catalog) List(ctx context.Context) ([]domain.Reciter, error) {
	c.mu.RLock()
	reciters, fetchedAt := c.reciters, c.fetchedAt
	c.mu.RUnlock()

	if reciters != nil && c.now().Sub(fetchedAt) < CatalogTTL {
		return reciters, nil
	}

	result, err, _ := c.group.Do("reciters", func() (interface{}, error) {
		// Another caller may have refreshed while we queued
		c.mu.RLock()
		current, at := c.reciters, c.fetchedAt
		c.mu.RUnlock()
		if current != nil && c.now().Sub(at) < CatalogTTL {
			return current, nil
		}

		fetched, err := c.directory.Reciters(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.reciters = fetched
		c.fetchedAt = c.now()
		c.mu.Unlock()

		c.logger.Info("reciter catalog refreshed", "count", len(fetched))
		return fetched, nil
	})
	if err != nil {
		c.logger.Error("reciter catalog refresh failed", "error", err)
		return nil, err
	}
	return result.([]domain.Reciter), nil
}

// ResolveAudioBase returns the default playable audio-server base URL for
// a reciter: the first moshaf exposing a non-empty server. Empty string
// when the reciter is unknown or has no server.
func (c *Catalog) ResolveAudioBase(ctx context.Context, reciterID string) (string, error) {
	reciters, err := c.List(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range reciters {
		if r.ID == reciterID {
			return r.AudioBase(), nil
		}
	}
	return "", nil
}
