package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prasenjit/route-explorer/internal/cache"
	"github.com/prasenjit/route-explorer/internal/models"
)

// Loader produces catalog snapshots, optionally through a TTL cache
type Loader struct {
	source     Source
	normalizer *Normalizer
	cache      cache.Cache
	key        string
	ttl        time.Duration
	logger     *slog.Logger
}

// NewLoader creates a loader. A nil cache or a non-positive ttl disables
// caching and every Load hits the source.
func NewLoader(source Source, normalizer *Normalizer, c cache.Cache, key string, ttl time.Duration, logger *slog.Logger) *Loader {
	if c == nil || ttl <= 0 {
		c = cache.Nop{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if key == "" {
		key = "catalog"
	}
	return &Loader{
		source:     source,
		normalizer: normalizer,
		cache:      c,
		key:        key,
		ttl:        ttl,
		logger:     logger,
	}
}

// Normalizer returns the normalizer used for loads
func (l *Loader) Normalizer() *Normalizer {
	return l.normalizer
}

// Load returns the current catalog
func (l *Loader) Load(ctx context.Context) (*Catalog, error) {
	data, err := l.cache.Get(ctx, l.key)
	if err == nil {
		var routes map[string]models.Route
		if jerr := json.Unmarshal(data, &routes); jerr == nil {
			return NewCatalog(routes), nil
		}
		l.logger.Warn("discarding unreadable cached catalog", "key", l.key)
	} else if !errors.Is(err, cache.ErrMiss) {
		l.logger.Warn("catalog cache unavailable", "error", err)
	}

	catalog, err := LoadAll(ctx, l.source, l.normalizer)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(catalog.Routes()); err == nil {
		if err := l.cache.Set(ctx, l.key, data, l.ttl); err != nil {
			l.logger.Warn("failed to cache catalog", "error", err)
		}
	}
	l.logger.Debug("catalog loaded", "routes", catalog.Len())
	return catalog, nil
}

// Invalidate drops the cached snapshot
func (l *Loader) Invalidate(ctx context.Context) error {
	return l.cache.Delete(ctx, l.key)
}
