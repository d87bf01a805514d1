package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prasenjit/route-explorer/internal/api"
	"github.com/prasenjit/route-explorer/internal/cache"
	"github.com/prasenjit/route-explorer/internal/config"
	"github.com/prasenjit/route-explorer/internal/feed"
	"github.com/prasenjit/route-explorer/internal/history"
	"github.com/prasenjit/route-explorer/internal/logging"
	"github.com/prasenjit/route-explorer/internal/models"
	"github.com/prasenjit/route-explorer/internal/registry"
	"github.com/prasenjit/route-explorer/internal/routes"
	"github.com/prasenjit/route-explorer/internal/storage"
	"github.com/prasenjit/route-explorer/internal/tester"
)

// registryTimeout bounds remote registry fetches
const registryTimeout = 30 * time.Second

// app holds every component built from the configuration
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	site     models.SiteInfo
	cache    cache.Cache
	loader   *routes.Loader
	executor *tester.Executor
	runner   *tester.Runner
	store    storage.HistoryStore
	hub      *feed.Hub
	recorder *history.Recorder
}

// newApp wires the components. Storage is only opened when withHistory is set.
func newApp(ctx context.Context, cfg *config.Config, withHistory bool) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logging.FromStrings(cfg.Logging.Level, cfg.Logging.Format, os.Stderr),
	}

	provider, err := registry.New(cfg.Registry.Type, cfg.Registry.Source, &http.Client{Timeout: registryTimeout})
	if err != nil {
		return nil, err
	}
	provider = registry.WithSiteOverrides(provider, models.SiteInfo{
		Name:        cfg.Registry.SiteName,
		Description: cfg.Registry.SiteDescription,
		RESTBaseURL: cfg.Registry.BaseURL,
	})

	site, err := provider.Site(ctx)
	if err != nil {
		a.logger.Warn("site metadata unavailable", "error", err)
		site = models.SiteInfo{Name: cfg.Registry.SiteName, Description: cfg.Registry.SiteDescription, RESTBaseURL: cfg.Registry.BaseURL}
	}
	a.site = site

	switch cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, "route-explorer:")
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cache = rc
	case "none":
		a.cache = cache.Nop{}
	default:
		a.cache = cache.NewMemoryCache()
	}

	normalizer := routes.NewNormalizer(site.RESTBaseURL, nil)
	key := fmt.Sprintf("catalog:%s:%s", cfg.Registry.Type, cfg.Registry.Source)
	a.loader = routes.NewLoader(provider, normalizer, a.cache, key, cfg.Settings.CacheTTL(), a.logger)

	a.executor = tester.NewExecutor(
		tester.WithInsecureSkipVerify(cfg.Tester.InsecureSkipVerify),
		tester.WithMaxBodyBytes(cfg.Tester.MaxBodyBytes),
		tester.WithLogger(a.logger),
	)
	a.runner = tester.NewRunner(a.executor,
		tester.WithPacing(cfg.Tester.BulkPacing),
		tester.WithConcurrency(cfg.Tester.BulkConcurrency),
	)

	if !withHistory {
		return a, nil
	}

	a.store, err = storage.Open(ctx, cfg.Storage.Type, cfg.Storage.Path, cfg.Storage.DSN)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", cfg.Storage.Type, err)
	}
	a.hub = feed.NewHub(feed.DefaultBuffer)
	a.recorder = history.NewRecorder(a.store,
		history.WithEnabled(cfg.Settings.EnableLogging),
		history.WithFeed(a.hub),
		history.WithLogger(a.logger),
	)
	return a, nil
}

// router builds the admin API on top of the wired components
func (a *app) router() *api.Router {
	h := api.NewHandler(api.Deps{
		Settings: a.cfg.Settings,
		Site:     a.site,
		Loader:   a.loader,
		Executor: a.executor,
		Runner:   a.runner,
		Recorder: a.recorder,
		Logger:   a.logger,
	})
	return api.NewRouter(h, a.hub, a.logger)
}

func (a *app) close() {
	if a.hub != nil {
		a.hub.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close storage", "error", err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("failed to close cache", "error", err)
		}
	}
}
