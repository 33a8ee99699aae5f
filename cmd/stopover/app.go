package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"stopover-food/internal/config"
	"stopover-food/internal/db"
	"stopover-food/internal/fuzzy"
	"stopover-food/internal/gurunavi"
	"stopover-food/internal/httpapi"
	"stopover-food/internal/logging"
	"stopover-food/internal/metrics"
	"stopover-food/internal/publisher"
	"stopover-food/internal/romaji"
	"stopover-food/internal/route"
	"stopover-food/internal/search"
	"stopover-food/internal/station"
	"stopover-food/internal/venue"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	store    *station.Store
	reloader *station.Reloader
	resolver *route.Resolver
	service  *search.Service
	images   *venue.ImageFiller
	pub      *publisher.NATSPublisher
	closers  []func()
}

type appOptions struct {
	withMetrics bool
	withEvents  bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		logger: logging.NewStructuredLogger(os.Stderr, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel)),
	}
	if opts.withMetrics && cfg.MetricsAddr != "" {
		a.metrics = metrics.NewCollector(cfg.VenueConcurrency, cfg.StationReloadInterval)
	}

	load, err := a.stationSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = station.NewStore(nil)
	a.reloader = station.NewReloader(a.store, load, cfg.StationReloadInterval, a.reloadMetrics(), a.logger)
	if _, err := a.reloader.Reload(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load stations: %w", err)
	}

	romanizer, err := romaji.NewKagome()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("romanizer: %w", err)
	}
	a.resolver = route.NewResolver(a.store, fuzzy.NewMatcher(romanizer), circularLines(cfg, catalog))

	categories, err := venue.NewCategories(catalog.Categories)
	if err != nil {
		a.Close()
		return nil, err
	}
	client := gurunavi.NewClient(cfg.GurunaviKey,
		gurunavi.WithBaseURL(cfg.GurunaviBaseURL),
		gurunavi.WithTimeout(cfg.VenueTimeout),
		gurunavi.WithRetry(cfg.VenueMaxRetries, cfg.VenueRetryWait),
		gurunavi.WithRateLimit(cfg.VenueRatePerSec),
		gurunavi.WithCacheTTL(cfg.VenueCacheTTL),
	)

	aggOpts := []venue.Option{venue.WithConcurrency(cfg.VenueConcurrency)}
	svcOpts := []search.Option{search.WithDefaults(cfg.VenueKeyword, cfg.VenueRange)}
	if a.metrics != nil {
		aggOpts = append(aggOpts, venue.WithMetrics(a.metrics))
		svcOpts = append(svcOpts, search.WithMetrics(a.metrics))
	}

	if opts.withEvents && cfg.NATSURL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(a.metrics), a.logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("nats: %w", err)
		}
		a.pub = pub
		a.closers = append(a.closers, pub.Close)
		svcOpts = append(svcOpts, search.WithEvents(pub))
	}

	if cfg.ImageFillWorkers > 0 {
		a.images = venue.NewImageFiller(client,
			venue.WithImageWorkers(cfg.ImageFillWorkers),
			venue.WithImageTimeout(cfg.ImageFillTimeout),
		)
	}

	a.service = search.NewService(a.resolver, venue.NewAggregator(client, categories, aggOpts...), categories, svcOpts...)
	return a, nil
}

// stationSource opens the configured station source and returns its loader.
func (a *app) stationSource(ctx context.Context) (station.LoadFunc, error) {
	cfg := a.cfg
	switch cfg.StationSource {
	case "csv":
		return func(context.Context) ([]station.Station, error) {
			return db.LoadCSV(cfg.StationCSVPath, cfg.StationCSVEncoding)
		}, nil
	default:
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		a.closers = append(a.closers, func() { logging.SafeClose(sqlDB, a.logger, "close database") })
		if err := db.Ping(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		a.logger.Info("station database connected",
			slog.String("dsn", db.Redact(cfg.DatabaseURL)),
			slog.String("table", cfg.StationTable))
		return func(ctx context.Context) ([]station.Station, error) {
			if err := db.Ping(ctx, sqlDB); err != nil {
				return nil, fmt.Errorf("db ping: %w", err)
			}
			return db.LoadStations(ctx, sqlDB, cfg.StationTable)
		}, nil
	}
}

// imageFiller returns the photo back-fill stage, or nil when it is disabled.
func (a *app) imageFiller() httpapi.ImageFiller {
	if a.images == nil {
		return nil
	}
	return a.images
}

func (a *app) reloadMetrics() station.ReloadMetrics {
	if a.metrics == nil {
		return nil
	}
	return a.metrics
}

// Close stops background work and releases connections in reverse order.
func (a *app) Close() {
	if a.reloader != nil {
		a.reloader.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// circularLines combines the configured loop lines (CIRCULAR_LINES or its
// default) with the lines a catalog file lists explicitly.
func circularLines(cfg *config.Config, cat config.Catalog) []string {
	return mergeLines(cfg.CircularLines, cat.CircularLines)
}

// mergeLines returns the union of both lists, keeping first-seen order.
func mergeLines(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lists {
		for _, name := range l {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
