package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Searches       *prometheus.CounterVec // outcome label: ok|invalid_input|unknown_line|unknown_station|no_results|error
	SearchDuration prometheus.Histogram

	VenueQueries       *prometheus.CounterVec // result label: ok|empty|error
	VenueQueryDuration prometheus.Histogram

	StationsLoaded prometheus.Gauge
	LinesLoaded    prometheus.Gauge
	StationReloads *prometheus.CounterVec // result label: ok|error

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	VenueConcurrency prometheus.Gauge
	ReloadInterval   prometheus.Gauge // seconds
}

func NewCollector(venueConcurrency int, reloadInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stopover_searches_total",
			Help: "Searches handled, by outcome.",
		}, []string{"outcome"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stopover_search_duration_seconds",
			Help:    "End-to-end duration of a search.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		VenueQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stopover_venue_queries_total",
			Help: "Per-station venue API queries, by result.",
		}, []string{"result"}),
		VenueQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stopover_venue_query_duration_seconds",
			Help:    "Duration of one per-station venue query including retries.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		StationsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stopover_stations_loaded",
			Help: "Stations in the current station table.",
		}),
		LinesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stopover_lines_loaded",
			Help: "Lines in the current station table.",
		}),
		StationReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stopover_station_reloads_total",
			Help: "Station table reload attempts, by result.",
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stopover_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stopover_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stopover_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stopover_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		VenueConcurrency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stopover_venue_concurrency",
			Help: "Maximum per-station venue queries in flight.",
		}),
		ReloadInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stopover_station_reload_interval_seconds",
			Help: "Station table reload interval in seconds.",
		}),
	}

	// Register
	reg.MustRegister(
		c.Searches, c.SearchDuration,
		c.VenueQueries, c.VenueQueryDuration,
		c.StationsLoaded, c.LinesLoaded, c.StationReloads,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.VenueConcurrency, c.ReloadInterval,
	)

	// Set static gauges
	c.VenueConcurrency.Set(float64(venueConcurrency))
	c.ReloadInterval.Set(reloadInterval.Seconds())

	return c
}

// SearchObserve records one finished search.
func (c *Collector) SearchObserve(outcome string, d time.Duration) {
	c.Searches.WithLabelValues(outcome).Inc()
	c.SearchDuration.Observe(d.Seconds())
}

// VenueQueryObserve records one per-station venue query.
func (c *Collector) VenueQueryObserve(result string, d time.Duration) {
	c.VenueQueries.WithLabelValues(result).Inc()
	c.VenueQueryDuration.Observe(d.Seconds())
}

// StationTableLoaded records the size of a freshly swapped station table.
func (c *Collector) StationTableLoaded(lines, stations int) {
	c.LinesLoaded.Set(float64(lines))
	c.StationsLoaded.Set(float64(stations))
}

func (c *Collector) StationReloadInc(result string) {
	c.StationReloads.WithLabelValues(result).Inc()
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	logger.Info("metrics listening", slog.String("addr", addr))
	return srv
}
