package station

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// LoadFunc reads every station row from the backing source.
type LoadFunc func(ctx context.Context) ([]Station, error)

type ReloadMetrics interface {
	StationTableLoaded(lines, stations int)
	StationReloadInc(result string)
}

// Reloader rebuilds the Store's table from a LoadFunc, once on demand and
// optionally on a fixed interval. A failed reload keeps the previous table.
type Reloader struct {
	store    *Store
	load     LoadFunc
	interval time.Duration
	metrics  ReloadMetrics
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewReloader(store *Store, load LoadFunc, interval time.Duration, m ReloadMetrics, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{store: store, load: load, interval: interval, metrics: m, logger: logger}
}

// Reload loads a fresh table and swaps it in. An empty result is treated as
// a failure so a truncated source never replaces a good table.
func (r *Reloader) Reload(ctx context.Context) (*Table, error) {
	rows, err := r.load(ctx)
	if err == nil && len(rows) == 0 {
		err = errors.New("station source returned no rows")
	}
	if err != nil {
		r.count("error")
		return nil, err
	}

	t := NewTable(rows)
	r.store.Swap(t)
	r.count("ok")
	if r.metrics != nil {
		r.metrics.StationTableLoaded(t.LineCount(), t.StationCount())
	}
	for _, s := range t.Skipped() {
		r.logger.Warn("duplicate station skipped",
			slog.String("line", s.LineName),
			slog.String("station", s.StationName),
			slog.Int("index", s.SequenceIndex))
	}
	r.logger.Info("station table loaded",
		slog.Int("lines", t.LineCount()),
		slog.Int("stations", t.StationCount()))
	return t, nil
}

// Start launches the periodic reload loop. It is a no-op when the interval
// is not positive.
func (r *Reloader) Start(parent context.Context) {
	if r.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Reload(ctx); err != nil {
					r.logger.Error("station reload failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop ends the reload loop and waits for an in-flight reload to finish.
func (r *Reloader) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Reloader) count(result string) {
	if r.metrics != nil {
		r.metrics.StationReloadInc(result)
	}
}
