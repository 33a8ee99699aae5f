package venue

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"stopover-food/internal/apperr"
	"stopover-food/internal/logging"
	"stopover-food/internal/route"

	"golang.org/x/sync/errgroup"
)

const (
	prMaxRunes     = 48
	labelMaxMeters = 1000.0
	stationSuffix  = "駅"
)

// Query results reported to Metrics.
const (
	ResultOK    = "ok"
	ResultEmpty = "empty"
	ResultError = "error"
)

type Metrics interface {
	VenueQueryObserve(result string, d time.Duration)
}

// Aggregator queries a Searcher around every stop of a section and merges
// the answers into one list in section order.
type Aggregator struct {
	searcher    Searcher
	categories  *Categories
	concurrency int
	metrics     Metrics
}

type Option func(*Aggregator)

// WithConcurrency bounds the number of stop queries in flight.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func NewAggregator(s Searcher, cats *Categories, opts ...Option) *Aggregator {
	a := &Aggregator{searcher: s, categories: cats, concurrency: 4}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate looks venues up around each stop. A stop whose query fails adds
// nothing; the other stops still count. No venues at all is an empty slice
// and a nil error.
func (a *Aggregator) Aggregate(ctx context.Context, stops []route.SectionStop, p Params) ([]Record, error) {
	cat, err := a.categories.lookup(p.Keyword)
	if err != nil {
		return nil, err
	}
	if p.Range == 0 {
		p.Range = DefaultRange
	}
	if _, ok := RangeMeters(p.Range); !ok {
		return nil, fmt.Errorf("range tier %d: %w", p.Range, apperr.ErrInvalidInput)
	}

	logger := logging.FromContext(ctx)
	batches := make([][]Record, len(stops))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, stop := range stops {
		g.Go(func() error {
			start := time.Now()
			raws, err := a.searcher.Search(gctx, Query{
				Latitude:  stop.Latitude,
				Longitude: stop.Longitude,
				Range:     p.Range,
				Keyword:   cat.keyword,
			})
			result := ResultOK
			switch {
			case err != nil:
				result = ResultError
				logging.LogError(logger, "venue query failed", err,
					slog.String("station", stop.StationName),
					slog.Int("position", i))
				raws = nil
			case len(raws) == 0:
				result = ResultEmpty
			}
			if a.metrics != nil {
				a.metrics.VenueQueryObserve(result, time.Since(start))
			}
			batches[i] = shapeBatch(stop, raws, cat)
			// per-stop failures never cancel siblings
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []Record
	for _, b := range batches {
		all = append(all, b...)
	}
	return Merge(all), nil
}

func shapeBatch(stop route.SectionStop, raws []Raw, cat *category) []Record {
	out := make([]Record, 0, len(raws))
	for _, raw := range raws {
		if !cat.re.MatchString(raw.Category) {
			continue
		}
		out = append(out, Shape(stop, raw))
	}
	return out
}

// Shape turns a raw listing found around stop into a display record.
func Shape(stop route.SectionStop, raw Raw) Record {
	rec := Record{
		Title:             raw.Name,
		URL:               raw.URL,
		Address:           raw.Address,
		Phone:             raw.Tel,
		OpenHours:         raw.OpenTime,
		Holidays:          raw.Holiday,
		Budget:            raw.Budget,
		NearestStation:    raw.AccessStation,
		WalkMinutes:       raw.AccessWalk,
		PRShort:           truncateRunes(raw.PRShort, prMaxRunes),
		ImageURL:          raw.ImageURL,
		Category:          raw.Category,
		FixedStationLabel: stop.StationName + stationSuffix,
		Source:            raw.Source,
	}
	if rec.Source == "" {
		rec.Source = DefaultSource
	}
	// the API sometimes repeats the PR text in opentime
	if raw.OpenTime != "" && raw.OpenTime == raw.PRShort {
		rec.OpenHours = ""
	}
	if raw.HasLocation {
		rec.DistanceMeters = haversine(stop.Latitude, stop.Longitude, raw.Latitude, raw.Longitude)
		rec.HasDistance = true
	}
	rec.StationLabel = stationLabel(rec)
	return rec
}

func stationLabel(r Record) string {
	if r.HasDistance && r.DistanceMeters <= labelMaxMeters {
		return fmt.Sprintf("%s: %dm", r.FixedStationLabel, int(math.Round(r.DistanceMeters)))
	}
	return r.FixedStationLabel
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// Merge collapses records sharing a title into the first one seen, appending
// the later station labels. Merging an already merged list is a no-op.
func Merge(records []Record) []Record {
	out := make([]Record, 0, len(records))
	idx := make(map[string]int, len(records))
	for _, r := range records {
		i, seen := idx[r.Title]
		if !seen {
			idx[r.Title] = len(out)
			out = append(out, r)
			continue
		}
		if r.StationLabel != "" {
			out[i].StationLabel = strings.TrimSpace(out[i].StationLabel + " " + r.StationLabel)
		}
	}
	return out
}
