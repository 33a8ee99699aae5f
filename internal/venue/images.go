package venue

import (
	"context"
	"log/slog"
	"time"

	"stopover-food/internal/logging"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultImageWorkers = 5
	DefaultImageTimeout = 3 * time.Second
)

// ImageFetcher finds the main photo on a venue's page.
type ImageFetcher interface {
	FetchImage(ctx context.Context, pageURL string) (string, error)
}

// ImageFiller back-fills ImageURL for records the search API returned
// without one.
type ImageFiller struct {
	fetcher ImageFetcher
	workers int
	timeout time.Duration
}

type ImageOption func(*ImageFiller)

func WithImageWorkers(n int) ImageOption {
	return func(f *ImageFiller) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithImageTimeout bounds each page fetch.
func WithImageTimeout(d time.Duration) ImageOption {
	return func(f *ImageFiller) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func NewImageFiller(fetcher ImageFetcher, opts ...ImageOption) *ImageFiller {
	f := &ImageFiller{fetcher: fetcher, workers: DefaultImageWorkers, timeout: DefaultImageTimeout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fill returns a copy of records in the same order. Records with a page URL
// and no image get the page's photo; a failed lookup leaves the record as it
// was.
func (f *ImageFiller) Fill(ctx context.Context, records []Record) []Record {
	out := append([]Record(nil), records...)
	logger := logging.FromContext(ctx)

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i := range out {
		if out[i].URL == "" || out[i].ImageURL != "" {
			continue
		}
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()
			img, err := f.fetcher.FetchImage(fctx, out[i].URL)
			if err != nil {
				logger.Debug("image lookup failed",
					slog.String("title", out[i].Title),
					slog.String("error", err.Error()))
				return nil
			}
			out[i].ImageURL = img
			return nil
		})
	}
	_ = g.Wait()
	return out
}
