package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"stopover-food/internal/search"
	"stopover-food/internal/station"
	"stopover-food/internal/venue"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
)

const defaultPageSize = 10

type Searcher interface {
	Search(ctx context.Context, req search.Request) search.Response
}

// Directory lists lines and their stations.
type Directory interface {
	Lines(ctx context.Context) ([]station.Line, error)
	Stations(ctx context.Context, line string) ([]station.Station, error)
	IsCircular(line string) bool
}

// ImageFiller back-fills photos for the records of one result page.
type ImageFiller interface {
	Fill(ctx context.Context, records []venue.Record) []venue.Record
}

type Options struct {
	PageSize       int
	AllowedOrigins []string
	Images         ImageFiller
	Logger         *slog.Logger
}

type API struct {
	searcher  Searcher
	directory Directory
	pageSize  int
	origins   []string
	images    ImageFiller
	logger    *slog.Logger
	validate  *validator.Validate
}

func New(s Searcher, d Directory, opts Options) *API {
	api := &API{
		searcher:  s,
		directory: d,
		pageSize:  opts.PageSize,
		origins:   opts.AllowedOrigins,
		images:    opts.Images,
		logger:    opts.Logger,
		validate:  validator.New(),
	}
	if api.pageSize <= 0 {
		api.pageSize = defaultPageSize
	}
	if api.logger == nil {
		api.logger = slog.Default()
	}
	return api
}

func (api *API) routes() *httprouter.Router {
	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/api/search", api.searchHandler)
	router.HandlerFunc(http.MethodGet, "/api/lines", api.linesHandler)
	router.HandlerFunc(http.MethodGet, "/api/lines/:line/stations", api.stationsHandler)
	router.HandlerFunc(http.MethodGet, "/healthz", api.healthHandler)
	router.NotFound = http.HandlerFunc(api.notFoundHandler)
	return router
}

// Handler returns the routed API wrapped in CORS, compression and request
// logging.
func (api *API) Handler() http.Handler {
	var h http.Handler = api.routes()
	h = applyGzipMiddleware(h)
	h = applyCORSMiddleware(h, api.origins)
	return NewRequestLoggingMiddleware(api.logger)(h)
}
