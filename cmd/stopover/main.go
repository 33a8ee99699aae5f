package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stopover-food/internal/httpapi"
	"stopover-food/internal/logging"
	"stopover-food/internal/output"
	"stopover-food/internal/search"
	"stopover-food/internal/venue"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stopover",
	Short: "Find food along a train ride",
	Long: `stopover looks up every station between a boarding and an alighting
station on one railway line and lists the restaurants of a category near
each of them.

Station data comes from Postgres (STATION_SOURCE=postgres) or a CSV file
(STATION_SOURCE=csv); venues come from the Gurunavi restaurant search API
(GURUNAVI_KEY). Configuration is read from the environment and .env.

Quick Start:
  1. List lines:          stopover lines
  2. List stations:       stopover stations 東急東横線
  3. Search a section:    stopover search 東急東横線 横浜 自由が丘
  4. Run the HTTP API:    stopover serve`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Global flags
var (
	flagJSON  bool
	flagColor string
)

// Search flags
var (
	flagCategory string
	flagRange    int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(linesCmd)
	rootCmd.AddCommand(stationsCmd)

	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagColor, "color", "auto", "Color output: auto, always, never")

	searchCmd.Flags().StringVarP(&flagCategory, "category", "c", "", "Venue category keyword (default from VENUE_CATEGORY)")
	searchCmd.Flags().IntVarP(&flagRange, "range", "r", 0, "Search radius tier 1-5 (300m, 500m, 1km, 2km, 3km)")
}

func getColorMode() output.ColorMode {
	return output.ParseColorMode(flagColor)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API on HTTP_ADDR.

Endpoints:
  GET /api/search?line=&start=&end=&category=&range=&page=
  GET /api/lines
  GET /api/lines/:line/stations
  GET /healthz

Metrics are served on METRICS_ADDR when set, and search events are
published to NATS_URL when set. STATION_RELOAD_INTERVAL_SEC > 0 reloads
the station table periodically.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var searchCmd = &cobra.Command{
	Use:   "search <line> <start> <end>",
	Short: "Search venues around every station of a section",
	Long: `Search venues around every station between start and end on line.

Station names may carry a trailing 駅. On circular lines the shorter way
around is used.

Examples:
  stopover search 東急東横線 横浜 自由が丘
  stopover search JR山手線 目黒 品川 --category カフェ --range 2
  stopover search 東急東横線 渋谷 菊名 --json`,
	Args: cobra.ExactArgs(3),
	RunE: runSearch,
}

var linesCmd = &cobra.Command{
	Use:   "lines",
	Short: "List known line names",
	Args:  cobra.NoArgs,
	RunE:  runLines,
}

var stationsCmd = &cobra.Command{
	Use:   "stations <line>",
	Short: "List the stations of a line in traversal order",
	Args:  cobra.ExactArgs(1),
	RunE:  runStations,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, appOptions{withMetrics: true, withEvents: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var metricsSrv *http.Server
	if a.metrics != nil {
		metricsSrv = a.metrics.Serve(a.cfg.MetricsAddr, a.logger)
	}
	a.reloader.Start(ctx)

	api := httpapi.New(a.service, a.resolver, httpapi.Options{
		PageSize:       a.cfg.PageSize,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		Images:         a.imageFiller(),
		Logger:         a.logger,
	})
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Covers a full section fan-out including upstream retries.
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.LogError(a.logger, "http shutdown", err)
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx = logging.WithLogger(ctx, a.logger)
	resp := a.service.Search(ctx, search.Request{
		Line:    args[0],
		Start:   args[1],
		End:     args[2],
		Keyword: flagCategory,
		Range:   flagRange,
	})
	if a.images != nil && resp.Outcome == search.OutcomeOK {
		resp.Results = a.images.Fill(ctx, resp.Results)
	}

	if flagJSON {
		if err := printJSON(cmd.OutOrStdout(), toSearchJSON(resp)); err != nil {
			return err
		}
	} else {
		output.FormatSearch(cmd.OutOrStdout(), resp, output.NewColors(getColorMode()))
	}
	if resp.Outcome == search.OutcomeError || resp.Outcome == search.OutcomeInvalidInput {
		return errors.New(resp.Message)
	}
	return nil
}

func runLines(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	lines, err := a.resolver.Lines(ctx)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), lines)
	}
	output.FormatLines(cmd.OutOrStdout(), lines, output.NewColors(getColorMode()))
	return nil
}

func runStations(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	stations, err := a.resolver.Stations(ctx, args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), stations)
	}
	output.FormatStations(cmd.OutOrStdout(), stations, output.NewColors(getColorMode()))
	return nil
}

// searchJSON is the --json shape of a search, matching the HTTP API fields.
type searchJSON struct {
	Results     []venue.Record `json:"results"`
	Message     string         `json:"message"`
	Outcome     search.Outcome `json:"outcome"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Stations    []string       `json:"stations,omitempty"`
}

func toSearchJSON(resp search.Response) searchJSON {
	out := searchJSON{
		Results:     resp.Results,
		Message:     resp.Message,
		Outcome:     resp.Outcome,
		Suggestions: resp.Suggestions,
	}
	if out.Results == nil {
		out.Results = []venue.Record{}
	}
	for _, s := range resp.Section.Stops {
		out.Stations = append(out.Stations, s.StationName)
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
