package output

import (
	"fmt"
	"io"
	"strings"

	"stopover-food/internal/search"
	"stopover-food/internal/station"
)

// FormatSearch writes a search response as a readable listing.
func FormatSearch(w io.Writer, resp search.Response, c *Colors) {
	if len(resp.Section.Stops) > 0 {
		names := make([]string, 0, len(resp.Section.Stops))
		for _, s := range resp.Section.Stops {
			names = append(names, s.StationName)
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", c.Header("%s", resp.Section.Line), c.Station("%s", strings.Join(names, " → ")))
	}

	if resp.Outcome != search.OutcomeOK {
		_, _ = fmt.Fprintln(w, c.Warn("%s", resp.Message))
		return
	}
	_, _ = fmt.Fprintln(w, c.Muted("%s", resp.Message))

	for i, r := range resp.Results {
		_, _ = fmt.Fprintf(w, "\n%3d. %s  %s\n", i+1, c.Title("%s", r.Title), c.Category("%s", r.Category))
		_, _ = fmt.Fprintf(w, "     %s\n", c.Station("%s", r.StationLabel))
		if a := r.Access(); a != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", c.Muted("%s", a))
		}
		if r.PRShort != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", r.PRShort)
		}
		if r.URL != "" {
			_, _ = fmt.Fprintf(w, "     %s\n", c.URL("%s", r.URL))
		}
	}
}

// FormatLines writes one line name per row.
func FormatLines(w io.Writer, lines []station.Line, c *Colors) {
	for _, l := range lines {
		if l.NameRomanized != "" {
			_, _ = fmt.Fprintf(w, "%s  %s\n", c.Title("%s", l.Name), c.Muted("%s", l.NameRomanized))
			continue
		}
		_, _ = fmt.Fprintln(w, c.Title("%s", l.Name))
	}
}

// FormatStations writes a line's stations in traversal order.
func FormatStations(w io.Writer, stations []station.Station, c *Colors) {
	for i, s := range stations {
		_, _ = fmt.Fprintf(w, "%3d. %s  %s\n", i+1, c.Station("%s", s.StationName), c.Muted("%.6f,%.6f", s.Latitude, s.Longitude))
	}
}
