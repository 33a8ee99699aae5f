package route

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"stopover-food/internal/apperr"
	"stopover-food/internal/fuzzy"
	"stopover-food/internal/logging"
	"stopover-food/internal/station"
)

const stationSuffix = "駅"

type SectionStop struct {
	Longitude   float64
	Latitude    float64
	StationName string
}

// Section is the ordered run of stations between a boarding and an alighting
// station on one line. Stops[0] is the boarding station.
type Section struct {
	Line     string
	Stops    []SectionStop
	Circular bool
	Wrapped  bool // the arc passes the end of the stored sequence
}

type Resolver struct {
	repo     station.Repository
	matcher  *fuzzy.Matcher
	circular map[string]bool
}

func NewResolver(repo station.Repository, matcher *fuzzy.Matcher, circularLines []string) *Resolver {
	c := make(map[string]bool, len(circularLines))
	for _, l := range circularLines {
		c[l] = true
	}
	return &Resolver{repo: repo, matcher: matcher, circular: c}
}

// IsCircular reports whether line is configured as a loop line.
func (r *Resolver) IsCircular(line string) bool { return r.circular[line] }

// NormalizeStation trims blanks and one trailing 駅.
func NormalizeStation(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSpace(strings.TrimSuffix(name, stationSuffix))
}

// Resolve validates the line and both stations, then returns the section
// between them oriented from start to end. Validation failures are
// *apperr.ValidationError values carrying suggestions.
func (r *Resolver) Resolve(ctx context.Context, lineName, startName, endName string) (Section, error) {
	lineName = strings.TrimSpace(lineName)
	startName = NormalizeStation(startName)
	endName = NormalizeStation(endName)
	switch {
	case lineName == "":
		return Section{}, apperr.MissingField("line")
	case startName == "":
		return Section{}, apperr.MissingField(apperr.Start)
	case endName == "":
		return Section{}, apperr.MissingField(apperr.End)
	}

	lines, err := r.repo.Lines(ctx)
	if err != nil {
		return Section{}, fmt.Errorf("list lines: %w", err)
	}
	if !containsLine(lines, lineName) {
		cands := make([]fuzzy.Candidate, 0, len(lines))
		for _, l := range lines {
			cands = append(cands, fuzzy.Candidate{Display: l.Name, Romanized: l.NameRomanized})
		}
		return Section{}, apperr.NewUnknownLine(lineName, r.suggest(ctx, lineName, cands))
	}

	stations, err := r.repo.Stations(ctx, lineName)
	if err != nil {
		return Section{}, fmt.Errorf("stations of %s: %w", lineName, err)
	}
	pos := make(map[string]int, len(stations))
	for i, s := range stations {
		if _, dup := pos[s.StationName]; !dup {
			pos[s.StationName] = i
		}
	}

	si, ok := pos[startName]
	if !ok {
		return Section{}, apperr.NewUnknownStation(lineName, apperr.Start, startName, r.suggest(ctx, startName, stationCandidates(stations)))
	}
	ei, ok := pos[endName]
	if !ok {
		return Section{}, apperr.NewUnknownStation(lineName, apperr.End, endName, r.suggest(ctx, endName, stationCandidates(stations)))
	}

	order, wrapped := sectionOrder(si, ei, len(stations), r.circular[lineName])
	stops := make([]SectionStop, 0, len(order))
	for _, i := range order {
		s := stations[i]
		stops = append(stops, SectionStop{Longitude: s.Longitude, Latitude: s.Latitude, StationName: s.StationName})
	}
	return Section{Line: lineName, Stops: stops, Circular: r.circular[lineName], Wrapped: wrapped}, nil
}

// sectionOrder returns the positions visited going from start to end on a
// line of n stations. On a circular line the arc through the ends of the
// sequence is used only when it has strictly fewer stations.
func sectionOrder(start, end, n int, circular bool) ([]int, bool) {
	lo, hi := start, end
	if lo > hi {
		lo, hi = hi, lo
	}
	inside := hi - lo + 1
	wrap := (lo + 1) + (n - hi)

	if circular && wrap < inside {
		// The wrap arc is listed as the rider travels it, boarding station
		// first, not as the ascending span [0..lo, hi..n-1].
		out := make([]int, 0, wrap)
		if start == lo {
			for i := lo; i >= 0; i-- {
				out = append(out, i)
			}
			for i := n - 1; i >= hi; i-- {
				out = append(out, i)
			}
		} else {
			for i := hi; i < n; i++ {
				out = append(out, i)
			}
			for i := 0; i <= lo; i++ {
				out = append(out, i)
			}
		}
		return out, true
	}

	out := make([]int, 0, inside)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	if start > end {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, false
}

// suggest never fails the caller: a matcher error only costs the suggestions.
func (r *Resolver) suggest(ctx context.Context, query string, cands []fuzzy.Candidate) []string {
	if r.matcher == nil || len(cands) == 0 {
		return nil
	}
	out, err := r.matcher.Suggest(query, cands, fuzzy.DefaultLimit)
	if err != nil {
		logging.LogError(logging.FromContext(ctx), "suggestion failed", err, slog.String("query", query))
		return nil
	}
	return out
}

// Lines lists every known line in repository order.
func (r *Resolver) Lines(ctx context.Context) ([]station.Line, error) {
	return r.repo.Lines(ctx)
}

// Stations lists the stations of an exact line name; unknown lines yield a
// validation error with suggestions.
func (r *Resolver) Stations(ctx context.Context, lineName string) ([]station.Station, error) {
	lineName = strings.TrimSpace(lineName)
	if lineName == "" {
		return nil, apperr.MissingField("line")
	}
	st, err := r.repo.Stations(ctx, lineName)
	if err != nil {
		return nil, err
	}
	if len(st) == 0 {
		lines, err := r.repo.Lines(ctx)
		if err != nil {
			return nil, fmt.Errorf("list lines: %w", err)
		}
		cands := make([]fuzzy.Candidate, 0, len(lines))
		for _, l := range lines {
			cands = append(cands, fuzzy.Candidate{Display: l.Name, Romanized: l.NameRomanized})
		}
		return nil, apperr.NewUnknownLine(lineName, r.suggest(ctx, lineName, cands))
	}
	return st, nil
}

func containsLine(lines []station.Line, name string) bool {
	for _, l := range lines {
		if l.Name == name {
			return true
		}
	}
	return false
}

func stationCandidates(stations []station.Station) []fuzzy.Candidate {
	out := make([]fuzzy.Candidate, 0, len(stations))
	for _, s := range stations {
		out = append(out, fuzzy.Candidate{Display: s.StationName, Romanized: s.StationNameRomanized})
	}
	return out
}
