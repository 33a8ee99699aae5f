package station

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
)

// ErrNotLoaded is returned by a Store that has no table yet.
var ErrNotLoaded = errors.New("station table not loaded")

// Table is an immutable, indexed snapshot of the station data.
type Table struct {
	lines    []Line
	stations map[string][]Station
	count    int
	skipped  []Station
}

// NewTable groups stations by line, keeping lines in first-seen order and
// stations in SequenceIndex order. A repeated station name on the same line
// keeps the first row; the repeats are reported by Skipped.
func NewTable(all []Station) *Table {
	sorted := append([]Station(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SequenceIndex < sorted[j].SequenceIndex })

	t := &Table{stations: make(map[string][]Station)}
	seen := make(map[string]map[string]bool) // line -> station names
	for _, s := range sorted {
		names, ok := seen[s.LineName]
		if !ok {
			names = make(map[string]bool)
			seen[s.LineName] = names
			t.lines = append(t.lines, Line{Code: s.LineCode, Name: s.LineName, NameRomanized: s.LineNameRomanized})
		}
		if _, dup := names[s.StationName]; dup {
			t.skipped = append(t.skipped, s)
			continue
		}
		names[s.StationName] = true
		t.stations[s.LineName] = append(t.stations[s.LineName], s)
		t.count++
	}
	return t
}

func (t *Table) Lines(_ context.Context) ([]Line, error) {
	return append([]Line(nil), t.lines...), nil
}

// Stations returns the stations of line, or nil when the line is unknown.
func (t *Table) Stations(_ context.Context, line string) ([]Station, error) {
	st, ok := t.stations[line]
	if !ok {
		return nil, nil
	}
	return append([]Station(nil), st...), nil
}

func (t *Table) LineCount() int    { return len(t.lines) }
func (t *Table) StationCount() int { return t.count }

// Skipped lists rows dropped as duplicate station names within a line.
func (t *Table) Skipped() []Station { return t.skipped }

// Store holds the current Table and lets a reloader swap it while searches
// are running. It implements Repository.
type Store struct {
	table atomic.Pointer[Table]
}

func NewStore(t *Table) *Store {
	s := &Store{}
	if t != nil {
		s.table.Store(t)
	}
	return s
}

func (s *Store) Swap(t *Table) { s.table.Store(t) }

func (s *Store) Current() *Table { return s.table.Load() }

func (s *Store) Lines(ctx context.Context) ([]Line, error) {
	t := s.table.Load()
	if t == nil {
		return nil, ErrNotLoaded
	}
	return t.Lines(ctx)
}

func (s *Store) Stations(ctx context.Context, line string) ([]Station, error) {
	t := s.table.Load()
	if t == nil {
		return nil, fmt.Errorf("stations for %q: %w", line, ErrNotLoaded)
	}
	return t.Stations(ctx, line)
}
