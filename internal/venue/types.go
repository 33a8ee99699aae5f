package venue

import (
	"context"
	"fmt"
)

// DefaultSource names the listing provider on records whose Raw entry does
// not say otherwise.
const DefaultSource = "ぐるなび"

// DefaultRange is the search radius tier used when none is given.
const DefaultRange = 3

// rangeMeters maps a search radius tier to its radius in meters.
var rangeMeters = map[int]int{1: 300, 2: 500, 3: 1000, 4: 2000, 5: 3000}

// RangeMeters returns the radius in meters of a tier, or false for tiers
// outside 1..5.
func RangeMeters(tier int) (int, bool) {
	m, ok := rangeMeters[tier]
	return m, ok
}

// Raw is one venue as returned by a listing API.
type Raw struct {
	Name          string
	URL           string
	Address       string
	Tel           string
	OpenTime      string
	Holiday       string
	Budget        string
	AccessStation string
	AccessWalk    string
	PRShort       string
	ImageURL      string
	Category      string
	Latitude      float64
	Longitude     float64
	HasLocation   bool
	Source        string
}

// Record is a shaped venue ready for display.
type Record struct {
	Title             string  `json:"title"`
	URL               string  `json:"url"`
	Address           string  `json:"address"`
	Phone             string  `json:"phone"`
	OpenHours         string  `json:"openHours"`
	Holidays          string  `json:"holidays"`
	Budget            string  `json:"budget"`
	NearestStation    string  `json:"nearestStation"`
	WalkMinutes       string  `json:"walkMinutes"`
	PRShort           string  `json:"prShort"`
	ImageURL          string  `json:"imageUrl"`
	Category          string  `json:"category"`
	FixedStationLabel string  `json:"fixedStationLabel"`
	DistanceMeters    float64 `json:"distanceMeters"`
	HasDistance       bool    `json:"hasDistance"`
	StationLabel      string  `json:"stationLabel"`
	Source            string  `json:"source"`
}

// Access renders the venue's own access note, e.g. "渋谷駅 5分".
func (r Record) Access() string {
	switch {
	case r.NearestStation == "" && r.WalkMinutes == "":
		return ""
	case r.WalkMinutes == "":
		return r.NearestStation
	default:
		return fmt.Sprintf("%s %s分", r.NearestStation, r.WalkMinutes)
	}
}

// Query is one listing lookup around a point.
type Query struct {
	Latitude  float64
	Longitude float64
	Range     int
	Keyword   string
}

// Searcher looks venues up around a point. An empty slice with a nil error
// means nothing was found.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Raw, error)
}

// SearcherFunc adapts a function to Searcher.
type SearcherFunc func(ctx context.Context, q Query) ([]Raw, error)

func (f SearcherFunc) Search(ctx context.Context, q Query) ([]Raw, error) { return f(ctx, q) }

// Params selects what to look for around each station.
type Params struct {
	Keyword string
	Range   int
}
