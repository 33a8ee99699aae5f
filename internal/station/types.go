package station

import "context"

type Station struct {
	LineCode             int     `db:"line_cd"`
	StationCode          int     `db:"station_cd"`
	LineName             string  `db:"line_name"`
	LineNameRomanized    string  `db:"line_name_roman"`
	StationName          string  `db:"station_name"`
	StationNameRomanized string  `db:"station_name_roman"`
	Longitude            float64 `db:"lon"`
	Latitude             float64 `db:"lat"`
	SequenceIndex        int     `db:"index"` // position in the source ordering
}

type Line struct {
	Code          int
	Name          string
	NameRomanized string
}

// Repository is the read-only view of the station table used by a search.
// Lines and stations are returned in source order.
type Repository interface {
	Lines(ctx context.Context) ([]Line, error)
	Stations(ctx context.Context, line string) ([]Station, error)
}
