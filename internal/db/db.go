package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"stopover-food/internal/station"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

func Open(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sqlx.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// stationRow mirrors the station_info table written by the station crawler.
// lat/lon are NUMERIC there and the romanized names may be NULL.
type stationRow struct {
	Index            int            `db:"index"`
	LineCode         int            `db:"line_cd"`
	StationCode      int            `db:"station_cd"`
	LineName         string         `db:"line_name"`
	LineNameRoman    sql.NullString `db:"line_name_roman"`
	StationName      string         `db:"station_name"`
	StationNameRoman sql.NullString `db:"station_name_roman"`
	Lat              float64        `db:"lat"`
	Lon              float64        `db:"lon"`
}

// LoadStations reads every station row of table ordered by its index column.
func LoadStations(ctx context.Context, db *sqlx.DB, table string) ([]station.Station, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid station table name %q", table)
	}
	q := fmt.Sprintf(`
SELECT "index", line_cd, station_cd, line_name, line_name_roman,
       station_name, station_name_roman,
       lat::float8 AS lat, lon::float8 AS lon
FROM %s
ORDER BY "index"`, table)

	var rows []stationRow
	if err := db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}
	out := make([]station.Station, 0, len(rows))
	for _, r := range rows {
		out = append(out, station.Station{
			LineCode:             r.LineCode,
			StationCode:          r.StationCode,
			LineName:             r.LineName,
			LineNameRomanized:    r.LineNameRoman.String,
			StationName:          r.StationName,
			StationNameRomanized: r.StationNameRoman.String,
			Longitude:            r.Lon,
			Latitude:             r.Lat,
			SequenceIndex:        r.Index,
		})
	}
	return out, nil
}
