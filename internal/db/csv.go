package db

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"stopover-food/internal/station"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// CSVHeaders are the columns written by the station crawler.
var CSVHeaders = []string{"line_cd", "station_cd", "line_name", "line_name_roman", "station_name", "station_name_roman", "lat", "lon"}

// LoadCSV reads a station CSV file. encoding is "cp932" (Shift_JIS, as the
// crawler writes it) or "utf-8".
func LoadCSV(path, encoding string) ([]station.Station, error) {
	// #nosec G304 -- path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open station csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, encoding)
}

// ReadCSV parses station rows; SequenceIndex is the data row number.
func ReadCSV(r io.Reader, encoding string) ([]station.Station, error) {
	switch strings.ToLower(encoding) {
	case "cp932", "shift_jis", "sjis":
		r = transform.NewReader(r, japanese.ShiftJIS.NewDecoder())
	case "", "utf-8", "utf8":
	default:
		return nil, fmt.Errorf("unsupported csv encoding %q", encoding)
	}

	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("station csv is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, h := range CSVHeaders {
		if _, ok := col[h]; !ok {
			return nil, fmt.Errorf("station csv missing column %q", h)
		}
	}

	var out []station.Station
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		s, err := parseRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		s.SequenceIndex = len(out)
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, errors.New("station csv has no rows")
	}
	return out, nil
}

func parseRecord(rec []string, col map[string]int) (station.Station, error) {
	get := func(name string) string { return strings.TrimSpace(rec[col[name]]) }

	lineCode, err := strconv.Atoi(get("line_cd"))
	if err != nil {
		return station.Station{}, fmt.Errorf("line_cd: %w", err)
	}
	stationCode, err := strconv.Atoi(get("station_cd"))
	if err != nil {
		return station.Station{}, fmt.Errorf("station_cd: %w", err)
	}
	lat, err := strconv.ParseFloat(get("lat"), 64)
	if err != nil {
		return station.Station{}, fmt.Errorf("lat: %w", err)
	}
	lon, err := strconv.ParseFloat(get("lon"), 64)
	if err != nil {
		return station.Station{}, fmt.Errorf("lon: %w", err)
	}
	return station.Station{
		LineCode:             lineCode,
		StationCode:          stationCode,
		LineName:             get("line_name"),
		LineNameRomanized:    get("line_name_roman"),
		StationName:          get("station_name"),
		StationNameRomanized: get("station_name_roman"),
		Latitude:             lat,
		Longitude:            lon,
	}, nil
}
