package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"stopover-food/internal/apperr"
	"stopover-food/internal/logging"
	"stopover-food/internal/route"
	"stopover-food/internal/search"
	"stopover-food/internal/station"
	"stopover-food/internal/venue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	last search.Request
	resp search.Response
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) search.Response {
	f.last = req
	return f.resp
}

type fakeDirectory struct {
	lines    []station.Line
	stations map[string][]station.Station
	circular map[string]bool
	err      error
}

func (f *fakeDirectory) IsCircular(line string) bool { return f.circular[line] }

func (f *fakeDirectory) Lines(context.Context) ([]station.Line, error) {
	return f.lines, f.err
}

func (f *fakeDirectory) Stations(_ context.Context, line string) ([]station.Station, error) {
	if f.err != nil {
		return nil, f.err
	}
	st, ok := f.stations[line]
	if !ok {
		return nil, apperr.NewUnknownLine(line, []string{"東急東横線"})
	}
	return st, nil
}

func records(n int) []venue.Record {
	out := make([]venue.Record, n)
	for i := range out {
		out[i] = venue.Record{Title: fmt.Sprintf("店%02d", i), StationLabel: "横浜駅: 100m"}
	}
	return out
}

func newTestAPI(s *fakeSearcher, d *fakeDirectory, buf *bytes.Buffer) http.Handler {
	if buf == nil {
		buf = &bytes.Buffer{}
	}
	logger := logging.NewStructuredLogger(buf, "json", slog.LevelInfo)
	return New(s, d, Options{PageSize: 10, Logger: logger}).Handler()
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func searchURL(v url.Values) string { return "/api/search?" + v.Encode() }

func TestSearchHandler_Paginates(t *testing.T) {
	s := &fakeSearcher{resp: search.Response{
		Results: records(25),
		Message: "25件の店舗が見つかりました",
		Outcome: search.OutcomeOK,
		Section: route.Section{Stops: []route.SectionStop{{StationName: "横浜"}, {StationName: "反町"}}},
	}}
	h := newTestAPI(s, &fakeDirectory{}, nil)

	v := url.Values{"line": {"東急東横線"}, "start": {"横浜"}, "end": {"反町"}, "category": {"ラーメン"}, "range": {"2"}, "page": {"3"}}
	rec, body := get(t, h, searchURL(v))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, search.Request{Line: "東急東横線", Start: "横浜", End: "反町", Keyword: "ラーメン", Range: 2}, s.last)
	assert.Equal(t, float64(3), body["page"])
	assert.Equal(t, float64(3), body["pageCount"])
	assert.Equal(t, float64(25), body["total"])
	assert.Equal(t, "ok", body["outcome"])
	assert.Equal(t, []any{"横浜", "反町"}, body["stations"])

	results := body["results"].([]any)
	require.Len(t, results, 5)
	assert.Equal(t, "店20", results[0].(map[string]any)["title"])
}

func TestSearchHandler_PagePastEnd(t *testing.T) {
	s := &fakeSearcher{resp: search.Response{Results: records(3), Outcome: search.OutcomeOK}}
	h := newTestAPI(s, &fakeDirectory{}, nil)

	v := url.Values{"line": {"a"}, "start": {"b"}, "end": {"c"}, "page": {"4"}}
	rec, body := get(t, h, searchURL(v))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["results"])
	assert.Equal(t, float64(1), body["pageCount"])
}

type fakeImages struct{ seen []string }

func (f *fakeImages) Fill(_ context.Context, recs []venue.Record) []venue.Record {
	out := append([]venue.Record(nil), recs...)
	for i := range out {
		f.seen = append(f.seen, out[i].Title)
		out[i].ImageURL = "https://c-r.gnst.jp/" + out[i].Title + ".jpg"
	}
	return out
}

func TestSearchHandler_FillsImagesForPage(t *testing.T) {
	s := &fakeSearcher{resp: search.Response{Results: records(15), Outcome: search.OutcomeOK}}
	imgs := &fakeImages{}
	h := New(s, &fakeDirectory{}, Options{PageSize: 10, Images: imgs}).Handler()

	v := url.Values{"line": {"a"}, "start": {"b"}, "end": {"c"}, "page": {"2"}}
	rec, body := get(t, h, searchURL(v))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"店10", "店11", "店12", "店13", "店14"}, imgs.seen)

	results := body["results"].([]any)
	require.Len(t, results, 5)
	assert.Equal(t, "https://c-r.gnst.jp/店10.jpg", results[0].(map[string]any)["imageUrl"])
}

func TestSearchHandler_MissingFields(t *testing.T) {
	s := &fakeSearcher{}
	h := newTestAPI(s, &fakeDirectory{}, nil)

	rec, body := get(t, h, searchURL(url.Values{"line": {"東急東横線"}, "start": {" "}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fe := body["fieldErrors"].(map[string]any)
	assert.Contains(t, fe, "start")
	assert.Contains(t, fe, "end")
	assert.NotContains(t, fe, "line")
	assert.Equal(t, "未入力の項目があります", body["message"])
	assert.Equal(t, search.Request{}, s.last)
}

func TestSearchHandler_BadNumbers(t *testing.T) {
	h := newTestAPI(&fakeSearcher{}, &fakeDirectory{}, nil)

	v := url.Values{"line": {"a"}, "start": {"b"}, "end": {"c"}, "range": {"x"}, "page": {"0"}}
	rec, body := get(t, h, searchURL(v))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fe := body["fieldErrors"].(map[string]any)
	assert.Equal(t, []any{"must be an integer"}, fe["range"])
	assert.Equal(t, []any{"must be at least 1"}, fe["page"])
	assert.Nil(t, body["message"])

	v.Set("range", "6")
	v.Set("page", "1")
	rec, body = get(t, h, searchURL(v))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []any{"must be at most 5"}, body["fieldErrors"].(map[string]any)["range"])
}

func TestSearchHandler_OutcomeStatus(t *testing.T) {
	tests := []struct {
		outcome search.Outcome
		status  int
	}{
		{search.OutcomeUnknownLine, http.StatusOK},
		{search.OutcomeNoResults, http.StatusOK},
		{search.OutcomeInvalidInput, http.StatusBadRequest},
		{search.OutcomeError, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			s := &fakeSearcher{resp: search.Response{Outcome: tt.outcome, Message: "m", Suggestions: []string{"x"}}}
			h := newTestAPI(s, &fakeDirectory{}, nil)

			rec, body := get(t, h, searchURL(url.Values{"line": {"a"}, "start": {"b"}, "end": {"c"}}))
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, string(tt.outcome), body["outcome"])
			assert.Equal(t, "m", body["message"])
		})
	}
}

func TestLinesHandler(t *testing.T) {
	d := &fakeDirectory{
		lines:    []station.Line{{Code: 26001, Name: "東急東横線", NameRomanized: "toukyuutouyokosen"}, {Code: 11302, Name: "JR山手線"}},
		circular: map[string]bool{"JR山手線": true},
	}
	h := newTestAPI(&fakeSearcher{}, d, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/lines", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var lines []lineResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	assert.Equal(t, []lineResponse{
		{Code: 26001, Name: "東急東横線", NameRomanized: "toukyuutouyokosen"},
		{Code: 11302, Name: "JR山手線", Circular: true},
	}, lines)
}

func TestStationsHandler(t *testing.T) {
	d := &fakeDirectory{stations: map[string][]station.Station{
		"東急東横線": {{StationCode: 1, StationName: "渋谷", Latitude: 35.65, Longitude: 139.70}},
	}}
	h := newTestAPI(&fakeSearcher{}, d, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/lines/"+url.PathEscape("東急東横線")+"/stations", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var st []stationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	require.Len(t, st, 1)
	assert.Equal(t, "渋谷", st[0].Name)

	rec, body := get(t, h, "/api/lines/"+url.PathEscape("東横線")+"/stations")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown_line", body["outcome"])
	assert.Equal(t, "東横線は正しい路線名ではありません、正式名称で入力してください。もしかして: 東急東横線", body["message"])
}

func TestHealthHandler(t *testing.T) {
	h := newTestAPI(&fakeSearcher{}, &fakeDirectory{lines: []station.Line{{Name: "a"}, {Name: "b"}}}, nil)
	rec, body := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["lines"])

	h = newTestAPI(&fakeSearcher{}, &fakeDirectory{err: station.ErrNotLoaded}, nil)
	rec, _ = get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = get(t, h, "/api/lines")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFound(t *testing.T) {
	h := newTestAPI(&fakeSearcher{}, &fakeDirectory{}, nil)
	rec, body := get(t, h, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "resource not found", body["text"])
}

func TestCompression(t *testing.T) {
	s := &fakeSearcher{resp: search.Response{Results: records(10), Outcome: search.OutcomeOK}}
	h := newTestAPI(s, &fakeDirectory{}, nil)

	req := httptest.NewRequest(http.MethodGet, searchURL(url.Values{"line": {"a"}, "start": {"b"}, "end": {"c"}}), nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "店09")
}

func TestCORS(t *testing.T) {
	h := newTestAPI(&fakeSearcher{}, &fakeDirectory{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	h := newTestAPI(&fakeSearcher{}, &fakeDirectory{}, &buf)

	req := httptest.NewRequest(http.MethodGet, "/healthz?x=1", nil)
	req.Header.Set("User-Agent", "test-client/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"msg":"http_request"`)
	assert.Contains(t, out, `"path":"/healthz"`)
	assert.Contains(t, out, `"status":200`)
	assert.Contains(t, out, `"user_agent":"test-client/1.0"`)
	assert.Contains(t, out, `"component":"http_server"`)
}

func TestPaginate(t *testing.T) {
	page, count, got := paginate(records(10), 1, 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, count)
	assert.Len(t, got, 10)

	_, count, got = paginate(nil, 1, 10)
	assert.Equal(t, 0, count)
	assert.Empty(t, got)
}
