package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stopover-food/internal/apperr"
	"stopover-food/internal/search"
	"stopover-food/internal/station"
	"stopover-food/internal/venue"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"
)

type searchParams struct {
	Line     string `validate:"required"`
	Start    string `validate:"required"`
	End      string `validate:"required"`
	Category string
	Range    int `validate:"omitempty,min=1,max=5"`
	Page     int `validate:"min=1"`
}

type searchResponse struct {
	Results     []venue.Record `json:"results"`
	Message     string         `json:"message"`
	Outcome     string         `json:"outcome"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Stations    []string       `json:"stations,omitempty"`
	Page        int            `json:"page"`
	PageCount   int            `json:"pageCount"`
	Total       int            `json:"total"`
}

type lineResponse struct {
	Code          int    `json:"code"`
	Name          string `json:"name"`
	NameRomanized string `json:"nameRomanized,omitempty"`
	Circular      bool   `json:"circular"`
}

type stationResponse struct {
	Code          int     `json:"code"`
	Name          string  `json:"name"`
	NameRomanized string  `json:"nameRomanized,omitempty"`
	Latitude      float64 `json:"lat"`
	Longitude     float64 `json:"lon"`
}

func (api *API) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fieldErrors := map[string][]string{}

	p := searchParams{
		Line:     strings.TrimSpace(q.Get("line")),
		Start:    strings.TrimSpace(q.Get("start")),
		End:      strings.TrimSpace(q.Get("end")),
		Category: strings.TrimSpace(q.Get("category")),
		Page:     1,
	}
	p.Range = intParam(q.Get("range"), "range", 0, fieldErrors)
	p.Page = intParam(q.Get("page"), "page", 1, fieldErrors)

	if err := api.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				name := strings.ToLower(fe.Field())
				fieldErrors[name] = append(fieldErrors[name], fieldMessage(fe))
			}
		}
	}
	if len(fieldErrors) > 0 {
		message := ""
		for _, f := range []string{"line", "start", "end"} {
			if _, ok := fieldErrors[f]; ok {
				message = "未入力の項目があります"
				break
			}
		}
		api.validationErrorResponse(w, r, fieldErrors, message)
		return
	}

	resp := api.searcher.Search(r.Context(), search.Request{
		Line:    p.Line,
		Start:   p.Start,
		End:     p.End,
		Keyword: p.Category,
		Range:   p.Range,
	})

	status := http.StatusOK
	switch resp.Outcome {
	case search.OutcomeInvalidInput:
		status = http.StatusBadRequest
	case search.OutcomeError:
		status = http.StatusServiceUnavailable
	}

	page, pageCount, results := paginate(resp.Results, p.Page, api.pageSize)
	if api.images != nil && len(results) > 0 {
		results = api.images.Fill(r.Context(), results)
	}
	out := searchResponse{
		Results:     results,
		Message:     resp.Message,
		Outcome:     string(resp.Outcome),
		Suggestions: resp.Suggestions,
		Page:        page,
		PageCount:   pageCount,
		Total:       len(resp.Results),
	}
	for _, s := range resp.Section.Stops {
		out.Stations = append(out.Stations, s.StationName)
	}
	api.sendJSON(w, r, status, out)
}

func (api *API) linesHandler(w http.ResponseWriter, r *http.Request) {
	lines, err := api.directory.Lines(r.Context())
	if err != nil {
		api.directoryError(w, r, err)
		return
	}
	out := make([]lineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineResponse{Code: l.Code, Name: l.Name, NameRomanized: l.NameRomanized, Circular: api.directory.IsCircular(l.Name)})
	}
	api.sendJSON(w, r, http.StatusOK, out)
}

func (api *API) stationsHandler(w http.ResponseWriter, r *http.Request) {
	line := httprouter.ParamsFromContext(r.Context()).ByName("line")
	stations, err := api.directory.Stations(r.Context(), line)
	if err != nil {
		var ve *apperr.ValidationError
		if errors.As(err, &ve) {
			api.sendJSON(w, r, http.StatusNotFound, struct {
				Message     string   `json:"message"`
				Outcome     string   `json:"outcome"`
				Suggestions []string `json:"suggestions,omitempty"`
			}{
				Message:     search.UnknownLineMessage(ve.Value, ve.Suggestions),
				Outcome:     string(search.OutcomeUnknownLine),
				Suggestions: ve.Suggestions,
			})
			return
		}
		api.directoryError(w, r, err)
		return
	}
	out := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		out = append(out, stationResponse{
			Code:          s.StationCode,
			Name:          s.StationName,
			NameRomanized: s.StationNameRomanized,
			Latitude:      s.Latitude,
			Longitude:     s.Longitude,
		})
	}
	api.sendJSON(w, r, http.StatusOK, out)
}

func (api *API) healthHandler(w http.ResponseWriter, r *http.Request) {
	lines, err := api.directory.Lines(r.Context())
	if err != nil {
		api.unavailableResponse(w, r, err)
		return
	}
	api.sendJSON(w, r, http.StatusOK, map[string]any{"status": "ok", "lines": len(lines)})
}

func (api *API) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	api.sendJSON(w, r, http.StatusNotFound, errorBody{Code: http.StatusNotFound, Text: "resource not found"})
}

func (api *API) directoryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, station.ErrNotLoaded) {
		api.unavailableResponse(w, r, err)
		return
	}
	api.serverErrorResponse(w, r, err)
}

func intParam(v, name string, def int, fieldErrors map[string][]string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fieldErrors[name] = append(fieldErrors[name], "must be an integer")
		return def
	}
	return n
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// paginate slices results into the requested page without reordering them.
// Pages past the end are empty.
func paginate(results []venue.Record, page, size int) (int, int, []venue.Record) {
	pageCount := (len(results) + size - 1) / size
	if page < 1 {
		page = 1
	}
	from := (page - 1) * size
	if from >= len(results) {
		return page, pageCount, []venue.Record{}
	}
	to := from + size
	if to > len(results) {
		to = len(results)
	}
	return page, pageCount, results[from:to]
}
