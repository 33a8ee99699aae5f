package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"stopover-food/internal/logging"
)

func (api *API) sendJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	setJSONResponseType(w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.LogError(logging.FromContext(r.Context()), "failed to encode response", err,
			slog.String("path", r.URL.Path))
	}
}

type errorBody struct {
	Code    int    `json:"code"`
	Text    string `json:"text"`
	Message string `json:"message,omitempty"`
}

func (api *API) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "request failed", err, slog.String("path", r.URL.Path))
	api.sendJSON(w, r, http.StatusInternalServerError, errorBody{
		Code: http.StatusInternalServerError,
		Text: "internal server error",
	})
}

func (api *API) unavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	logging.LogError(logging.FromContext(r.Context()), "service unavailable", err, slog.String("path", r.URL.Path))
	api.sendJSON(w, r, http.StatusServiceUnavailable, errorBody{
		Code: http.StatusServiceUnavailable,
		Text: "service unavailable",
	})
}

// validationErrorResponse sends a 400 Bad Request response with field-specific validation errors
func (api *API) validationErrorResponse(w http.ResponseWriter, r *http.Request, fieldErrors map[string][]string, message string) {
	response := struct {
		FieldErrors map[string][]string `json:"fieldErrors"`
		Message     string              `json:"message,omitempty"`
		Outcome     string              `json:"outcome"`
	}{
		FieldErrors: fieldErrors,
		Message:     message,
		Outcome:     "invalid_input",
	}
	api.sendJSON(w, r, http.StatusBadRequest, response)
}

func setJSONResponseType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
}
