package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"

	"github.com/malbeclabs/tornado/analytics/pkg/chart"
	"github.com/malbeclabs/tornado/analytics/pkg/dataset"
	"github.com/malbeclabs/tornado/analytics/pkg/dimension"
	"github.com/malbeclabs/tornado/api/handlers/dberror"
	"github.com/malbeclabs/tornado/api/store"
)

var (
	errBadRequest  = errors.New("bad request")
	errUnavailable = errors.New("unavailable")
)

// ErrorResponse is the body of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps err to a status code, an error code and a client-safe message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request", err.Error()
	case errors.Is(err, dataset.ErrRedacted):
		return http.StatusUnprocessableEntity, "redacted", "The analysis result is redacted."
	case errors.Is(err, dimension.ErrIncompatibleDimensions):
		return http.StatusBadRequest, "incompatible_dimensions", err.Error()
	case errors.Is(err, chart.ErrInvalidArgument),
		errors.Is(err, dimension.ErrUnknownTarget),
		errors.Is(err, dimension.ErrTooManyDimensions),
		errors.Is(err, dataset.ErrNoAnalyses),
		errors.Is(err, dataset.ErrTooDeep),
		errors.Is(err, dataset.ErrUnknownAnalysisType):
		return http.StatusBadRequest, "invalid_argument", err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found", "Not found."
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable, "unavailable", err.Error()
	case dberror.IsTransient(err):
		return http.StatusServiceUnavailable, "unavailable", dberror.UserMessage(err)
	}
	return http.StatusInternalServerError, "internal_error", "An unexpected error occurred. Please try again."
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}
	} else {
		h.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
