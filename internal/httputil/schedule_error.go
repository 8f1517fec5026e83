package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/matchday/internal/schedule"
	"github.com/AdamBeresnev/matchday/internal/service"
)

const (
	CodeAutoRescheduleEndLimit = "AUTO_RESCHEDULE_END_LIMIT"
	CodeWindowExceeded         = "SCHEDULE_WINDOW_EXCEEDED"
	CodeInvalidConfig          = "INVALID_CONFIG"
	CodeInvalidEvent           = "INVALID_EVENT"
	CodeInvalidUpdate          = "INVALID_UPDATE"
	CodeInvalidResult          = "INVALID_RESULT"
	CodeMatchConflict          = "MATCH_CONFLICT"
	CodeMatchFinalized         = "MATCH_FINALIZED"
	CodeNotFound               = "NOT_FOUND"
	CodeForbidden              = "FORBIDDEN"
	CodeInternal               = "INTERNAL"
)

type ErrorBody struct {
	Code  string `json:"code"`
	Error string `json:"error"`
	// Partial outcome that still took effect, such as a finalized result
	Data any `json:"data,omitempty"`
}

// ClassifyError maps a service or engine error to a status and code.
func ClassifyError(err error) (int, string) {
	switch {
	// Checked before the window error it wraps
	case errors.Is(err, service.ErrAutoRescheduleEndLimit):
		return http.StatusConflict, CodeAutoRescheduleEndLimit
	case errors.Is(err, schedule.ErrScheduleWindowExceeded):
		return http.StatusConflict, CodeWindowExceeded
	case errors.Is(err, schedule.ErrInvalidConfig):
		return http.StatusUnprocessableEntity, CodeInvalidConfig
	case errors.Is(err, service.ErrInvalidEvent):
		return http.StatusBadRequest, CodeInvalidEvent
	case errors.Is(err, schedule.ErrInvalidPatch):
		return http.StatusBadRequest, CodeInvalidUpdate
	case errors.Is(err, schedule.ErrInvalidResult):
		return http.StatusBadRequest, CodeInvalidResult
	case errors.Is(err, schedule.ErrMatchConflict):
		return http.StatusConflict, CodeMatchConflict
	case errors.Is(err, schedule.ErrMatchFinalized):
		return http.StatusConflict, CodeMatchFinalized
	case errors.Is(err, schedule.ErrMatchNotFound), errors.Is(err, service.ErrEventNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	}
	return http.StatusInternalServerError, CodeInternal
}

func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithData(w, err, nil)
}

// WriteErrorWithData writes the error body along with data that was committed
// despite the error.
func WriteErrorWithData(w http.ResponseWriter, err error, data any) {
	status, code := ClassifyError(err)
	body := ErrorBody{Code: code, Error: err.Error(), Data: data}

	switch {
	case status >= http.StatusInternalServerError:
		slog.Error("request failed", "error", err)
		body.Error = "Internal Server Error"
	case status == http.StatusConflict:
		slog.Warn("conflict", "code", code, "error", err)
	default:
		slog.Info("request rejected", "code", code, "error", err)
	}
	WriteJSON(w, status, body)
}
