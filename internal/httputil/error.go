package httputil

import (
	"log/slog"
	"net/http"
)

const CodeBadRequest = "BAD_REQUEST"

// The helpers below answer with the same ErrorBody as WriteError for failures
// that never reach the service layer.

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{Code: CodeInternal, Error: "Internal Server Error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	logRejected("bad request", msg, err)
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Code: CodeBadRequest, Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	logRejected("not found", msg, err)
	WriteJSON(w, http.StatusNotFound, ErrorBody{Code: CodeNotFound, Error: msg})
}

func logRejected(kind, msg string, err error) {
	if err != nil {
		slog.Warn(kind, "message", msg, "error", err)
		return
	}
	slog.Warn(kind, "message", msg)
}
