package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdamBeresnev/matchday/internal/schedule"
	"github.com/AdamBeresnev/matchday/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	windowErr := &schedule.WindowExceededError{MatchID: uuid.New()}

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"end limit", fmt.Errorf("%w: %w", service.ErrAutoRescheduleEndLimit, windowErr), http.StatusConflict, CodeAutoRescheduleEndLimit},
		{"window exceeded", fmt.Errorf("schedule event: %w", windowErr), http.StatusConflict, CodeWindowExceeded},
		{"config", &schedule.ConfigError{Reason: "needs at least 2 teams"}, http.StatusUnprocessableEntity, CodeInvalidConfig},
		{"invalid event", fmt.Errorf("%w: name is required", service.ErrInvalidEvent), http.StatusBadRequest, CodeInvalidEvent},
		{"invalid patch", schedule.ErrInvalidPatch, http.StatusBadRequest, CodeInvalidUpdate},
		{"invalid result", schedule.ErrInvalidResult, http.StatusBadRequest, CodeInvalidResult},
		{"conflict", &schedule.ConflictError{MatchID: uuid.New(), Reason: "field is taken"}, http.StatusConflict, CodeMatchConflict},
		{"finalized", schedule.ErrMatchFinalized, http.StatusConflict, CodeMatchFinalized},
		{"match not found", schedule.ErrMatchNotFound, http.StatusNotFound, CodeNotFound},
		{"event not found", service.ErrEventNotFound, http.StatusNotFound, CodeNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, CodeForbidden},
		{"unknown", errors.New("disk full"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := ClassifyError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestWriteErrorWithData(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("%w: %w", service.ErrAutoRescheduleEndLimit, &schedule.WindowExceededError{MatchID: uuid.New()})
	WriteErrorWithData(rec, err, map[string]int{"affected": 2})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Code  string         `json:"code"`
		Error string         `json:"error"`
		Data  map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeAutoRescheduleEndLimit, body.Code)
	assert.Contains(t, body.Error, "no available time slots remaining for scheduling")
	assert.Equal(t, 2, body.Data["affected"])
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("database is locked"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"name":"cup","size":4}`, ""},
		{"empty", ``, "must not be empty"},
		{"syntax", `{"name":}`, "badly-formed JSON"},
		{"wrong type", `{"size":"four"}`, `incorrect JSON type for field "size"`},
		{"unknown field", `{"colour":"red"}`, `unknown key "colour"`},
		{"two values", `{"name":"a"}{"name":"b"}`, "single JSON value"},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "must not be larger than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := ReadJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, payload{Name: "cup", Size: 4}, dst)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlainErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Invalid id", errors.New("bad uuid")) }, http.StatusBadRequest, CodeBadRequest, "Invalid id"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "Event not found", nil) }, http.StatusNotFound, CodeNotFound, "Event not found"},
		{"internal", func(w http.ResponseWriter) { InternalServerError(w, "query failed", errors.New("disk I/O")) }, http.StatusInternalServerError, CodeInternal, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.msg, body.Error)
		})
	}
}
