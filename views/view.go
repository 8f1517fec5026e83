package views

import (
	"bytes"
	"net/http"

	"github.com/a-h/templ"
)

// Render writes component with status. The page is rendered into memory first so
// a failing component leaves the response untouched for the caller's error path.
func Render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) error {
	var buf bytes.Buffer
	if err := component.Render(r.Context(), &buf); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
