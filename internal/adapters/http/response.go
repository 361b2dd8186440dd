package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"bloodlink/internal/domain"
)

// envelope is the JSON body of every API response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// redirectTo appends a flash parameter to a page path.
func redirectTo(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	u, err := url.Parse(path)
	if err != nil {
		u = &url.URL{Path: "/"}
	}
	q := u.Query()
	q.Set(key, msg)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// ok answers a successful call: JSON for API clients, a redirect with a
// success flash for form posts.
func (s *Server) ok(w http.ResponseWriter, r *http.Request, status int, msg string, data any, page string) {
	if isForm(r) && page != "" {
		redirectTo(w, r, page, "success", msg)
		return
	}
	writeJSON(w, status, envelope{Status: "success", Message: msg, Data: data})
}

// fail maps err onto the error taxonomy. Internal errors are logged and
// hidden behind a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, page string) {
	status := statusFor(err)
	msg := domain.Message(err)
	switch {
	case status == http.StatusInternalServerError:
		s.log.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		msg = "server error"
	case msg == "":
		msg = strings.ToLower(http.StatusText(status))
	}
	if isForm(r) && page != "" {
		redirectTo(w, r, page, "error", msg)
		return
	}
	writeJSON(w, status, envelope{Status: "error", Message: msg})
}
