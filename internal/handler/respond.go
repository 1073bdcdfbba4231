package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

const maxBody = 1 << 20

// envelope is every JSON response body.
type envelope struct {
	Data     any             `json:"data,omitempty"`
	Notices  []portal.Notice `json:"notices,omitempty"`
	Redirect string          `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, data any, notices []portal.Notice) {
	writeJSON(w, code, envelope{Data: data, Notices: notices})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, envelope{Notices: []portal.Notice{{Level: portal.LevelError, Message: msg}}})
}

// fail renders err. The portal has already logged it.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	env := envelope{Notices: []portal.Notice{portal.NoticeFor(err, "Something went wrong")}}
	var f *portal.Failure
	if errors.As(err, &f) {
		env.Redirect = f.Redirect
	}
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Debug("request failed", zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	writeJSON(w, code, env)
}

func statusFor(err error) int {
	var apiErr *api.Error
	switch {
	case errors.Is(err, portal.ErrSignedOut):
		return http.StatusUnauthorized
	case errors.Is(err, portal.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, portal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, portal.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, portal.ErrNotOffered),
		errors.Is(err, portal.ErrAmbiguous):
		return http.StatusConflict
	case errors.Is(err, session.ErrGuestToken):
		return http.StatusBadGateway
	case errors.As(err, &apiErr) && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	case errors.Is(err, api.ErrUpstream), errors.Is(err, api.ErrTransport), errors.Is(err, api.ErrDecode):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		badRequest(w, "Malformed request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "Invalid id")
		return 0, false
	}
	return id, true
}
