package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"pet-adoption-portal/internal/middleware"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

type sessionView struct {
	Authenticated bool       `json:"authenticated"`
	Email         string     `json:"email,omitempty"`
	Role          string     `json:"role"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

func viewOf(s session.Session) sessionView {
	v := sessionView{Authenticated: s.Authenticated(), Email: s.Identity.Email, Role: s.Identity.Role.String()}
	if !s.Identity.ExpiresAt.IsZero() {
		exp := s.Identity.ExpiresAt.UTC()
		v.ExpiresAt = &exp
	}
	return v
}

func setCookie(w http.ResponseWriter, r *http.Request, key string, exp time.Time) {
	c := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	switch {
	case key == "":
		c.MaxAge = -1
	case !exp.IsZero():
		c.Expires = exp
	}
	http.SetCookie(w, c)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	ok(w, http.StatusOK, viewOf(session.FromContext(r.Context())), nil)
}

// login always issues a fresh session key and drops the previous one.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if !decode(w, r, &creds) {
		return
	}
	prev := session.FromContext(r.Context())
	sess, notices, err := h.svc.Login(r.Context(), uuid.NewString(), creds)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if prev.Key != "" {
		h.svc.Logout(r.Context(), prev.Key)
	}
	setCookie(w, r, sess.Key, sess.Identity.ExpiresAt)
	ok(w, http.StatusOK, viewOf(sess), notices)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	notices := h.svc.Logout(r.Context(), session.FromContext(r.Context()).Key)
	setCookie(w, r, "", time.Time{})
	ok(w, http.StatusOK, viewOf(session.Session{}), notices)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var reg model.Registration
	if !decode(w, r, &reg) {
		return
	}
	p, notices, err := h.svc.Register(r.Context(), reg)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, p, notices)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, p, nil)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in model.Profile
	if !decode(w, r, &in) {
		return
	}
	p, notices, err := h.svc.UpdateProfile(r.Context(), session.FromContext(r.Context()), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, p, notices)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decode(w, r, &in) {
		return
	}
	notices, err := h.svc.ChangePassword(r.Context(), session.FromContext(r.Context()), in.CurrentPassword, in.NewPassword, in.ConfirmPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, nil, notices)
}

func (h *Handler) shelters(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Shelters(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, list, nil)
}
