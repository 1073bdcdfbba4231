package handler

import (
	"net/http"

	"pet-adoption-portal/internal/session"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, d, nil)
}

func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Reports(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, rep, nil)
}
