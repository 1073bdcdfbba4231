package handler

import (
	"net/http"
	"strings"

	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

func filterOf(w http.ResponseWriter, r *http.Request) (lifecycle.Filter, bool) {
	q := r.URL.Query()
	f, err := lifecycle.ParseFilter(q.Get("status"), q.Get("petId"), q.Get("userId"), q.Get("from"), q.Get("to"))
	if err != nil {
		badRequest(w, "Invalid filter: "+err.Error())
		return f, false
	}
	return f, true
}

func (h *Handler) myRequests(w http.ResponseWriter, r *http.Request) {
	f, good := filterOf(w, r)
	if !good {
		return
	}
	page, err := h.svc.MyRequests(r.Context(), session.FromContext(r.Context()), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, page, page.Notices)
}

func (h *Handler) manageRequests(w http.ResponseWriter, r *http.Request) {
	f, good := filterOf(w, r)
	if !good {
		return
	}
	page, err := h.svc.ManageRequests(r.Context(), session.FromContext(r.Context()), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, page, page.Notices)
}

type statusBody struct {
	Status string `json:"status"`
}

func (h *Handler) decideRequest(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	var in statusBody
	if !decode(w, r, &in) {
		return
	}
	to := model.RequestStatus(strings.ToUpper(in.Status))
	if !to.Valid() {
		badRequest(w, "Unknown status")
		return
	}
	page, err := h.svc.DecideRequest(r.Context(), session.FromContext(r.Context()), id, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, page, page.Notices)
}

func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var form model.AppointmentForm
	if !decode(w, r, &form) {
		return
	}
	page, err := h.svc.BookAppointment(r.Context(), session.FromContext(r.Context()), form)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, page, page.Notices)
}

func (h *Handler) advanceAppointment(w http.ResponseWriter, r *http.Request) {
	id, good := pathID(w, r)
	if !good {
		return
	}
	var in statusBody
	if !decode(w, r, &in) {
		return
	}
	to := model.AppointmentStatus(strings.ToUpper(in.Status))
	if !to.Valid() {
		badRequest(w, "Unknown status")
		return
	}
	page, err := h.svc.AdvanceAppointment(r.Context(), session.FromContext(r.Context()), id, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, page, page.Notices)
}
