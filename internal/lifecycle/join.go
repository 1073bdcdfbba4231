// Package lifecycle reconciles adoption requests with their visit appointments
// and derives what each party may do next.
//
// Everything here is a display decision. The remote API enforces the real
// transitions; these rules only decide what is offered.
package lifecycle

import (
	"pet-adoption-portal/internal/model"
)

// RequestView is one adoption request joined with its appointment.
type RequestView struct {
	Request     model.AdoptionRequest `json:"request"`
	Appointment *model.Appointment    `json:"appointment,omitempty"`
	// Ambiguous is set when more than one appointment references the request.
	// Appointment then holds the most advanced one and no action is offered.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

func (v RequestView) HasAppointment() bool { return v.Appointment != nil }

type Reconciliation struct {
	Views []RequestView `json:"views"`
	// Orphans reference requests that were not in the fetched list.
	Orphans []model.Appointment `json:"orphans,omitempty"`
}

// Join matches every request with the appointments whose adoptionRequestId
// equals its id. Views keep the order of requests.
func Join(requests []model.AdoptionRequest, appointments []model.Appointment) Reconciliation {
	known := make(map[int64]bool, len(requests))
	for _, r := range requests {
		known[r.ID] = true
	}

	byRequest := make(map[int64][]model.Appointment, len(appointments))
	var orphans []model.Appointment
	for _, a := range appointments {
		if !known[a.AdoptionRequestID] {
			orphans = append(orphans, a)
			continue
		}
		byRequest[a.AdoptionRequestID] = append(byRequest[a.AdoptionRequestID], a)
	}

	views := make([]RequestView, 0, len(requests))
	for _, r := range requests {
		v := RequestView{Request: r}
		switch matches := byRequest[r.ID]; len(matches) {
		case 0:
		case 1:
			a := matches[0]
			v.Appointment = &a
		default:
			a := mostAdvanced(matches)
			v.Appointment = &a
			v.Ambiguous = true
		}
		views = append(views, v)
	}
	return Reconciliation{Views: views, Orphans: orphans}
}

var appointmentRank = map[model.AppointmentStatus]int{
	model.AppointmentCancelled:  0,
	model.AppointmentPending:    1,
	model.AppointmentApproved:   2,
	model.AppointmentInProgress: 3,
	model.AppointmentCompleted:  4,
}

// mostAdvanced picks the furthest-along appointment, lowest id on ties.
func mostAdvanced(as []model.Appointment) model.Appointment {
	best := as[0]
	for _, a := range as[1:] {
		ra, rb := appointmentRank[a.Status], appointmentRank[best.Status]
		if ra > rb || (ra == rb && a.ID < best.ID) {
			best = a
		}
	}
	return best
}

// Find returns the view for request id.
func (r Reconciliation) Find(id int64) (RequestView, bool) {
	for _, v := range r.Views {
		if v.Request.ID == id {
			return v, true
		}
	}
	return RequestView{}, false
}

// FindAppointment returns the view holding appointment id. Orphans are not
// searched: no action is ever offered on them.
func (r Reconciliation) FindAppointment(id int64) (RequestView, bool) {
	for _, v := range r.Views {
		if v.Appointment != nil && v.Appointment.ID == id {
			return v, true
		}
	}
	return RequestView{}, false
}
