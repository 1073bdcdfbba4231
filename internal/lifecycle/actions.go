package lifecycle

import (
	"errors"
	"fmt"

	"pet-adoption-portal/internal/model"
)

var ErrInvalidTransition = errors.New("lifecycle: invalid transition")

// Action is a button offered to the viewer. To is the status it requests.
type Action struct {
	Label string `json:"label"`
	To    string `json:"to"`
}

// CanBook reports whether the requester may book a visit: the request is
// approved and no appointment exists for it yet.
func CanBook(v RequestView) bool {
	return v.Request.Status == model.RequestApproved && v.Appointment == nil && !v.Ambiguous
}

// CanDecide reports whether a manager may still approve or reject.
func CanDecide(r model.AdoptionRequest) bool {
	return r.Status == model.RequestPending
}

// RequestActions lists the manager's decisions for r.
func RequestActions(r model.AdoptionRequest) []Action {
	if !CanDecide(r) {
		return nil
	}
	return []Action{
		{Label: "Approve", To: string(model.RequestApproved)},
		{Label: "Reject", To: string(model.RequestRejected)},
	}
}

// appointmentNext is the forward chain. CANCELLED is only reachable from PENDING.
var appointmentNext = map[model.AppointmentStatus][]Action{
	model.AppointmentPending: {
		{Label: "Approve Appointment", To: string(model.AppointmentApproved)},
		{Label: "Cancel Appointment", To: string(model.AppointmentCancelled)},
	},
	model.AppointmentApproved: {
		{Label: "Mark In Progress", To: string(model.AppointmentInProgress)},
	},
	model.AppointmentInProgress: {
		{Label: "Mark Completed", To: string(model.AppointmentCompleted)},
	},
}

// AppointmentActions lists the manager's appointment transitions for v.
// Ambiguous views offer nothing.
func AppointmentActions(v RequestView) []Action {
	if v.Appointment == nil || v.Ambiguous {
		return nil
	}
	return appointmentNext[v.Appointment.Status]
}

func ValidateAppointmentTransition(from, to model.AppointmentStatus) error {
	for _, a := range appointmentNext[from] {
		if a.To == string(to) {
			return nil
		}
	}
	return fmt.Errorf("%w: appointment %s -> %s", ErrInvalidTransition, from, to)
}

// ValidateRequestDecision checks a manager decision: only a PENDING request
// can be approved or rejected. COMPLETED is never a decision; it follows a
// completed visit.
func ValidateRequestDecision(from, to model.RequestStatus) error {
	switch to {
	case model.RequestApproved, model.RequestRejected:
		if from == model.RequestPending {
			return nil
		}
	}
	return fmt.Errorf("%w: request %s -> %s", ErrInvalidTransition, from, to)
}

type StepKind string

const (
	StepPending     StepKind = "pending"
	StepBook        StepKind = "book"
	StepRejected    StepKind = "rejected"
	StepCompleted   StepKind = "completed"
	StepAppointment StepKind = "appointment"
	StepUnknown     StepKind = "unknown"
)

// Step is the one-line status message shown to the requester.
type Step struct {
	Kind    StepKind `json:"kind"`
	Message string   `json:"message"`
}

func NextStep(v RequestView) Step {
	if v.Appointment != nil {
		return Step{StepAppointment, "Appointment: " + string(v.Appointment.Status)}
	}
	switch v.Request.Status {
	case model.RequestPending:
		return Step{StepPending, "Waiting for approval"}
	case model.RequestApproved:
		return Step{StepBook, "Ready to book appointment"}
	case model.RequestRejected:
		return Step{StepRejected, "Request was rejected"}
	case model.RequestCompleted:
		return Step{StepCompleted, "Adoption completed!"}
	}
	return Step{StepUnknown, "Processing..."}
}
