package lifecycle

import "pet-adoption-portal/internal/model"

type StageState string

const (
	StageCompleted StageState = "completed"
	StageActive    StageState = "active"
	StageUpcoming  StageState = "upcoming"
)

type Stage struct {
	Step  int        `json:"step"`
	Label string     `json:"label"`
	State StageState `json:"state"`
}

type Timeline struct {
	Stages []Stage `json:"stages"`
	// Halted is set once the request was rejected or cancelled; nothing is active.
	Halted bool `json:"halted,omitempty"`
}

var stageLabels = [...]string{
	"Request Submitted",
	"Request Approved",
	"Appointment Scheduled",
	"Visit In Progress",
	"Adoption Completed",
}

// BuildTimeline derives the five-stage progress of v.
//
// Stages 3 and 4 are backed by the appointment: without one they stay
// upcoming and cannot become active. Stage 5 follows the request status.
func BuildTimeline(v RequestView) Timeline {
	req := v.Request.Status
	appt := v.Appointment

	done := [len(stageLabels)]bool{
		true,
		req == model.RequestApproved || req == model.RequestInProgress || req == model.RequestCompleted,
		appt != nil,
		appt != nil && (appt.Status == model.AppointmentInProgress || appt.Status == model.AppointmentCompleted),
		req == model.RequestCompleted,
	}
	reachable := func(i int) bool { return i < 2 || appt != nil }

	t := Timeline{
		Stages: make([]Stage, len(stageLabels)),
		Halted: req == model.RequestRejected || req == model.RequestCancelled,
	}
	activeSet := t.Halted
	for i, label := range stageLabels {
		st := StageUpcoming
		switch {
		case done[i]:
			st = StageCompleted
		case !activeSet && reachable(i):
			st = StageActive
			activeSet = true
		}
		t.Stages[i] = Stage{Step: i + 1, Label: label, State: st}
	}
	return t
}

// Active returns the active stage, if any.
func (t Timeline) Active() (Stage, bool) {
	for _, s := range t.Stages {
		if s.State == StageActive {
			return s, true
		}
	}
	return Stage{}, false
}
