package portal

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

// RequestCard is one request as rendered: joined view, timeline and the
// actions open to the viewer.
type RequestCard struct {
	lifecycle.RequestView
	Timeline lifecycle.Timeline `json:"timeline"`
	Next     lifecycle.Step     `json:"next"`
	CanBook  bool               `json:"canBook"`
	// Actions and AppointmentActions are only filled for managers.
	Actions            []lifecycle.Action `json:"actions,omitempty"`
	AppointmentActions []lifecycle.Action `json:"appointmentActions,omitempty"`
}

type RequestsPage struct {
	Cards []RequestCard `json:"requests"`
	// Counts cover the unfiltered list.
	Counts  map[string]int      `json:"counts"`
	Orphans []model.Appointment `json:"orphans,omitempty"`
	Notices []Notice            `json:"-"`
}

type audience int

const (
	requester audience = iota
	manager
)

// source is the pair of lists one audience reconciles.
type source struct {
	requests     func(context.Context) ([]model.AdoptionRequest, error)
	appointments func(context.Context) ([]model.Appointment, error)
	audience     audience
}

func mine(c *api.Client) source {
	return source{c.MyAdoptions, c.MyAppointments, requester}
}

func managed(c *api.Client) source {
	return source{c.AllAdoptions, c.ShelterAppointments, manager}
}

// fetch loads both lists concurrently. A requests failure fails the fetch;
// an appointments failure is returned separately so the page can still render.
func fetch(ctx context.Context, src source) (reqs []model.AdoptionRequest, appts []model.Appointment, apptErr, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reqs, err = src.requests(gctx)
		return err
	})
	g.Go(func() error {
		appts, apptErr = src.appointments(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return reqs, appts, apptErr, nil
}

func (s *Service) build(op string, aud audience, reqs []model.AdoptionRequest, appts []model.Appointment, f lifecycle.Filter) RequestsPage {
	reqs = slices.Clone(reqs)
	lifecycle.SortNewestFirst(reqs)
	rec := lifecycle.Join(reqs, appts)
	s.logOrphans(op, rec)

	views := f.Apply(rec.Views)
	page := RequestsPage{
		Cards:   make([]RequestCard, 0, len(views)),
		Counts:  lifecycle.CountByStatus(reqs),
		Orphans: rec.Orphans,
	}
	for _, v := range views {
		c := RequestCard{
			RequestView: v,
			Timeline:    lifecycle.BuildTimeline(v),
			Next:        lifecycle.NextStep(v),
		}
		switch aud {
		case requester:
			c.CanBook = lifecycle.CanBook(v)
		case manager:
			c.Actions = lifecycle.RequestActions(v.Request)
			c.AppointmentActions = lifecycle.AppointmentActions(v)
		}
		page.Cards = append(page.Cards, c)
	}
	return page
}

// refresh refetches after a mutation and merges the result over the local,
// optimistically updated lists. A failed refetch keeps the local lists.
func (s *Service) refresh(ctx context.Context, op string, src source, localReqs []model.AdoptionRequest, localAppts []model.Appointment) RequestsPage {
	var notices []Notice
	fresh, freshAppts, apptErr, err := fetch(ctx, src)
	if err != nil || apptErr != nil {
		s.log.Warn("refresh after update failed", zap.String("op", op), zap.NamedError("requests", err), zap.NamedError("appointments", apptErr))
		notices = append(notices, Notice{LevelWarning, "Could not refresh; showing your latest changes"})
	}
	reqs, appts := localReqs, localAppts
	var d1, d2 int
	if err == nil {
		reqs, d1 = lifecycle.MergeRequests(localReqs, fresh)
		if apptErr == nil {
			appts, d2 = lifecycle.MergeAppointments(localAppts, freshAppts)
		}
	}
	if d1+d2 > 0 {
		s.log.Info("refetch corrected local state", zap.String("op", op), zap.Int("requests", d1), zap.Int("appointments", d2))
	}
	page := s.build(op, src.audience, reqs, appts, lifecycle.Filter{})
	page.Notices = append(page.Notices, notices...)
	return page
}

// MyRequests is the requester's view of their own requests.
func (s *Service) MyRequests(ctx context.Context, sess session.Session, f lifecycle.Filter) (RequestsPage, error) {
	const op = "my_requests"
	if err := requireSignedIn(op, sess); err != nil {
		return RequestsPage{}, err
	}
	reqs, appts, apptErr, err := fetch(ctx, mine(s.client(sess)))
	if err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to load requests")
	}
	page := s.build(op, requester, reqs, appts, f)
	if apptErr != nil {
		page.Notices = append(page.Notices, s.fail(op, apptErr, "Failed to load appointments").Notice)
	}
	return page, nil
}

// ManageRequests is the shelter/admin view of every request they handle.
func (s *Service) ManageRequests(ctx context.Context, sess session.Session, f lifecycle.Filter) (RequestsPage, error) {
	const op = "manage_requests"
	if err := requireManager(op, sess); err != nil {
		return RequestsPage{}, err
	}
	reqs, appts, apptErr, err := fetch(ctx, managed(s.client(sess)))
	if err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to load requests")
	}
	page := s.build(op, manager, reqs, appts, f)
	if apptErr != nil {
		page.Notices = append(page.Notices, s.fail(op, apptErr, "Failed to load appointments").Notice)
	}
	if f.Active() {
		page.Notices = append(page.Notices, Notice{LevelSuccess, fmt.Sprintf("Found %d request(s) matching your filters", len(page.Cards))})
	}
	return page, nil
}

// DecideRequest sets a request's status on behalf of a manager.
func (s *Service) DecideRequest(ctx context.Context, sess session.Session, id int64, to model.RequestStatus) (RequestsPage, error) {
	const op = "decide_request"
	if err := requireManager(op, sess); err != nil {
		return RequestsPage{}, err
	}
	cl := s.client(sess)
	src := managed(cl)
	reqs, appts, _, err := fetch(ctx, src)
	if err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to update status")
	}
	i := slices.IndexFunc(reqs, func(r model.AdoptionRequest) bool { return r.ID == id })
	if i < 0 {
		return RequestsPage{}, reject(op, ErrNotFound, "Request not found")
	}
	if err := lifecycle.ValidateRequestDecision(reqs[i].Status, to); err != nil {
		return RequestsPage{}, reject(op, err, fmt.Sprintf("Request is %s and cannot become %s", lower(reqs[i].Status), lower(to)))
	}
	if _, err := cl.SetAdoptionStatus(ctx, id, to); err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to update status")
	}

	local := lifecycle.ApplyRequestStatus(reqs, id, to)
	page := s.refresh(ctx, op, src, local, appts)
	page.Notices = append([]Notice{{LevelSuccess, fmt.Sprintf("Request %s successfully", lower(to))}}, page.Notices...)
	return page, nil
}

// AdvanceAppointment moves an appointment one step along its chain. Completing
// the visit also completes the parent request so the pet can be adopted again;
// if that second call fails the appointment change stands and the failure is
// reported as a notice.
func (s *Service) AdvanceAppointment(ctx context.Context, sess session.Session, id int64, to model.AppointmentStatus) (RequestsPage, error) {
	const op = "advance_appointment"
	if err := requireManager(op, sess); err != nil {
		return RequestsPage{}, err
	}
	cl := s.client(sess)
	src := managed(cl)
	reqs, appts, apptErr, err := fetch(ctx, src)
	if err == nil {
		err = apptErr
	}
	if err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to update appointment status")
	}

	v, ok := lifecycle.Join(reqs, appts).FindAppointment(id)
	if !ok {
		return RequestsPage{}, reject(op, ErrNotFound, "Appointment details not found")
	}
	if v.Ambiguous {
		return RequestsPage{}, reject(op, ErrAmbiguous, "Several appointments exist for this request; resolve them with the shelter first")
	}
	if err := lifecycle.ValidateAppointmentTransition(v.Appointment.Status, to); err != nil {
		return RequestsPage{}, reject(op, err, fmt.Sprintf("Appointment is %s and cannot become %s", lower(v.Appointment.Status), lower(to)))
	}
	if _, err := cl.SetAppointmentStatus(ctx, id, to); err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to update appointment status")
	}

	notices := []Notice{{LevelSuccess, fmt.Sprintf("Appointment %s successfully", lower(to))}}
	localAppts := lifecycle.ApplyAppointmentStatus(appts, id, to)
	localReqs := reqs
	if to == model.AppointmentCompleted {
		if _, err := cl.SetAdoptionStatus(ctx, v.Request.ID, model.RequestCompleted); err != nil {
			notices = append(notices, s.fail(op+".complete_request", err, "Failed to update status").Notice)
		} else {
			localReqs = lifecycle.ApplyRequestStatus(reqs, v.Request.ID, model.RequestCompleted)
			notices = append(notices,
				Notice{LevelSuccess, "Request completed successfully"},
				Notice{LevelInfo, "Adoption process completed! User can now adopt another pet."})
		}
	}

	page := s.refresh(ctx, op, src, localReqs, localAppts)
	page.Notices = append(notices, page.Notices...)
	return page, nil
}

// bookingSlack tolerates clock skew between the browser and the portal.
const bookingSlack = 5 * time.Minute

// BookAppointment books a visit for one of the requester's approved requests.
func (s *Service) BookAppointment(ctx context.Context, sess session.Session, form model.AppointmentForm) (RequestsPage, error) {
	const op = "book_appointment"
	if err := requireSignedIn(op, sess); err != nil {
		return RequestsPage{}, err
	}
	if !sess.Identity.IsUser() {
		return RequestsPage{}, reject(op, ErrForbidden, "Only adopters can book appointments")
	}
	form.VisitorName = strings.TrimSpace(form.VisitorName)
	switch {
	case form.VisitorName == "":
		return RequestsPage{}, reject(op, ErrInvalid, "Visitor name is required")
	case form.NumberOfVisitors < 1:
		return RequestsPage{}, reject(op, ErrInvalid, "At least one visitor is required")
	case form.ShelterID <= 0:
		return RequestsPage{}, reject(op, ErrInvalid, "Please select a shelter")
	case form.AppointmentDateTime.IsZero():
		return RequestsPage{}, reject(op, ErrInvalid, "Appointment date and time are required")
	case form.AppointmentDateTime.Before(s.now().Add(-bookingSlack)):
		return RequestsPage{}, reject(op, ErrInvalid, "Cannot book an appointment in the past")
	}

	cl := s.client(sess)
	src := mine(cl)
	reqs, appts, apptErr, err := fetch(ctx, src)
	if err == nil {
		// without the appointment list eligibility is unknown
		err = apptErr
	}
	if err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to book appointment")
	}

	v, ok := lifecycle.Join(reqs, appts).Find(form.AdoptionRequestID)
	if !ok {
		return RequestsPage{}, reject(op, ErrNotFound, "Request not found")
	}
	if !lifecycle.CanBook(v) {
		msg := "Appointments can only be booked for approved requests"
		if v.Appointment != nil {
			msg = "An appointment is already booked for this request"
		}
		return RequestsPage{}, reject(op, ErrNotOffered, msg)
	}

	created, err := cl.CreateAppointment(ctx, form)
	if err != nil {
		return RequestsPage{}, s.fail(op, err, "Failed to book appointment")
	}
	local := append(slices.Clone(appts), created)
	page := s.refresh(ctx, op, src, reqs, local)
	page.Notices = append([]Notice{{LevelSuccess, "Appointment booked successfully!"}}, page.Notices...)
	return page, nil
}

func lower[T ~string](s T) string { return strings.ToLower(string(s)) }
