package portal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

var ctx = context.Background()

func labels(as []lifecycle.Action) []string {
	var out []string
	for _, a := range as {
		out = append(out, a.Label)
	}
	return out
}

func failure(t *testing.T, err error) *portal.Failure {
	t.Helper()
	var f *portal.Failure
	require.True(t, errors.As(err, &f), "want *portal.Failure, got %v", err)
	return f
}

func TestPendingRequestViews(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestPending})

	mine, err := e.svc.MyRequests(ctx, e.adopter, lifecycle.Filter{})
	require.NoError(t, err)
	require.Len(t, mine.Cards, 1)
	c := mine.Cards[0]
	assert.Equal(t, lifecycle.StageCompleted, c.Timeline.Stages[0].State)
	assert.Equal(t, lifecycle.StageActive, c.Timeline.Stages[1].State)
	for _, st := range c.Timeline.Stages[2:] {
		assert.Equal(t, lifecycle.StageUpcoming, st.State)
	}
	assert.Empty(t, c.Actions, "requester sees no approve/reject")
	assert.False(t, c.CanBook)
	assert.Equal(t, 1, mine.Counts["PENDING"])

	managed, err := e.svc.ManageRequests(ctx, e.shelter, lifecycle.Filter{})
	require.NoError(t, err)
	require.Len(t, managed.Cards, 1)
	assert.Equal(t, []string{"Approve", "Reject"}, labels(managed.Cards[0].Actions))
}

func TestApprovedWithPendingAppointment(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestApproved})
	e.seedAppointment(model.Appointment{ID: 5, AdoptionRequestID: 1, VisitorName: "Ann", NumberOfVisitors: 1, Status: model.AppointmentPending})

	mine, err := e.svc.MyRequests(ctx, e.adopter, lifecycle.Filter{})
	require.NoError(t, err)
	assert.False(t, mine.Cards[0].CanBook, "already booked")

	managed, err := e.svc.ManageRequests(ctx, e.shelter, lifecycle.Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Approve Appointment", "Cancel Appointment"}, labels(managed.Cards[0].AppointmentActions))
	assert.Empty(t, managed.Cards[0].Actions)
}

func TestRoleGates(t *testing.T) {
	e := setup(t)
	_, err := e.svc.ManageRequests(ctx, e.adopter, lifecycle.Filter{})
	assert.ErrorIs(t, err, portal.ErrForbidden)

	_, err = e.svc.MyRequests(ctx, session.Session{}, lifecycle.Filter{})
	assert.ErrorIs(t, err, portal.ErrSignedOut)
	assert.Equal(t, "/login", failure(t, err).Redirect)

	_, err = e.svc.Reports(ctx, e.shelter)
	assert.ErrorIs(t, err, portal.ErrForbidden)
	assert.Zero(t, e.fake.countCalls("GET /admin/reports/adoptions"), "nothing sent")
}

func TestAppointmentsFailureTolerated(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestApproved})
	e.fake.failing("GET /appointments/user", 500)

	page, err := e.svc.MyRequests(ctx, e.adopter, lifecycle.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Cards, 1)
	require.Len(t, page.Notices, 1)
	assert.Equal(t, portal.Notice{Level: portal.LevelError, Message: "injected failure"}, page.Notices[0])
}

func TestRequestsFailureFailsPage(t *testing.T) {
	e := setup(t)
	e.fake.failing("GET /adoptions/user", 502)
	_, err := e.svc.MyRequests(ctx, e.adopter, lifecycle.Filter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrUpstream)
	assert.Equal(t, "injected failure", portal.NoticeFor(err, "x").Message)
}

func TestDecideRequest(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestPending})

	page, err := e.svc.DecideRequest(ctx, e.shelter, 1, model.RequestApproved)
	require.NoError(t, err)
	assert.Equal(t, "Request approved successfully", page.Notices[0].Message)
	assert.Equal(t, model.RequestApproved, page.Cards[0].Request.Status)
	assert.Empty(t, page.Cards[0].Actions)

	_, err = e.svc.DecideRequest(ctx, e.shelter, 1, model.RequestRejected)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Equal(t, 1, e.fake.countCalls("PUT /adoptions/manage/{id}"), "invalid decision is not sent")

	_, err = e.svc.DecideRequest(ctx, e.shelter, 99, model.RequestApproved)
	assert.ErrorIs(t, err, portal.ErrNotFound)
}

func TestDecideRequestCannotComplete(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestApproved})

	_, err := e.svc.DecideRequest(ctx, e.shelter, 1, model.RequestCompleted)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Zero(t, e.fake.countCalls("PUT /adoptions/manage/{id}"))
}

func TestCompleteVisitCompletesRequest(t *testing.T) {
	e := setup(t)
	e.seedPet(model.Pet{ID: 10, Name: "Rex", Status: model.PetAvailable, ShelterID: shelterID})
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestApproved})
	e.seedAppointment(model.Appointment{ID: 5, AdoptionRequestID: 1, VisitorName: "Ann", NumberOfVisitors: 1, Status: model.AppointmentInProgress})

	before, err := e.svc.PetDetails(ctx, e.adopter, 10)
	require.NoError(t, err)
	assert.False(t, before.Offer.Show)

	page, err := e.svc.AdvanceAppointment(ctx, e.shelter, 5, model.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, e.fake.countCalls("PUT /appointments/manage/{id}"))
	assert.Equal(t, 1, e.fake.countCalls("PUT /adoptions/manage/{id}"))

	c := page.Cards[0]
	assert.Equal(t, model.RequestCompleted, c.Request.Status)
	assert.Equal(t, model.AppointmentCompleted, c.Appointment.Status)
	for _, st := range c.Timeline.Stages {
		assert.Equal(t, lifecycle.StageCompleted, st.State)
	}
	assert.Contains(t, page.Notices, portal.Notice{Level: portal.LevelInfo, Message: "Adoption process completed! User can now adopt another pet."})

	after, err := e.svc.PetDetails(ctx, e.adopter, 10)
	require.NoError(t, err)
	assert.True(t, after.Offer.Show)
	assert.True(t, after.Offer.Again)
}

func TestCompleteVisitSecondCallFails(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestApproved})
	e.seedAppointment(model.Appointment{ID: 5, AdoptionRequestID: 1, Status: model.AppointmentInProgress})
	e.fake.failing("PUT /adoptions/manage/{id}", 500)

	page, err := e.svc.AdvanceAppointment(ctx, e.shelter, 5, model.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, page.Cards[0].Appointment.Status)
	assert.Equal(t, model.RequestApproved, page.Cards[0].Request.Status)
	assert.Contains(t, page.Notices, portal.Notice{Level: portal.LevelError, Message: "injected failure"})
}

func TestAdvanceAppointmentGuards(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, Status: model.RequestApproved})
	e.seedAppointment(model.Appointment{ID: 5, AdoptionRequestID: 1, Status: model.AppointmentApproved})
	e.seedAppointment(model.Appointment{ID: 6, AdoptionRequestID: 404, Status: model.AppointmentPending})

	_, err := e.svc.AdvanceAppointment(ctx, e.shelter, 5, model.AppointmentCancelled)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = e.svc.AdvanceAppointment(ctx, e.shelter, 6, model.AppointmentApproved)
	assert.ErrorIs(t, err, portal.ErrNotFound, "orphans are not actionable")

	e.seedAppointment(model.Appointment{ID: 7, AdoptionRequestID: 1, Status: model.AppointmentPending})
	_, err = e.svc.AdvanceAppointment(ctx, e.shelter, 5, model.AppointmentInProgress)
	assert.ErrorIs(t, err, portal.ErrAmbiguous)

	assert.Zero(t, e.fake.countCalls("PUT /appointments/manage/{id}"))
}

func TestBookAppointment(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestApproved})
	e.seedRequest(model.AdoptionRequest{ID: 2, PetID: 11, UserID: adopterID, Status: model.RequestPending})

	form := model.AppointmentForm{
		VisitorName: "Ann", NumberOfVisitors: 2, ShelterID: shelterID, AdoptionRequestID: 1,
		AppointmentDateTime: model.NewTime(time.Now().Add(48 * time.Hour)),
	}
	page, err := e.svc.BookAppointment(ctx, e.adopter, form)
	require.NoError(t, err)
	assert.Equal(t, "Appointment booked successfully!", page.Notices[0].Message)
	v, ok := findCard(page, 1)
	require.True(t, ok)
	require.NotNil(t, v.Appointment)
	assert.False(t, v.CanBook)

	_, err = e.svc.BookAppointment(ctx, e.adopter, form)
	assert.ErrorIs(t, err, portal.ErrNotOffered)
	assert.Equal(t, "An appointment is already booked for this request", portal.NoticeFor(err, "").Message)

	form.AdoptionRequestID = 2
	_, err = e.svc.BookAppointment(ctx, e.adopter, form)
	assert.ErrorIs(t, err, portal.ErrNotOffered)

	assert.Equal(t, 1, e.fake.countCalls("POST /appointments/create"))
}

func TestBookAppointmentValidation(t *testing.T) {
	e := setup(t)
	base := model.AppointmentForm{
		VisitorName: "Ann", NumberOfVisitors: 1, ShelterID: shelterID, AdoptionRequestID: 1,
		AppointmentDateTime: model.NewTime(time.Now().Add(time.Hour)),
	}
	tests := []struct {
		name string
		mod  func(*model.AppointmentForm)
	}{
		{"blank visitor", func(f *model.AppointmentForm) { f.VisitorName = "  " }},
		{"no visitors", func(f *model.AppointmentForm) { f.NumberOfVisitors = 0 }},
		{"no shelter", func(f *model.AppointmentForm) { f.ShelterID = 0 }},
		{"no time", func(f *model.AppointmentForm) { f.AppointmentDateTime = model.Time{} }},
		{"past", func(f *model.AppointmentForm) { f.AppointmentDateTime = model.NewTime(time.Now().Add(-time.Hour)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base
			tt.mod(&f)
			_, err := e.svc.BookAppointment(ctx, e.adopter, f)
			assert.ErrorIs(t, err, portal.ErrInvalid)
		})
	}
	_, err := e.svc.BookAppointment(ctx, e.shelter, base)
	assert.ErrorIs(t, err, portal.ErrForbidden)
}

func TestAdopt(t *testing.T) {
	e := setup(t)
	e.seedPet(model.Pet{ID: 10, Name: "Rex", Status: model.PetAvailable})
	e.seedPet(model.Pet{ID: 11, Name: "Tom", Status: model.PetAdopted})

	res, err := e.svc.Adopt(ctx, e.adopter, 10)
	require.NoError(t, err)
	assert.Equal(t, "Adoption request sent for Rex!", res.Notices[0].Message)
	assert.False(t, res.Pet.Offer.Show)
	assert.Equal(t, "Request pending", res.Pet.Offer.Reason)

	_, err = e.svc.Adopt(ctx, e.adopter, 10)
	assert.ErrorIs(t, err, portal.ErrNotOffered)

	_, err = e.svc.Adopt(ctx, e.adopter, 11)
	assert.ErrorIs(t, err, portal.ErrNotOffered)
	assert.Equal(t, "This pet is adopted", portal.NoticeFor(err, "").Message)

	_, err = e.svc.Adopt(ctx, session.Session{}, 10)
	assert.Equal(t, "Please login to adopt a pet", portal.NoticeFor(err, "").Message)

	assert.Equal(t, 1, e.fake.countCalls("POST /adoptions/create"))
}

func TestPetsGating(t *testing.T) {
	e := setup(t)
	e.seedPet(model.Pet{ID: 10, Name: "Rex", Status: model.PetAvailable, ShelterID: shelterID})

	page, err := e.svc.Pets(ctx, session.Session{})
	require.NoError(t, err)
	require.Len(t, page.Pets, 1)
	assert.False(t, page.Pets[0].Offer.Show)
	assert.False(t, page.Pets[0].CanEdit)

	page, err = e.svc.Pets(ctx, e.shelter)
	require.NoError(t, err)
	assert.True(t, page.Pets[0].CanEdit, "own listing")

	page, err = e.svc.Pets(ctx, e.adopter)
	require.NoError(t, err)
	assert.True(t, page.Pets[0].Offer.Show)
}

func TestPetsHidesOfferWhenRequestsUnknown(t *testing.T) {
	e := setup(t)
	e.seedPet(model.Pet{ID: 10, Name: "Rex", Status: model.PetAvailable, ShelterID: shelterID})
	e.fake.failing("GET /adoptions/user", 500)

	page, err := e.svc.Pets(ctx, e.adopter)
	require.NoError(t, err)
	require.Len(t, page.Pets, 1)
	assert.False(t, page.Pets[0].Offer.Show)
	assert.Equal(t, "Could not check your requests", page.Pets[0].Offer.Reason)

	pet, err := e.svc.PetDetails(ctx, e.adopter, 10)
	require.NoError(t, err)
	assert.False(t, pet.Offer.Show)
}

func TestPetDetailsRedirects(t *testing.T) {
	e := setup(t)
	_, err := e.svc.PetDetails(ctx, e.adopter, 404)
	f := failure(t, err)
	assert.Equal(t, "/pets", f.Redirect)
	assert.Equal(t, "Failed to load pet details", f.Notice.Message)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestPetMutations(t *testing.T) {
	e := setup(t)
	e.seedPet(model.Pet{ID: 10, Name: "Rex", Status: model.PetAvailable, ShelterID: 1})

	_, err := e.svc.AddPet(ctx, e.shelter, model.PetInput{Type: "Dog"}, nil)
	assert.ErrorIs(t, err, portal.ErrInvalid)
	assert.Equal(t, "Name is required", portal.NoticeFor(err, "").Message)

	_, err = e.svc.DeletePet(ctx, e.shelter, 10)
	assert.ErrorIs(t, err, portal.ErrForbidden, "another shelter's pet")

	res, err := e.svc.DeletePet(ctx, e.admin, 10)
	require.NoError(t, err)
	assert.Equal(t, `"Rex" has been deleted successfully!`, res.Notices[0].Message)

	_, err = e.svc.DeletePet(ctx, e.adopter, 10)
	assert.ErrorIs(t, err, portal.ErrForbidden)
}

func TestReportsAllOrNothing(t *testing.T) {
	e := setup(t)
	r, err := e.svc.Reports(ctx, e.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.Adoptions.TotalRequests)
	assert.EqualValues(t, 2, r.Users.TotalUsers)
	assert.EqualValues(t, 3, r.Pets.TotalPets)

	e.fake.failing("GET /admin/reports/users", 500)
	r, err = e.svc.Reports(ctx, e.admin)
	require.Error(t, err)
	assert.Zero(t, r.Adoptions.TotalRequests)
}

func TestLoginLogout(t *testing.T) {
	e := setup(t)
	sess, notices, err := e.svc.Login(ctx, "browser-1", model.Credentials{Email: "shelter@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, sess.Identity.IsShelter())
	assert.Equal(t, "Login successful!", notices[0].Message)

	_, _, err = e.svc.Login(ctx, "browser-1", model.Credentials{Email: "", Password: "pw"})
	assert.ErrorIs(t, err, portal.ErrInvalid)

	e.svc.Logout(ctx, "browser-1")
}

func TestChangePassword(t *testing.T) {
	e := setup(t)
	_, err := e.svc.ChangePassword(ctx, e.adopter, "old", "new1", "new2")
	assert.Equal(t, "New passwords do not match", portal.NoticeFor(err, "").Message)
	assert.Zero(t, e.fake.countCalls("PUT /user/change-password"))

	notices, err := e.svc.ChangePassword(ctx, e.adopter, "old", "new1", "new1")
	require.NoError(t, err)
	assert.Equal(t, "Password updated successfully", notices[0].Message)
}

func TestManageFilterNotice(t *testing.T) {
	e := setup(t)
	e.seedRequest(model.AdoptionRequest{ID: 1, PetID: 10, UserID: adopterID, Status: model.RequestPending})
	e.seedRequest(model.AdoptionRequest{ID: 2, PetID: 11, UserID: adopterID, Status: model.RequestApproved})

	page, err := e.svc.ManageRequests(ctx, e.admin, lifecycle.Filter{Status: model.RequestApproved})
	require.NoError(t, err)
	require.Len(t, page.Cards, 1)
	assert.Equal(t, 2, page.Counts[lifecycle.StatusAll])
	assert.Equal(t, "Found 1 request(s) matching your filters", page.Notices[0].Message)
}

func findCard(p portal.RequestsPage, id int64) (portal.RequestCard, bool) {
	for _, c := range p.Cards {
		if c.Request.ID == id {
			return c, true
		}
	}
	return portal.RequestCard{}, false
}
