package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/obs"
)

func newClient(t *testing.T, r http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := api.New(api.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second, Metrics: obs.NewMetrics()})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBearerAndRequestID(t *testing.T) {
	var gotAuth, gotID string
	r := chi.NewRouter()
	r.Get("/api/adoptions/user", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "petId": 2, "userId": 3, "status": "PENDING", "createdAt": "2024-05-01T10:11:12"},
		})
	})
	c := newClient(t, r)

	reqs, err := c.WithToken("tok").MyAdoptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.NotEmpty(t, gotID)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.RequestPending, reqs[0].Status)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 11, 12, 0, time.UTC), reqs[0].CreatedAt.Time)

	_, err = c.MyAdoptions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "no token, no header")
}

func TestEmptyListIsNotNil(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/appointments/user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, nil)
	})
	list, err := newClient(t, r).MyAppointments(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name    string
		code    int
		body    string
		is      error
		message string
	}{
		{"unauthorized", 401, `{"message":"Bad credentials"}`, api.ErrUnauthorized, "Bad credentials"},
		{"forbidden", 403, ``, api.ErrForbidden, ""},
		{"not found", 404, `{"error":"Not Found"}`, api.ErrNotFound, "Not Found"},
		{"conflict", 400, `You already have a pending request for this pet`, api.ErrRejected, "You already have a pending request for this pet"},
		{"server", 500, `<html>boom</html>`, api.ErrUpstream, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/api/adoptions/create", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := newClient(t, r).CreateAdoption(context.Background(), 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)

			var apiErr *api.Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)

			want := tt.message
			if want == "" {
				want = "fallback"
			}
			assert.Equal(t, want, api.UserMessage(err, "fallback"))
		})
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := api.New(api.Config{BaseURL: url})
	require.NoError(t, err)
	_, err = c.ListPets(context.Background())
	assert.ErrorIs(t, err, api.ErrTransport)
	assert.Equal(t, "Failed to load pets", api.UserMessage(err, "Failed to load pets"))
}

func TestLogin(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "abc"})
	})
	c := newClient(t, r)

	tok, err := c.Login(context.Background(), model.Credentials{Email: "a@b", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = c.Login(context.Background(), model.Credentials{Email: "a@b", Password: "nope"})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, "Invalid email or password", api.UserMessage(err, "Login failed"))
}

func TestStatusUpdates(t *testing.T) {
	var paths, bodies []string
	r := chi.NewRouter()
	r.Put("/api/{kind}/manage/{id}", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, string(b))
		writeJSON(w, http.StatusOK, map[string]any{"id": 9, "status": "COMPLETED"})
	})
	c := newClient(t, r)

	a, err := c.SetAppointmentStatus(context.Background(), 9, model.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentCompleted, a.Status)
	_, err = c.SetAdoptionStatus(context.Background(), 4, model.RequestCompleted)
	require.NoError(t, err)

	assert.Equal(t, []string{"/api/appointments/manage/9", "/api/adoptions/manage/4"}, paths)
	assert.JSONEq(t, `{"status":"COMPLETED"}`, bodies[0])
}

func TestCreateAppointmentSendsISOTime(t *testing.T) {
	var got map[string]any
	r := chi.NewRouter()
	r.Post("/api/appointments/create", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "adoptionRequestId": 3, "status": "PENDING"})
	})
	at := time.Date(2025, 1, 2, 15, 30, 0, 0, time.UTC)
	a, err := newClient(t, r).CreateAppointment(context.Background(), model.AppointmentForm{
		VisitorName: "Ann", NumberOfVisitors: 2, ShelterID: 8, AdoptionRequestID: 3,
		AppointmentDateTime: model.NewTime(at),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentPending, a.Status)
	assert.Equal(t, "2025-01-02T15:30:00Z", got["appointmentDateTime"])
	assert.EqualValues(t, 3, got["adoptionRequestId"])
}

func TestPetMultipart(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/pets/add", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Rex", r.FormValue("name"))
		assert.Equal(t, "3", r.FormValue("age"))
		assert.Equal(t, "AVAILABLE", r.FormValue("status"))
		f, hdr, err := r.FormFile("photo")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "rex.png", hdr.Filename)
		writeJSON(w, http.StatusOK, map[string]any{"id": 11, "name": "Rex", "status": "AVAILABLE"})
	})
	r.Put("/api/pets/update/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("pet")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "application/json", hdr.Header.Get("Content-Type"))
		var in model.PetInput
		require.NoError(t, json.NewDecoder(f).Decode(&in))
		assert.Equal(t, "Max", in.Name)
		_, _, err = r.FormFile("photo")
		assert.ErrorIs(t, err, http.ErrMissingFile)
		writeJSON(w, http.StatusOK, map[string]any{"id": 11, "name": "Max"})
	})
	c := newClient(t, r)

	in := model.PetInput{Name: "Rex", Type: "Dog", Age: 3, Breed: "Lab", Status: model.PetAvailable}
	p, err := c.AddPet(context.Background(), in, &api.Part{Filename: "rex.png", Data: []byte("\x89PNG\r\n\x1a\n")})
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ID)

	in.Name = "Max"
	p, err = c.UpdatePet(context.Background(), 11, in, nil)
	require.NoError(t, err)
	assert.Equal(t, "Max", p.Name)
}

func TestReports(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/admin/reports/adoptions", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"totalRequests": 4, "pendingRequests": 1, "approvedRequests": 2, "rejectedRequests": 1,
			"requestsByMonth": map[string]int{"January": 5},
			"recentRequests": []map[string]any{{"id": 1, "petId": 2, "status": "APPROVED", "createdAt": "2024-02-01T09:00:00"}},
			"extra": true,
		})
	})
	r.Get("/api/admin/reports/pets", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"totalPets": 3, "availablePets": 2, "adoptedPets": 1,
			"petsByType": map[string]int{"Dog": 2, "Cat": 1},
		})
	})
	c := newClient(t, r)

	ar, err := c.AdoptionReport(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, ar.TotalRequests)
	assert.EqualValues(t, 5, ar.RequestsByMonth["January"])
	require.Len(t, ar.RecentRequests, 1)
	assert.Equal(t, model.RequestApproved, ar.RecentRequests[0].Status)
	assert.Equal(t, 2024, ar.RecentRequests[0].CreatedAt.Year())

	pr, err := c.PetReport(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, pr.PetsByType["Dog"])

	_, err = c.UserReport(context.Background())
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestInvalidBaseURL(t *testing.T) {
	_, err := api.New(api.Config{BaseURL: "not a url"})
	assert.Error(t, err)
}
