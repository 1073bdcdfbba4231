package portal_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

const (
	adopterID = 7
	shelterID = 42
)

// fakeAPI is a small in-memory stand-in for the adoption backend.
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int64
	pets     map[int64]model.Pet
	requests []model.AdoptionRequest
	appts    []model.Appointment
	// fail maps "METHOD /path-pattern" to a status code to answer with.
	fail  map[string]int
	calls []string
}

func newFake() *fakeAPI {
	return &fakeAPI{nextID: 1000, pets: map[int64]model.Pet{}, fail: map[string]int{}}
}

func (f *fakeAPI) id() int64 { f.nextID++; return f.nextID }

func (f *fakeAPI) failing(key string, code int) {
	f.mu.Lock()
	f.fail[key] = code
	f.mu.Unlock()
}

func (f *fakeAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", f.h("POST /auth/login", func(r *http.Request) (any, int) {
			var c model.Credentials
			_ = json.NewDecoder(r.Body).Decode(&c)
			return map[string]string{"token": tokenFor(c.Email)}, 200
		}))
		r.Get("/pets", f.h("GET /pets", func(*http.Request) (any, int) {
			out := []model.Pet{}
			for _, p := range f.pets {
				out = append(out, p)
			}
			return out, 200
		}))
		r.Get("/pets/{id}", f.h("GET /pets/{id}", func(r *http.Request) (any, int) {
			p, ok := f.pets[pathID(r)]
			if !ok {
				return nil, 404
			}
			return p, 200
		}))
		r.Delete("/pets/delete/{id}", f.h("DELETE /pets/delete/{id}", func(r *http.Request) (any, int) {
			delete(f.pets, pathID(r))
			return nil, 204
		}))
		r.Post("/adoptions/create", f.h("POST /adoptions/create", func(r *http.Request) (any, int) {
			var in struct{ PetID int64 }
			_ = json.NewDecoder(r.Body).Decode(&in)
			req := model.AdoptionRequest{ID: f.id(), PetID: in.PetID, UserID: adopterID, Status: model.RequestPending, CreatedAt: model.NewTime(time.Now())}
			f.requests = append(f.requests, req)
			return req, 200
		}))
		r.Get("/adoptions/user", f.h("GET /adoptions/user", func(*http.Request) (any, int) { return f.requests, 200 }))
		r.Get("/adoptions/manage/all", f.h("GET /adoptions/manage/all", func(*http.Request) (any, int) { return f.requests, 200 }))
		r.Put("/adoptions/manage/{id}", f.h("PUT /adoptions/manage/{id}", func(r *http.Request) (any, int) {
			var in struct{ Status model.RequestStatus }
			_ = json.NewDecoder(r.Body).Decode(&in)
			for i := range f.requests {
				if f.requests[i].ID == pathID(r) {
					f.requests[i].Status = in.Status
					return f.requests[i], 200
				}
			}
			return map[string]string{"message": "Adoption request not found"}, 404
		}))
		r.Post("/appointments/create", f.h("POST /appointments/create", func(r *http.Request) (any, int) {
			var in model.AppointmentForm
			_ = json.NewDecoder(r.Body).Decode(&in)
			a := model.Appointment{
				ID: f.id(), UserID: adopterID, ShelterID: in.ShelterID, AdoptionRequestID: in.AdoptionRequestID,
				VisitorName: in.VisitorName, NumberOfVisitors: in.NumberOfVisitors,
				AppointmentDateTime: in.AppointmentDateTime, Status: model.AppointmentPending,
			}
			f.appts = append(f.appts, a)
			return a, 200
		}))
		r.Get("/appointments/user", f.h("GET /appointments/user", func(*http.Request) (any, int) { return f.appts, 200 }))
		r.Get("/appointments/shelter", f.h("GET /appointments/shelter", func(*http.Request) (any, int) { return f.appts, 200 }))
		r.Put("/appointments/manage/{id}", f.h("PUT /appointments/manage/{id}", func(r *http.Request) (any, int) {
			var in struct{ Status model.AppointmentStatus }
			_ = json.NewDecoder(r.Body).Decode(&in)
			for i := range f.appts {
				if f.appts[i].ID == pathID(r) {
					f.appts[i].Status = in.Status
					return f.appts[i], 200
				}
			}
			return nil, 404
		}))
		r.Get("/user/profile", f.h("GET /user/profile", func(r *http.Request) (any, int) {
			return model.Profile{ID: shelterID, Name: "Happy Paws", Role: "SHELTER"}, 200
		}))
		r.Put("/user/change-password", f.h("PUT /user/change-password", func(*http.Request) (any, int) {
			return "Password updated", 200
		}))
		for _, kind := range []string{"adoptions", "users", "pets"} {
			r.Get("/admin/reports/"+kind, f.h("GET /admin/reports/"+kind, func(*http.Request) (any, int) {
				return map[string]any{"totalRequests": 1, "totalUsers": 2, "totalPets": 3}, 200
			}))
		}
	})
	return r
}

func (f *fakeAPI) h(key string, fn func(*http.Request) (any, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, key)
		if code, ok := f.fail[key]; ok {
			w.WriteHeader(code)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "injected failure"})
			return
		}
		body, code := fn(r)
		if body == nil {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}

func (f *fakeAPI) countCalls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

// tokenFor derives the role from the email's local part.
func tokenFor(email string) string {
	role := "ROLE_USER"
	switch email {
	case "shelter@x.com":
		role = "ROLE_SHELTER"
	case "admin@x.com":
		role = "ROLE_ADMIN"
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": email, "roles": role, "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("backend-secret"))
	return tok
}

type env struct {
	fake    *fakeAPI
	svc     *portal.Service
	adopter session.Session
	shelter session.Session
	admin   session.Session
}

func setup(t *testing.T) *env {
	t.Helper()
	fake := newFake()
	srv := httptest.NewServer(fake.router())
	t.Cleanup(srv.Close)

	cl, err := api.New(api.Config{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second})
	require.NoError(t, err)
	mgr := session.NewManager(session.NewMemoryStore(), time.Hour, zap.NewNop())
	return &env{
		fake:    fake,
		svc:     portal.New(cl, mgr, zap.NewNop()),
		adopter: session.FromToken(tokenFor("user@x.com")),
		shelter: session.FromToken(tokenFor("shelter@x.com")),
		admin:   session.FromToken(tokenFor("admin@x.com")),
	}
}

func (e *env) seedPet(p model.Pet) {
	e.fake.mu.Lock()
	e.fake.pets[p.ID] = p
	e.fake.mu.Unlock()
}

func (e *env) seedRequest(r model.AdoptionRequest) {
	e.fake.mu.Lock()
	e.fake.requests = append(e.fake.requests, r)
	e.fake.mu.Unlock()
}

func (e *env) seedAppointment(a model.Appointment) {
	e.fake.mu.Lock()
	e.fake.appts = append(e.fake.appts, a)
	e.fake.mu.Unlock()
}
