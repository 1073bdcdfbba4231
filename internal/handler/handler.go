// Package handler exposes the portal over HTTP (JSON, cookie sessions) and
// gRPC (bearer tokens).
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"pet-adoption-portal/internal/middleware"
	"pet-adoption-portal/internal/obs"
	"pet-adoption-portal/internal/portal"
	"pet-adoption-portal/internal/session"
)

type Handler struct {
	svc *portal.Service
	log *zap.Logger
}

func New(svc *portal.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log.Named("http")}
}

// Options are the pieces Routes mounts around the portal endpoints. Limiter,
// Metrics and GRPCWeb may be nil.
type Options struct {
	Sessions *session.Manager
	Limiter  *middleware.RateLimiter
	Metrics  *obs.Metrics
	// GRPCWeb serves browser gRPC calls under /petadopt.v1.Portal/.
	GRPCWeb http.Handler
}

func (h *Handler) Routes(o Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	if o.Metrics != nil {
		r.Use(o.Metrics.Instrument)
		r.Method(http.MethodGet, "/metrics", o.Metrics.Handler())
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if o.GRPCWeb != nil {
		r.Handle("/"+ServiceName+"/*", o.GRPCWeb)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(o.Sessions, h.log))

		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.currentSession)
			r.Post("/logout", h.logout)
			r.Group(func(r chi.Router) {
				if o.Limiter != nil {
					r.Use(middleware.Limit(o.Limiter))
				}
				r.Post("/login", h.login)
				r.Post("/register", h.register)
			})
		})

		r.Route("/pets", func(r chi.Router) {
			r.Get("/", h.listPets)
			r.Post("/", h.addPet)
			r.Get("/{id}", h.petDetails)
			r.Put("/{id}", h.updatePet)
			r.Delete("/{id}", h.deletePet)
			r.Post("/{id}/adopt", h.adopt)
		})

		r.Get("/requests/mine", h.myRequests)
		r.Get("/requests/manage", h.manageRequests)
		r.Put("/requests/{id}/status", h.decideRequest)
		r.Post("/appointments", h.bookAppointment)
		r.Put("/appointments/{id}/status", h.advanceAppointment)

		r.Get("/admin/dashboard", h.dashboard)
		r.Get("/admin/reports", h.reports)

		r.Get("/profile", h.profile)
		r.Put("/profile", h.updateProfile)
		r.Put("/profile/password", h.changePassword)
		r.Get("/shelters", h.shelters)
	})
	return r
}
