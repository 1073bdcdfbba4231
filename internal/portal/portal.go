// Package portal orchestrates the adoption API on behalf of one session:
// it fetches, reconciles and mutates, and turns every outcome into a short
// notice for the user.
package portal

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pet-adoption-portal/internal/api"
	"pet-adoption-portal/internal/lifecycle"
	"pet-adoption-portal/internal/session"
)

var (
	ErrSignedOut  = errors.New("portal: not signed in")
	ErrForbidden  = errors.New("portal: not allowed for this role")
	ErrInvalid    = errors.New("portal: invalid input")
	ErrNotFound   = errors.New("portal: not found")
	ErrNotOffered = errors.New("portal: action not available")
	ErrAmbiguous  = errors.New("portal: several appointments match this request")
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Failure is an operation that did not happen. Notice is what to show;
// Redirect, when set, names the page to fall back to.
type Failure struct {
	Op       string
	Notice   Notice
	Redirect string
	Err      error
}

func (f *Failure) Error() string { return fmt.Sprintf("%s: %v", f.Op, f.Err) }
func (f *Failure) Unwrap() error { return f.Err }

// NoticeFor returns the notice to show for err.
func NoticeFor(err error, fallback string) Notice {
	var f *Failure
	if errors.As(err, &f) {
		return f.Notice
	}
	return Notice{Level: LevelError, Message: api.UserMessage(err, fallback)}
}

type Service struct {
	api      *api.Client
	sessions *session.Manager
	log      *zap.Logger
	now      func() time.Time
}

func New(client *api.Client, sessions *session.Manager, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: client, sessions: sessions, log: log.Named("portal"), now: time.Now}
}

// SetClock replaces the time source; tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) client(sess session.Session) *api.Client {
	return s.api.WithToken(sess.Token)
}

// fail logs err once and wraps it with the notice to show.
func (s *Service) fail(op string, err error, fallback string) *Failure {
	var local *Failure
	if errors.As(err, &local) {
		return local
	}
	f := &Failure{Op: op, Err: err, Notice: NoticeFor(err, fallback)}
	switch {
	case errors.Is(err, api.ErrTransport), errors.Is(err, api.ErrUpstream):
		s.log.Error(op, zap.Error(err))
	default:
		s.log.Warn(op, zap.Error(err))
	}
	return f
}

// reject is a local refusal: nothing was sent to the API.
func reject(op string, err error, msg string) *Failure {
	return &Failure{Op: op, Err: err, Notice: Notice{Level: LevelError, Message: msg}}
}

func requireSignedIn(op string, sess session.Session) error {
	if !sess.Authenticated() {
		f := reject(op, ErrSignedOut, "Please login to continue")
		f.Redirect = "/login"
		return f
	}
	return nil
}

func requireManager(op string, sess session.Session) error {
	if err := requireSignedIn(op, sess); err != nil {
		return err
	}
	if !sess.Identity.IsManager() {
		return reject(op, ErrForbidden, "Only shelters and admins can do this")
	}
	return nil
}

func requireAdmin(op string, sess session.Session) error {
	if err := requireSignedIn(op, sess); err != nil {
		return err
	}
	if !sess.Identity.IsAdmin() {
		return reject(op, ErrForbidden, "Admin access required")
	}
	return nil
}

func (s *Service) logOrphans(op string, rec lifecycle.Reconciliation) {
	for _, a := range rec.Orphans {
		s.log.Warn("appointment references unknown request",
			zap.String("op", op),
			zap.Int64("appointment_id", a.ID),
			zap.Int64("adoption_request_id", a.AdoptionRequestID))
	}
}
