package portal

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"pet-adoption-portal/internal/auth"
	"pet-adoption-portal/internal/model"
	"pet-adoption-portal/internal/session"
)

// Login exchanges credentials for a token and starts a session under key.
func (s *Service) Login(ctx context.Context, key string, creds model.Credentials) (session.Session, []Notice, error) {
	const op = "login"
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return session.Guest(key), nil, reject(op, ErrInvalid, "Email and password are required")
	}
	token, err := s.api.Login(ctx, creds)
	if err != nil {
		return session.Guest(key), nil, s.fail(op, err, "Login failed")
	}
	sess, err := s.sessions.Begin(ctx, key, token)
	if errors.Is(err, session.ErrGuestToken) {
		s.log.Warn("login returned an unusable token", zap.String("email", creds.Email))
		return sess, nil, reject(op, err, "Login failed")
	}
	if err != nil {
		return sess, nil, s.fail(op, err, "Login failed")
	}
	s.log.Info("signed in", zap.String("email", sess.Identity.Email), zap.Stringer("role", sess.Identity.Role))
	return sess, []Notice{{LevelSuccess, "Login successful!"}}, nil
}

// Logout ends the session; it never fails from the user's point of view.
func (s *Service) Logout(ctx context.Context, key string) []Notice {
	if err := s.sessions.End(ctx, key); err != nil {
		s.log.Error("logout", zap.Error(err))
	}
	return []Notice{{LevelInfo, "Logged out"}}
}

// Register creates an account. Only adopter and shelter accounts may be
// requested.
func (s *Service) Register(ctx context.Context, r model.Registration) (model.Profile, []Notice, error) {
	const op = "register"
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return model.Profile{}, nil, reject(op, ErrInvalid, "Name, email and password are required")
	}
	switch auth.ParseRole(r.Role) {
	case auth.Guest:
		if r.Role != "" {
			return model.Profile{}, nil, reject(op, ErrInvalid, "Role must be USER or SHELTER")
		}
		r.Role = "USER"
	case auth.User:
		r.Role = "USER"
	case auth.Shelter:
		r.Role = "SHELTER"
	case auth.Admin:
		return model.Profile{}, nil, reject(op, ErrInvalid, "Role must be USER or SHELTER")
	}
	p, err := s.api.Register(ctx, r)
	if err != nil {
		return model.Profile{}, nil, s.fail(op, err, "Registration failed")
	}
	return p, []Notice{{LevelSuccess, "Registration successful! Please login."}}, nil
}

// Profile loads the caller's profile; on failure the page falls back to home.
func (s *Service) Profile(ctx context.Context, sess session.Session) (model.Profile, error) {
	const op = "profile"
	if err := requireSignedIn(op, sess); err != nil {
		return model.Profile{}, err
	}
	p, err := s.client(sess).Profile(ctx)
	if err != nil {
		f := s.fail(op, err, "Failed to load profile")
		f.Redirect = "/"
		return model.Profile{}, f
	}
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, sess session.Session, p model.Profile) (model.Profile, []Notice, error) {
	const op = "update_profile"
	if err := requireSignedIn(op, sess); err != nil {
		return model.Profile{}, nil, err
	}
	if strings.TrimSpace(p.Name) == "" {
		return model.Profile{}, nil, reject(op, ErrInvalid, "Name is required")
	}
	out, err := s.client(sess).UpdateProfile(ctx, p)
	if err != nil {
		return model.Profile{}, nil, s.fail(op, err, "Failed to update profile")
	}
	return out, []Notice{{LevelSuccess, "Profile updated successfully"}}, nil
}

func (s *Service) ChangePassword(ctx context.Context, sess session.Session, current, next, confirm string) ([]Notice, error) {
	const op = "change_password"
	if err := requireSignedIn(op, sess); err != nil {
		return nil, err
	}
	if current == "" || next == "" {
		return nil, reject(op, ErrInvalid, "Current and new password are required")
	}
	if next != confirm {
		return nil, reject(op, ErrInvalid, "New passwords do not match")
	}
	err := s.client(sess).ChangePassword(ctx, model.PasswordChange{CurrentPassword: current, NewPassword: next})
	if err != nil {
		return nil, s.fail(op, err, "Failed to update password")
	}
	return []Notice{{LevelSuccess, "Password updated successfully"}}, nil
}

// Shelters lists shelters for the booking form.
func (s *Service) Shelters(ctx context.Context, sess session.Session) ([]model.Profile, error) {
	const op = "shelters"
	if err := requireSignedIn(op, sess); err != nil {
		return nil, err
	}
	list, err := s.client(sess).Shelters(ctx)
	if err != nil {
		return nil, s.fail(op, err, "Failed to load shelters")
	}
	return list, nil
}
