// Package auth derives a display identity from a bearer token.
//
// Tokens are decoded without verifying their signature. The result only gates
// what the portal offers; the remote API stays the authorization boundary and
// rejects anything the token does not actually allow.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("auth: malformed token")

// Role is the tagged role variant. The zero value is Guest.
type Role int

const (
	Guest Role = iota
	User
	Shelter
	Admin
)

func (r Role) String() string {
	switch r {
	case User:
		return "ROLE_USER"
	case Shelter:
		return "ROLE_SHELTER"
	case Admin:
		return "ROLE_ADMIN"
	}
	return "GUEST"
}

// ParseRole accepts both "ROLE_X" and bare "X" spellings, case-insensitively.
func ParseRole(s string) Role {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch strings.TrimPrefix(s, "ROLE_") {
	case "USER":
		return User
	case "SHELTER":
		return Shelter
	case "ADMIN":
		return Admin
	}
	return Guest
}

type Identity struct {
	Email     string
	Role      Role
	ExpiresAt time.Time
}

func (id Identity) IsAuthenticated() bool { return id.Role != Guest }
func (id Identity) IsUser() bool          { return id.Role == User }
func (id Identity) IsShelter() bool       { return id.Role == Shelter }
func (id Identity) IsAdmin() bool         { return id.Role == Admin }

// IsManager reports whether the identity may manage listings and requests.
func (id Identity) IsManager() bool { return id.Role == Shelter || id.Role == Admin }

// Expired reports whether the token carried an exp claim that has passed.
func (id Identity) Expired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

// Decode never fails: a token that cannot be read yields a Guest identity.
func Decode(raw string) Identity {
	id, err := Parse(raw)
	if err != nil {
		return Identity{}
	}
	return id
}

// Parse is Decode with the failure reported.
func Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return Identity{}, ErrBadToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Identity{}, errors.Join(ErrBadToken, err)
	}

	sub, _ := claims.GetSubject()
	role := roleFromClaim(claims["roles"])
	if sub == "" || role == Guest {
		return Identity{}, ErrBadToken
	}

	id := Identity{Email: sub, Role: role}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}

// roles may be a single string or a list; the strongest known role wins.
func roleFromClaim(v any) Role {
	switch t := v.(type) {
	case string:
		best := Guest
		for _, part := range strings.Split(t, ",") {
			best = max(best, ParseRole(part))
		}
		return best
	case []any:
		best := Guest
		for _, e := range t {
			if s, ok := e.(string); ok {
				best = max(best, ParseRole(s))
			}
		}
		return best
	}
	return Guest
}
