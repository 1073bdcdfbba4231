package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"pet-adoption-portal/internal/auth"
	"pet-adoption-portal/internal/session"
)

// SessionCookie names the cookie holding the portal session key.
const SessionCookie = "sid"

func bearer(v string) string {
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

func attach(ctx context.Context, s session.Session) context.Context {
	ctx = session.NewContext(ctx, s)
	ctx = auth.WithToken(ctx, s.Token)
	return auth.WithIdentity(ctx, s.Identity)
}

// Session resolves the caller's session for every HTTP request. The sid
// cookie wins; otherwise an Authorization bearer token is used as-is. Anything
// unusable leaves a Guest session, never an error response.
func Session(mgr *session.Manager, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var s session.Session
			if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
				s, err = mgr.Hydrate(r.Context(), c.Value)
				if err != nil {
					log.Warn("hydrate session", zap.Error(err))
				}
			} else if tok := bearer(r.Header.Get("Authorization")); tok != "" {
				s = session.FromToken(tok)
				if s.Identity.Expired(time.Now()) {
					s = session.Session{}
				}
			}
			next.ServeHTTP(w, r.WithContext(attach(r.Context(), s)))
		})
	}
}

// Auth reads the bearer token from gRPC metadata. The token is decoded for
// its claims only; the adoption API remains the one that verifies it. Methods
// listed in open are let through without a token.
func Auth(open ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]bool, len(open))
	for _, m := range open {
		skip[m] = true
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		if skip[info.FullMethod] {
			return next(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		raw := ""
		if vals := md.Get("authorization"); len(vals) > 0 {
			raw = bearer(vals[0])
		}
		if raw == "" {
			return nil, status.Error(codes.Unauthenticated, "no token")
		}
		s := session.FromToken(raw)
		if !s.Authenticated() {
			return nil, status.Error(codes.Unauthenticated, "bad token")
		}
		if s.Identity.Expired(time.Now()) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return next(attach(ctx, s), req)
	}
}
