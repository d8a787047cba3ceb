package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/lazypower/lumine/internal/auth"
)

// authenticate requires a valid bearer token and puts its subject in the
// request context. First sight of a subject creates the user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			s.fail(w, r, fmt.Errorf("%w: no bearer token", auth.ErrUnauthenticated))
			return
		}
		userID, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.Issuer, strings.TrimSpace(raw))
		if err != nil {
			hlog.FromRequest(r).Debug().Err(err).Msg("token-rejected")
			s.fail(w, r, err)
			return
		}
		if _, err := s.db.EnsureUser(r.Context(), userID); err != nil {
			s.fail(w, r, err)
			return
		}

		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user", userID)
		})
		next.ServeHTTP(w, r.WithContext(auth.StoreUserInContext(r.Context(), userID)))
	})
}

// userID returns the authenticated caller. Only valid behind authenticate.
func userID(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return u.ID
	}
	return ""
}
