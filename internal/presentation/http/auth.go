package httppresentation

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/Zhima-Mochi/minishop-fashion/internal/observability"
	"github.com/Zhima-Mochi/minishop-fashion/internal/observability/logctx"
	"github.com/Zhima-Mochi/minishop-fashion/internal/session"
)

// Authenticator reads the session token from the auth cookie, falling back to
// an Authorization: Bearer header.
type Authenticator struct {
	parser     *session.Parser
	cookieName string
}

func NewAuthenticator(parser *session.Parser, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = "token"
	}
	return &Authenticator{parser: parser, cookieName: cookieName}
}

func (a *Authenticator) token(r *http.Request) string {
	if c, err := r.Cookie(a.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Require rejects requests without a valid session (401) or whose role is
// not listed (403). An empty list admits any authenticated role.
func (a *Authenticator) Require(roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := a.parser.Parse(a.token(r))
			if err != nil {
				msg := "authentication required"
				if !errors.Is(err, session.ErrMissingToken) {
					msg = "invalid or expired session"
				}
				writeError(w, http.StatusUnauthorized, errors.New(msg))
				return
			}
			if len(roles) > 0 && !slices.Contains(roles, s.Role) {
				writeError(w, http.StatusForbidden, errors.New("forbidden"))
				return
			}

			ctx := session.With(r.Context(), s)
			ctx, _ = logctx.Enrich(ctx, nil,
				observability.F("user_id", s.UserID),
				observability.F("role", string(s.Role)),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
