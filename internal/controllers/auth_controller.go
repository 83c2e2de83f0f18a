package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/core"
	"github.com/RealZimboGuy/reviewflow/pkg/reviewflow/domain"
)

// SessionCookie carries the login session of browser clients.
const SessionCookie = "sessionId"

// UserLookup is implemented by repository.UserRepository.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindBySessionID(ctx context.Context, sessionID string, now time.Time) (*domain.User, error)
	FindByApiKey(ctx context.Context, apiKey string) (*domain.User, error)
}

type AuthController struct {
	UserRepo UserLookup
	Clock    core.Clock
}

func NewAuthController(userRepo UserLookup, clock core.Clock) AuthController {
	return AuthController{UserRepo: userRepo, Clock: clock}
}

func (wc *AuthController) now() time.Time {
	if wc.Clock == nil {
		return time.Now().UTC()
	}
	return wc.Clock.Now().UTC()
}

// RequireAuth resolves the caller from the session cookie or the X-API-Key
// header and stores the username (and session id) in the request context.
// Unauthenticated API calls get a 401 problem, browsers are sent to /login.
func (wc *AuthController) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			next(w, r)
			return
		}
		// 1) Try session cookie
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			u, err := wc.UserRepo.FindBySessionID(r.Context(), c.Value, wc.now())
			if err == nil && u != nil && enabled(u) {
				ctx := context.WithValue(r.Context(), core.CtxKeyUsername, u.Username)
				ctx = context.WithValue(ctx, core.CtxKeySessionID, c.Value)
				next(w, r.WithContext(ctx))
				return
			}
		}
		// 2) Try API key from headers
		// Supported headers: X-API-Key: <key>
		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			u, err := wc.UserRepo.FindByApiKey(r.Context(), apiKey)
			if err == nil && u != nil && enabled(u) {
				ctx := context.WithValue(r.Context(), core.CtxKeyUsername, u.Username)
				next(w, r.WithContext(ctx))
				return
			}
			unauthorized(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			unauthorized(w, r)
			return
		}
		// Otherwise redirect to login for browser flows
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func enabled(u *domain.User) bool {
	return !u.Enabled.Valid || u.Enabled.Bool
}

// Username returns the authenticated username stored by RequireAuth.
func Username(ctx context.Context) string {
	s, _ := ctx.Value(core.CtxKeyUsername).(string)
	return s
}

// SessionID returns the browser session id stored by RequireAuth, if any.
func SessionID(ctx context.Context) string {
	s, _ := ctx.Value(core.CtxKeySessionID).(string)
	return s
}
