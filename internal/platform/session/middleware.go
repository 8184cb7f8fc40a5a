package session

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CookieName carries the session token for browser navigations. API clients
// may send the same token as a bearer header instead.
const CookieName = "portal_session"

const contextKey = "session"

// Middleware gates a route group on a live session. Browser navigations
// without one get a full redirect to the sign-in page; API requests get 401.
func Middleware(store *Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := store.Get(TokenFromRequest(c))
			if !ok {
				if wantsHTML(c.Request()) {
					return c.Redirect(http.StatusFound, "/login")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			c.Set(contextKey, sess)
			return next(c)
		}
	}
}

// FromContext returns the gated request's session. Nil outside the gate.
func FromContext(c echo.Context) *Session {
	sess, _ := c.Get(contextKey).(*Session)
	return sess
}

// TokenFromRequest extracts the session token from the cookie or the
// Authorization header.
func TokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
