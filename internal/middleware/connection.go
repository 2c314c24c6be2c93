package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/damacus/iron-blobs/internal/services"
	"github.com/damacus/iron-blobs/internal/utils"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// publicPaths are served without a connection
var publicPaths = map[string]bool{
	"/connect":    true,
	"/disconnect": true,
	"/health":     true,
}

// ConnectionMiddleware opens the IronBlobsSeal cookie and makes the connection and the
// browsing session id available to handlers. Pages redirect to /connect when the cookie
// is missing or unreadable, API calls get a 401.
func ConnectionMiddleware(connService *services.ConnectionService, sessionTTL time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if publicPaths[path] {
				return next(c)
			}

			cookie, err := c.Cookie(utils.CookieName)
			if err != nil {
				return notConnected(c)
			}

			conn, err := connService.Open(cookie.Value)
			if err != nil {
				// Invalid cookie - Clear it to prevent loop
				cookie.Value = ""
				cookie.Path = "/"
				cookie.MaxAge = -1
				c.SetCookie(cookie)
				return notConnected(c)
			}
			c.Set(utils.ContextKeyConnection, conn)
			c.Set(utils.ContextKeySession, sessionID(c, sessionTTL))

			return next(c)
		}
	}
}

// sessionID returns the browsing session from its cookie, issuing a new one when absent
func sessionID(c echo.Context, ttl time.Duration) string {
	if cookie, err := c.Cookie(utils.SessionCookieName); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	id := services.NewSessionID()
	c.SetCookie(&http.Cookie{
		Name:     utils.SessionCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   isSecureRequest(c),
	})
	return id
}

func notConnected(c echo.Context) error {
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not connected")
	}
	return c.Redirect(http.StatusSeeOther, "/connect")
}
