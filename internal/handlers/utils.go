package handlers

import (
	"net/http"
	"time"

	"github.com/damacus/iron-blobs/internal/services"
	"github.com/damacus/iron-blobs/internal/utils"
	"github.com/labstack/echo/v4"
)

// GetConnection retrieves the opened connection from the context
func GetConnection(c echo.Context) (*services.Connection, error) {
	val := c.Get(utils.ContextKeyConnection)
	if val == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not connected")
	}
	conn, ok := val.(*services.Connection)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Not connected")
	}
	return conn, nil
}

// GetConnectionOrRedirect retrieves the connection or redirects to the connect form
func GetConnectionOrRedirect(c echo.Context) (*services.Connection, error) {
	conn, err := GetConnection(c)
	if err != nil {
		return nil, c.Redirect(http.StatusSeeOther, "/connect")
	}
	return conn, nil
}

// GetSessionID returns the browsing session id placed in the context by the middleware
func GetSessionID(c echo.Context) (string, error) {
	id, ok := c.Get(utils.ContextKeySession).(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "No browsing session")
	}
	return id, nil
}

// HTMXRedirect sets the HX-Redirect header and returns a 200 OK response.
// This is used for HTMX requests that should trigger a client-side redirect.
func HTMXRedirect(c echo.Context, url string) error {
	c.Response().Header().Set("HX-Redirect", url)
	return c.NoContent(http.StatusOK)
}

// SetCookie writes an HttpOnly, same-site cookie. A zero ttl clears it.
func SetCookie(c echo.Context, name, value string, ttl time.Duration) {
	cookie := new(http.Cookie)
	cookie.Name = name
	cookie.Value = value
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	} else {
		cookie.Value = ""
		cookie.Expires = time.Now().Add(-1 * time.Hour)
		cookie.MaxAge = -1
	}
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.SameSite = http.SameSiteStrictMode
	cookie.Secure = RequestIsSecure(c)
	c.SetCookie(cookie)
}

// RequestIsSecure reports whether the request arrived over TLS, directly or via a proxy
func RequestIsSecure(c echo.Context) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}

	return req.Header.Get("X-Forwarded-Proto") == "https"
}
