package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	// CSRFHeader carries the token on HTMX requests
	CSRFHeader = "X-CSRF-Token"
	// CSRFFormField carries the token on plain form posts
	CSRFFormField = "_csrf"
	// CSRFContextKey is where templates find the token
	CSRFContextKey = "csrf"
)

// CSRF requires a token on every state-changing request. Tokens are issued on safe ones.
func CSRF() echo.MiddlewareFunc {
	return echoMiddleware.CSRFWithConfig(echoMiddleware.CSRFConfig{
		TokenLookup:    "header:" + CSRFHeader + ",form:" + CSRFFormField,
		ContextKey:     CSRFContextKey,
		CookieName:     "iron_blobs_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteStrictMode,
	})
}

// CSRFToken returns the token issued for this request, or ""
func CSRFToken(c echo.Context) string {
	token, _ := c.Get(CSRFContextKey).(string)
	return token
}
