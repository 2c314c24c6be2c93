package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damacus/iron-blobs/internal/services"
	"github.com/damacus/iron-blobs/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnService(t *testing.T) *services.ConnectionService {
	t.Helper()
	s, err := services.NewConnectionService("")
	require.NoError(t, err)
	return s
}

var testConnection = services.Connection{
	Provider:  services.ProviderAzure,
	Account:   "acct",
	Container: "datasets",
	AuthMode:  services.AuthSAS,
	SASToken:  "sig=abc",
}

func runMiddleware(t *testing.T, connService *services.ConnectionService, req *http.Request) (*httptest.ResponseRecorder, echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "OK")
	}

	err := ConnectionMiddleware(connService, 0)(handler)(c)
	return rec, c, handlerCalled, err
}

func TestConnectionMiddleware_SkipsPublicRoutes(t *testing.T) {
	connService := newConnService(t)

	for _, path := range []string{"/connect", "/health", "/disconnect"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)

			_, _, called, err := runMiddleware(t, connService, req)

			assert.NoError(t, err)
			assert.True(t, called, "handler should be called for public path %s", path)
		})
	}
}

func TestConnectionMiddleware_RedirectsWithoutCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/browse", nil)

	rec, _, called, err := runMiddleware(t, newConnService(t), req)

	assert.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/connect", rec.Header().Get("Location"))
}

func TestConnectionMiddleware_APIReturnsUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)

	_, _, called, err := runMiddleware(t, newConnService(t), req)

	assert.False(t, called)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestConnectionMiddleware_ClearsInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/browse", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: "invalid-sealed-value"})

	rec, _, called, err := runMiddleware(t, newConnService(t), req)

	assert.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "/connect", rec.Header().Get("Location"))

	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.CookieName && cookie.MaxAge == -1 {
			cleared = true
		}
	}
	assert.True(t, cleared, "should set cookie with MaxAge=-1 to clear it")
}

func TestConnectionMiddleware_SetsConnectionAndSession(t *testing.T) {
	connService := newConnService(t)
	sealed, err := connService.Seal(testConnection)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/browse", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: sealed})

	rec, c, called, err := runMiddleware(t, connService, req)

	require.NoError(t, err)
	assert.True(t, called)
	conn, ok := c.Get(utils.ContextKeyConnection).(*services.Connection)
	require.True(t, ok)
	assert.Equal(t, testConnection, *conn)

	id, _ := c.Get(utils.ContextKeySession).(string)
	assert.NotEmpty(t, id)

	var issued *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.SessionCookieName {
			issued = cookie
		}
	}
	require.NotNil(t, issued, "a new session cookie should be issued")
	assert.Equal(t, id, issued.Value)
	assert.True(t, issued.HttpOnly)
}

func TestConnectionMiddleware_KeepsExistingSession(t *testing.T) {
	connService := newConnService(t)
	sealed, err := connService.Seal(testConnection)
	require.NoError(t, err)
	existing := services.NewSessionID()

	req := httptest.NewRequest(http.MethodGet, "/browse", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: sealed})
	req.AddCookie(&http.Cookie{Name: utils.SessionCookieName, Value: existing})

	rec, c, _, err := runMiddleware(t, connService, req)

	require.NoError(t, err)
	assert.Equal(t, existing, c.Get(utils.ContextKeySession))
	for _, cookie := range rec.Result().Cookies() {
		assert.NotEqual(t, utils.SessionCookieName, cookie.Name)
	}
}
