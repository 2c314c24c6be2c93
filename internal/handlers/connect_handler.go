package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/damacus/iron-blobs/internal/listing"
	"github.com/damacus/iron-blobs/internal/services"
	"github.com/damacus/iron-blobs/internal/utils"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// probeTimeout bounds the listing call that verifies a new connection
const probeTimeout = 15 * time.Second

type ConnectHandler struct {
	connService *services.ConnectionService
	factory     services.ListerFactory
	store       *services.SessionStore
	cookieTTL   time.Duration
	logger      *zap.Logger
}

func NewConnectHandler(connService *services.ConnectionService, factory services.ListerFactory, store *services.SessionStore, cookieTTL time.Duration, logger *zap.Logger) *ConnectHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cookieTTL <= 0 {
		cookieTTL = 24 * time.Hour
	}
	return &ConnectHandler{
		connService: connService,
		factory:     factory,
		store:       store,
		cookieTTL:   cookieTTL,
		logger:      logger,
	}
}

// ConnectPage renders the connection form
func (h *ConnectHandler) ConnectPage(c echo.Context) error {
	// Already connected with a cookie we can still open
	cookie, err := c.Cookie(utils.CookieName)
	if err == nil {
		if _, err := h.connService.Open(cookie.Value); err == nil {
			return c.Redirect(http.StatusSeeOther, "/browse")
		}
	}
	return c.Render(http.StatusOK, "connect", nil)
}

// Connect verifies the submitted connection with a one-entry listing, then seals it into a cookie
func (h *ConnectHandler) Connect(c echo.Context) error {
	conn := connectionFromForm(c)
	if err := conn.Validate(); err != nil {
		return renderConnectError(c, strings.TrimPrefix(err.Error(), services.ErrInvalidConnection.Error()+": "))
	}

	lister, err := h.factory.NewLister(conn)
	if err != nil {
		h.logger.Warn("Failed to build lister", zap.String("connection", conn.Label()), zap.Error(err))
		return renderConnectError(c, "Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()
	_, err = lister.ListHierarchy(ctx, listing.ListRequest{Delimiter: listing.Delimiter, MaxResults: 1})
	if err != nil {
		h.logger.Info("Connection probe failed", zap.String("connection", conn.Label()), zap.Error(err))
		return renderConnectError(c, probeMessage(err))
	}

	sealed, err := h.connService.Seal(conn)
	if err != nil {
		return c.HTML(http.StatusInternalServerError, "Failed to create session")
	}

	if old, err := c.Cookie(utils.SessionCookieName); err == nil {
		h.store.Remove(old.Value)
	}
	SetCookie(c, utils.CookieName, sealed, h.cookieTTL)
	SetCookie(c, utils.SessionCookieName, services.NewSessionID(), h.cookieTTL)

	h.logger.Info("Connected", zap.String("connection", conn.Label()), zap.String("provider", string(conn.Provider)))
	return HTMXRedirect(c, "/browse")
}

// Disconnect clears the connection and drops the browsing session
func (h *ConnectHandler) Disconnect(c echo.Context) error {
	if cookie, err := c.Cookie(utils.SessionCookieName); err == nil {
		h.store.Remove(cookie.Value)
	}
	SetCookie(c, utils.CookieName, "", 0)
	SetCookie(c, utils.SessionCookieName, "", 0)
	return c.Redirect(http.StatusSeeOther, "/connect")
}

func connectionFromForm(c echo.Context) services.Connection {
	field := func(name string) string {
		return strings.TrimSpace(c.FormValue(name))
	}
	conn := services.Connection{
		Provider:   services.Provider(strings.ToLower(field("provider"))),
		Container:  field("container"),
		Account:    field("account"),
		AuthMode:   services.AuthMode(strings.ToLower(field("authMode"))),
		SASToken:   field("sasToken"),
		AccountKey: field("accountKey"),
		Endpoint:   field("endpoint"),
		AccessKey:  field("accessKey"),
		SecretKey:  c.FormValue("secretKey"),
	}
	if conn.Provider == "" {
		conn.Provider = services.ProviderAzure
	}
	if conn.Provider == services.ProviderAzure && conn.AuthMode == "" {
		// Private containers are read with a SAS token
		if field("containerType") == "private" {
			conn.AuthMode = services.AuthSAS
		} else {
			conn.AuthMode = services.AuthPublic
		}
	}
	return conn
}

// renderConnectError answers the HTMX form post with an error fragment
func renderConnectError(c echo.Context, message string) error {
	return c.Render(http.StatusOK, "connect_error", map[string]interface{}{"Message": message})
}

func probeMessage(err error) string {
	switch {
	case services.IsAccessDenied(err):
		return "Access denied: check the SAS token or keys"
	case services.IsContainerNotFound(err):
		return "Container not found"
	case services.IsThrottled(err):
		return "The storage service is busy, try again shortly"
	default:
		return "Could not list the container: storage account unreachable"
	}
}
