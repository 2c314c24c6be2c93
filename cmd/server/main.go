package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damacus/iron-blobs/internal/config"
	"github.com/damacus/iron-blobs/internal/handlers"
	"github.com/damacus/iron-blobs/internal/logging"
	customMiddleware "github.com/damacus/iron-blobs/internal/middleware"
	"github.com/damacus/iron-blobs/internal/renderer"
	"github.com/damacus/iron-blobs/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// connectionCookieTTL is how long a sealed connection stays valid in the browser
const connectionCookieTTL = 24 * time.Hour

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "iron-blobs",
	Short: "Browse Azure Blob Storage containers page by page",
	Long: `Iron Blobs serves a web viewer for Azure Blob Storage containers and
S3-compatible buckets. Listings are fetched one page at a time, sorted in
the browser session, and navigated with continuation markers.

Configuration is read from defaults, an optional YAML file (--config) and
IRONBLOBS_* environment variables, e.g. IRONBLOBS_SERVER_ADDR=:9090.`,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.Flags().String("log-level", "", "log level: debug, info, warn, error (overrides logging.level)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig binds the command's flags over the file and environment settings
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	if err := v.BindPFlag("server.addr", cmd.Flags().Lookup("addr")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("logging.level", cmd.Flags().Lookup("log-level")); err != nil {
		return nil, err
	}
	return config.Load(v, cfgFile)
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Encoding)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Session.Key == "" {
		logger.Warn("session.key not set, using an ephemeral key: connections will not survive a restart")
	}
	connService, err := services.NewConnectionService(cfg.Session.Key)
	if err != nil {
		return err
	}
	factory := &services.RealListerFactory{
		RateLimit: cfg.Listing.RateLimit,
		Burst:     cfg.Listing.Burst,
		Logger:    logger,
	}

	e := newServer(cfg, logger, factory, connService)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
		errCh <- e.Start(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(cfg *config.Config, logger *zap.Logger, factory services.ListerFactory, connService *services.ConnectionService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Services
	store := services.NewSessionStore(factory, cfg.Session.TTL, logger)
	connectHandler := handlers.NewConnectHandler(connService, factory, store, connectionCookieTTL, logger)
	browseHandler := handlers.NewBrowseHandler(store, handlers.BrowseOptions{
		DefaultPageSize: cfg.Listing.DefaultPageSize,
		MaxPageSize:     cfg.Listing.MaxPageSize,
		Timeout:         cfg.Listing.Timeout,
	}, logger)

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("Request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(customMiddleware.SecurityHeaders())
	e.Use(customMiddleware.CSRF())
	// Applied globally - it skips public routes internally
	e.Use(customMiddleware.ConnectionMiddleware(connService, connectionCookieTTL))

	// Template Renderer
	e.Renderer = renderer.New()

	// Public Routes
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
	e.GET("/connect", connectHandler.ConnectPage)
	e.POST("/connect", connectHandler.Connect)
	e.GET("/disconnect", connectHandler.Disconnect)

	// Connected Routes
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/browse")
	})
	e.GET("/browse", browseHandler.Browse)
	e.GET("/api/entries", browseHandler.Entries)

	return e
}
