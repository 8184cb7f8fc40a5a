package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rxportal/portal/internal/config"
	"github.com/rxportal/portal/internal/domain/admin"
	"github.com/rxportal/portal/internal/domain/auth"
	"github.com/rxportal/portal/internal/domain/dashboard"
	"github.com/rxportal/portal/internal/platform/backend"
	"github.com/rxportal/portal/internal/platform/middleware"
	"github.com/rxportal/portal/internal/platform/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-server",
		Short: "Prescription portal server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the portal server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the registered routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e, _, err := buildServer(cfg, zerolog.Nop())
			if err != nil {
				return err
			}
			for _, r := range e.Routes() {
				fmt.Printf("%-7s %s\n", r.Method, r.Path)
			}
			return nil
		},
	}
}

func runServer() error {
	// Config first; the logger format depends on the resolved environment.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg.IsDev(), os.Stdout)

	e, client, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	logger.Info().
		Str("port", cfg.Port).
		Str("backend", client.APIURL("")).
		Str("env", cfg.Env).
		Msg("starting portal server")

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		return err
	}
	return nil
}

// newLogger writes human-readable console lines in development and JSON
// everywhere else.
func newLogger(dev bool, out io.Writer) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

func buildServer(cfg *config.Config, logger zerolog.Logger) (*echo.Echo, *backend.Client, error) {
	client := backend.New(cfg.APIBaseURL, cfg.UploadBaseURL)
	sessions := session.NewStore(cfg.SessionSecret)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// Health check
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// The sign-in page is where unauthenticated navigations land.
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/login")
	})
	e.RouteNotFound("/*", func(c echo.Context) error {
		if strings.Contains(c.Request().Header.Get("Accept"), "text/html") {
			return c.Redirect(http.StatusFound, "/login")
		}
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})

	// Auth routes are public.
	authHandler := auth.NewHandler(auth.NewService(client, sessions))
	authHandler.RegisterRoutes(e)

	gate := session.Middleware(sessions)

	// Patient dashboard
	dashHandler := dashboard.NewHandler(client)
	dashGroup := e.Group("/dashboard", gate)
	dashHandler.RegisterRoutes(dashGroup)

	// Moderation dashboard
	adminHandler := admin.NewHandler(client)
	adminGroup := e.Group("/admin", gate)
	adminHandler.RegisterRoutes(adminGroup)

	// Logout must also discard the per-session controller state.
	sessions.OnDestroy(dashHandler.DropSession)
	sessions.OnDestroy(adminHandler.DropSession)

	// Uploaded prescription files are proxied from the backend so the browser
	// never needs direct access to it.
	e.GET("/uploads/:filename", proxyUpload(client), gate)

	return e, client, nil
}

// proxyUpload streams a stored prescription file from the backend.
func proxyUpload(client *backend.Client) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp, err := client.FetchUpload(c.Request().Context(), c.Param("filename"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "upload fetch failed")
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return echo.NewHTTPError(resp.StatusCode, "upload not available")
		}
		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = echo.MIMEOctetStream
		}
		return c.Stream(http.StatusOK, contentType, resp.Body)
	}
}
