// Package server wires the HTTP server for the voice agent.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/alpacavoice/alpaca/internal/profile"
	apiv1 "github.com/alpacavoice/alpaca/server/router/api/v1"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

func NewServer(profile *profile.Profile) (*Server, error) {
	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true

	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.CORS())
	echoServer.Use(middleware.BodyLimit(fmt.Sprintf("%dM", profile.MaxUploadBytes>>20)))
	echoServer.Use(requestLogger())

	apiService := apiv1.NewAPIV1Service(profile)
	apiService.RegisterRoutes(echoServer)

	return &Server{
		Profile:    profile,
		echoServer: echoServer,
		apiService: apiService,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("server started", "address", address, "mode", s.Profile.Mode)

	<-ctx.Done()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	slog.Info("server shutdown")
}

// requestLogger emits one structured line per request.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Warn("request failed", attrs...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}
