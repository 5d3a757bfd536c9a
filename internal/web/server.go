package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hotstart/hotstart/internal/config"
	"github.com/hotstart/hotstart/internal/database"
	"github.com/hotstart/hotstart/internal/metrics"
	"github.com/hotstart/hotstart/internal/monitor"
)

type Server struct {
	handler *Handler
	server  *http.Server
	logger  *zap.Logger
}

// NewServer wires the API around a running monitor. repo and m may be nil
// when history or metrics are disabled. ctx bounds passes triggered through
// the API.
func NewServer(ctx context.Context, cfg *config.Config, mon *monitor.Service, repo *database.Repository, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := NewHandler(ctx, mon, repo, m, logger)
	router := gin.New()
	router.Use(gin.Recovery())
	if m != nil {
		router.Use(metrics.Middleware(m))
	}
	router.Use(localCORS())
	handler.SetupRoutes(router)

	addr := net.JoinHostPort(cfg.Web.Host, fmt.Sprint(cfg.Web.Port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		handler: handler,
		server:  httpServer,
		logger:  logger,
	}
}

// localCORS lets browser pages served from this machine call the API
func localCORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			switch u.Hostname() {
			case "localhost", "127.0.0.1", "::1":
				return true
			}
			return false
		},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Accept", "Origin"},
		MaxAge:       12 * time.Hour,
	})
}

// Start serves until Shutdown; http.ErrServerClosed is not reported
func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", "http://"+s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "web server failed")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

// Router exposes the gin engine for in-process requests
func (s *Server) Router() http.Handler {
	return s.server.Handler
}
