// Package api exposes the TrackFast HTTP/JSON interface: public tracking and
// support chat, the admin dashboard endpoints and admin management.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/dharsanguruparan/TrackFast/internal/service"
)

const shutdownTimeout = 5 * time.Second

// Services bundles the business services the handlers call.
type Services struct {
	Parcels *service.ParcelService
	Support *service.SupportService
	Auth    *service.AuthService
	Admins  *service.AdminService
}

// Server exposes HTTP endpoints for tracking and the admin dashboard.
type Server struct {
	addr    string
	origins []string
	svc     Services
	engine  *gin.Engine
	server  *http.Server
	once    sync.Once
}

// New constructs a Server listening on addr. origins lists the CORS origins;
// "*" or an empty list allows any origin.
func New(addr string, origins []string, svc Services) *Server {
	return &Server{addr: addr, origins: origins, svc: svc}
}

// Handler returns the routed gin engine.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() {
		s.engine = s.routes()
		s.server = &http.Server{
			Addr:              s.addr,
			Handler:           s.engine,
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	return s.engine
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. After ctx is cancelled it returns once
// in-flight requests have drained or the shutdown timeout expires.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.Handler()
	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		done <- s.server.Shutdown(shutdownCtx)
	}()
	log.Printf("api listening on %s", ln.Addr())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(s.corsConfig()))
	r.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Not found")
	})

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/admin/login", s.handleLogin)

	api.GET("/parcels/:id", s.handleTrackParcel)
	api.POST("/support/messages", s.handlePostMessage)
	api.GET("/support/messages/:parcelId", s.handleListMessages)

	authed := api.Group("")
	authed.Use(requireAuth(s.svc.Auth))
	{
		authed.GET("/parcels", s.handleListParcels)
		authed.POST("/parcels", s.handleCreateParcel)
		authed.PUT("/parcels/:id", s.handleEditParcel)
		authed.PUT("/parcels/:id/status", s.handleUpdateStatus)
		authed.PUT("/parcels/:id/state", s.handleSetState)
		authed.DELETE("/parcels/:id", s.handleDeleteParcel)
		authed.GET("/parcels/:id/archive", s.handleArchiveURL)

		authed.POST("/admins", s.handleCreateAdmin)
		authed.GET("/admins", s.handleListAdmins)
		authed.DELETE("/admins/:id", s.handleDeleteAdmin)
		authed.PUT("/admins/:id/password", s.handleResetPassword)
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.AllowOrigins = nil
	cfg.AllowAllOrigins = true
	for _, o := range s.origins {
		if o == "*" {
			return cfg
		}
	}
	if len(s.origins) > 0 {
		cfg.AllowAllOrigins = false
		cfg.AllowOrigins = s.origins
	}
	return cfg
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "TrackFast API running"})
}
