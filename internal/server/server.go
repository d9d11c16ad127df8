// Package server exposes the submission endpoint, the event tail, and
// operational surfaces over HTTP. Team identity arrives pre-validated as an
// opaque team id; issuing it belongs to an external layer.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/dotgrid/internal/coordinator"
	"github.com/louisbranch/dotgrid/internal/storage"
	"github.com/louisbranch/dotgrid/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

// Server wires the coordinator and the record log into an HTTP API.
type Server struct {
	coord    *coordinator.Coordinator
	eventLog storage.EventLog
	limiter  RateLimiter
	metrics  *telemetry.Metrics
	upgrader websocket.Upgrader
}

// New creates a server. A nil limiter admits every request.
func New(coord *coordinator.Coordinator, eventLog storage.EventLog, limiter RateLimiter, metrics *telemetry.Metrics) *Server {
	if limiter == nil {
		limiter = unlimited{}
	}
	return &Server{
		coord:    coord,
		eventLog: eventLog,
		limiter:  limiter,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			// The stream is public, append-only game state; any origin may
			// tail it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/v1/edges", s.submitEdge)
	router.GET("/v1/edges/:id", s.getEdge)
	router.GET("/v1/state", s.getState)
	router.GET("/v1/snapshot", s.getSnapshot)
	router.GET("/v1/events", s.streamEvents)
	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return router
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: s.Router()}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening addr=%s", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
