package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/seqwire/internal/observability"
	"github.com/danmuck/seqwire/internal/protocol"
	"github.com/danmuck/seqwire/internal/protocol/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// serveAdmin runs the admin HTTP plane until ctx is cancelled.
func (s *Service) serveAdmin(ctx context.Context, addr string) error {
	if !s.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: s.adminRouter(),
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Info().Str("addr", addr).Msg("admin plane listening")
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-errc
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// adminRouter builds the gin chain for the admin plane.
func (s *Service) adminRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware("gateway"))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(s.cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.registerAdminRoutes(r)
	return r
}

func (s *Service) registerAdminRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"gateway_id": s.id,
			"uptime":     time.Since(s.startedAt).String(),
			"sessions":   s.sessions.Len(),
			"version":    "0.0.1",
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.presence.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		if err := s.bus.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"uptime": time.Since(s.startedAt).String(),
		})
	})

	v1 := r.Group("/v1")

	v1.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": s.sessions.Snapshots()})
	})

	v1.GET("/sessions/:id", func(c *gin.Context) {
		sess, ok := s.sessions.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	v1.POST("/sessions/:id/send", func(c *gin.Context) {
		sess, ok := s.sessions.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		var cmd protocol.Command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a command object"})
			return
		}
		if strings.TrimSpace(cmd.Name()) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing command"})
			return
		}
		if err := sess.SendCommand(cmd); err != nil {
			c.JSON(sessionErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "queued": sess.TickMode()})
	})

	v1.POST("/sessions/:id/tick-mode", func(c *gin.Context) {
		sess, ok := s.sessions.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "body must set enabled"})
			return
		}
		sess.SetTickMode(*req.Enabled)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "tick_mode": *req.Enabled})
	})

	v1.POST("/sessions/:id/tick", func(c *gin.Context) {
		sess, ok := s.sessions.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		queued := sess.QueueLen()
		if err := sess.Tick(); err != nil {
			c.JSON(sessionErrStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "flushed": queued})
	})

	v1.DELETE("/sessions/:id", func(c *gin.Context) {
		sess, ok := s.sessions.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		sess.Destroy()
		c.JSON(http.StatusOK, gin.H{"status": "destroyed", "session_id": sess.ID()})
	})

	v1.GET("/feed", s.feed.HandleFeed)
}

// sessionErrStatus maps session errors onto admin response codes.
func sessionErrStatus(err error) int {
	if errors.Is(err, session.ErrDestroyed) || errors.Is(err, session.ErrNotTickMode) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
