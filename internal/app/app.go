// Package app wires configuration, storage, services, and HTTP routes into
// a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/studyhubapp/studyhub/internal/chat"
	"github.com/studyhubapp/studyhub/internal/config"
	"github.com/studyhubapp/studyhub/internal/db"
	"github.com/studyhubapp/studyhub/internal/groups"
	"github.com/studyhubapp/studyhub/internal/http/api"
	"github.com/studyhubapp/studyhub/internal/ratelimit"
	"github.com/studyhubapp/studyhub/internal/records"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterPrunePeriod = time.Minute
)

// RunServer boots the API server and blocks until the context is cancelled
// or the listener fails.
func RunServer(ctx context.Context, cfg config.Config) error {
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	groupService := groups.NewService(conn)
	recordService := records.NewService(conn, groupService, cfg.ChatHistoryLimit)
	hubs := chat.NewRegistry()
	defer hubs.Close()
	limiter := ratelimit.NewMemoryLimiter()

	go pruneLimiter(ctx, limiter)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	api.RegisterRoutes(engine, api.Deps{
		DB:      conn,
		JWT:     cfg.JWT,
		Groups:  groupService,
		Records: recordService,
		Hubs:    hubs,
		Limiter: limiter,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errors.Is(errServe, http.ErrServerClosed) {
			return nil
		}
		return errServe
	}
}

// pruneLimiter periodically drops stale rate-limit counters.
func pruneLimiter(ctx context.Context, limiter *ratelimit.MemoryLimiter) {
	ticker := time.NewTicker(limiterPrunePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			limiter.Prune(now.Add(-limiterPrunePeriod))
		}
	}
}

// requestLogger logs one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}
