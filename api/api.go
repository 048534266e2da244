package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jnfrati/fila/internal/logger"
	"github.com/jnfrati/fila/internal/server"
	"github.com/jnfrati/fila/internal/session"
)

type ListSessionsResponse struct {
	Sessions []session.Session `json:"sessions"`
}

// Start serves the observability endpoints over HTTP until ctx is cancelled.
// This is a read-only side channel: queue traffic stays on the wire protocol.
func Start(ctx context.Context, addr string, qs *server.Server) error {

	r := gin.Default()

	r.GET("/v0/stats", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, qs.Stats())
	})

	r.GET("/v0/sessions", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, ListSessionsResponse{
			Sessions: qs.Sessions(),
		})
	})

	srv := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Start server in a goroutine; a listen failure must reach the caller,
	// not just the log.
	errCh := make(chan error, 1)
	go func() {
		logger.Global.Info().Str("addr", addr).Msg("Starting stats API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for context cancellation or a server failure
	select {
	case err := <-errCh:
		logger.Global.Error().Err(err).Msg("Stats API server failed")
		return err
	case <-ctx.Done():
	}

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Global.Info().Msg("Shutting down stats API server...")

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Global.Error().Err(err).Msg("Stats API server forced to shutdown")
		return err
	}

	logger.Global.Info().Msg("Stats API server gracefully stopped")
	return nil
}
