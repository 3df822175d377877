package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// serve runs httpServer on listener until ctx is cancelled and then drains in-flight
// requests for up to drainTimeout. The store is closed only once every handler has
// returned. When the drain deadline passes first, connections are force-closed and the
// store is left open for the handlers still running; the process exits with it open.
func serve(ctx context.Context, httpServer *http.Server, listener net.Listener, store io.Closer, drainTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		closeStore(store, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining requests", zap.Duration("timeout", drainTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("request drain did not finish, leaving store open",
			zap.Duration("timeout", drainTimeout),
			zap.Error(err))
		if closeErr := httpServer.Close(); closeErr != nil {
			logger.Warn("failed to force-close connections", zap.Error(closeErr))
		}
		return fmt.Errorf("drain requests: %w", err)
	}

	closeStore(store, logger)
	logger.Info("server stopped")
	return nil
}

func closeStore(store io.Closer, logger *zap.Logger) {
	if err := store.Close(); err != nil {
		logger.Error("failed to close store", zap.Error(err))
	}
}
