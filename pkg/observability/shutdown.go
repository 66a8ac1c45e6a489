package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc is called during graceful shutdown. The context carries the
// shutdown deadline.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and runs registered shutdown
// functions concurrently when SIGINT or SIGTERM arrives.
type ShutdownManager struct {
	logger          *Logger
	server          *http.Server
	shutdownTimeout time.Duration

	mu            sync.Mutex
	shutdownFuncs []ShutdownFunc
}

// NewShutdownManager creates a shutdown manager. A zero timeout defaults
// to 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		logger:          logger,
		server:          server,
		shutdownTimeout: timeout,
	}
}

// RegisterShutdownFunc adds a function to run at shutdown. Functions run
// concurrently with each other, after the HTTP server has drained.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.shutdownFuncs = append(sm.shutdownFuncs, fn)
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then performs the shutdown
// sequence within the configured timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	sm.logger.WithField("signal", sig.String()).Info("starting graceful shutdown")

	ctx, cancel := context.WithTimeout(context.Background(), sm.shutdownTimeout)
	defer cancel()

	return sm.shutdown(ctx)
}

// shutdown drains the server and runs the registered functions. Split from
// WaitForShutdown so tests can drive it without delivering signals.
func (sm *ShutdownManager) shutdown(ctx context.Context) error {
	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server shutdown failed")
			return fmt.Errorf("HTTP server shutdown failed: %w", err)
		}
		sm.logger.Info("HTTP server drained")
	}

	sm.mu.Lock()
	funcs := sm.shutdownFuncs
	sm.mu.Unlock()

	errChan := make(chan error, len(funcs))
	var wg sync.WaitGroup
	for i, fn := range funcs {
		wg.Add(1)
		go func(index int, shutdownFn ShutdownFunc) {
			defer wg.Done()
			if err := shutdownFn(ctx); err != nil {
				sm.logger.WithError(err).WithField("index", index).Error("shutdown function failed")
				errChan <- err
			}
		}(i, fn)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		sm.logger.Warn("shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	close(errChan)
	failed := 0
	for range errChan {
		failed++
	}
	if failed > 0 {
		return fmt.Errorf("shutdown completed with %d errors", failed)
	}

	sm.logger.Info("graceful shutdown complete")
	return nil
}
