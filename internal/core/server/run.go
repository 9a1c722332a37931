package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runnable is a server with a blocking Start and a context-bounded Shutdown.
type Runnable interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Run starts every server and blocks until ctx is cancelled or one of them
// fails, then shuts all of them down within shutdownTimeout.
func Run(ctx context.Context, log *zap.Logger, shutdownTimeout time.Duration, servers ...Runnable) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, s := range servers {
		g.Go(s.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var first error
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				log.Warn("shutdown error", zap.Error(err))
				if first == nil {
					first = err
				}
			}
		}
		return first
	})

	return g.Wait()
}
