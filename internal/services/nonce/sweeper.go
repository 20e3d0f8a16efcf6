package nonce

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper периодически удаляет истёкшие nonce до отмены контекста.
func RunSweeper(ctx context.Context, store Store, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("starting nonce sweeper", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			log.Info("nonce sweeper stopped")
			return
		case <-ticker.C:
			store.Sweep(ctx)
		}
	}
}
