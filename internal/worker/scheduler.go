package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"gmlparser/internal/config"
)

// Flusher persists pending changes.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// StartAllWorkers starts the background workers of the API server. They stop
// when ctx is canceled; the returned WaitGroup completes after their final run.
func StartAllWorkers(ctx context.Context, tiles Flusher) *sync.WaitGroup {
	log.Println("Starting all workers...")

	var wg sync.WaitGroup
	StartFlushWorker(ctx, &wg, tiles, config.FlushInterval)

	log.Println("All workers started")
	return &wg
}

// StartFlushWorker calls f.Flush every interval, and once more after ctx is
// canceled so pending changes are not lost on shutdown.
func StartFlushWorker(ctx context.Context, wg *sync.WaitGroup, f Flusher, interval time.Duration) {
	ticker := time.NewTicker(interval)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				flush(ctx, f)
			case <-ctx.Done():
				// ctx is already canceled; the final flush gets a fresh one.
				final, cancel := context.WithTimeout(context.Background(), interval)
				flush(final, f)
				cancel()
				return
			}
		}
	}()

	log.Println("Flush worker started with interval:", interval)
}

func flush(ctx context.Context, f Flusher) {
	n, err := f.Flush(ctx)
	if err != nil {
		log.Printf("Error saving tiles: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Saved %d tiles", n)
	}
}
