package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

const (
	defaultPollInterval = time.Second
	defaultBatchSize    = 100
)

// Worker drains the outbox into the broker. Publish failures are logged and
// left pending for the next round; the committed action is never affected.
type Worker struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(store Store, publisher Publisher, logger *slog.Logger) *Worker {
	return &Worker{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
	}
}

// Run polls until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	tracer := otel.Tracer("civreg/outbox")
	ctx, span := tracer.Start(ctx, "outbox.drain")
	defer span.End()

	entries, err := w.store.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		w.logger.ErrorContext(ctx, "outbox fetch failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	published := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		if err := w.publisher.Publish(ctx, entry); err != nil {
			w.logger.ErrorContext(ctx, "outbox publish failed",
				"entry_id", entry.ID,
				"event_type", entry.EventType,
				"error", err,
			)
			// Stop the batch to preserve per-aggregate ordering.
			break
		}
		published = append(published, entry.ID)
	}

	if len(published) == 0 {
		return
	}
	if err := w.store.MarkPublished(ctx, published); err != nil {
		w.logger.ErrorContext(ctx, "outbox mark published failed", "error", err)
	}
}
