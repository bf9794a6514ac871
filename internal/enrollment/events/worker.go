package events

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

// Worker drains the buffer into a sink on a fixed interval. A failed batch is
// requeued and retried on the next tick.
type Worker struct {
	buffer    *RingBuffer
	sink      Sink
	logger    *slog.Logger
	batchSize int
	interval  time.Duration
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithFlushInterval sets how often the buffer is drained.
func WithFlushInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize caps the events written per sink call.
func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func NewWorker(buffer *RingBuffer, sink Sink, opts ...WorkerOption) *Worker {
	w := &Worker{
		buffer:    buffer,
		sink:      sink,
		logger:    slog.New(slog.DiscardHandler),
		batchSize: defaultBatchSize,
		interval:  defaultFlushInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run flushes until ctx is cancelled, then makes one last flush attempt.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.interval)
			w.Flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush writes everything currently buffered, batch by batch. It stops at the
// first sink error and leaves the rest for the next call.
func (w *Worker) Flush(ctx context.Context) {
	for {
		batch := w.buffer.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return
		}
		if err := w.sink.Write(ctx, batch); err != nil {
			w.buffer.Requeue(batch)
			w.logger.WarnContext(ctx, "admission event flush failed",
				"error", err,
				"batch", len(batch),
				"buffered", w.buffer.Len(),
				"dropped", w.buffer.Dropped(),
			)
			return
		}
	}
}
