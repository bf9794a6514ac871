package events

import (
	"context"

	"enrollment/internal/enrollment/models"
	"enrollment/pkg/requestcontext"
)

// Publisher buffers decisions for the Worker. It implements the admission
// service's publisher port.
type Publisher struct {
	buffer *RingBuffer
}

// NewPublisher creates a publisher writing into buffer.
func NewPublisher(buffer *RingBuffer) *Publisher {
	return &Publisher{buffer: buffer}
}

// Publish enqueues the decision. It never blocks and never fails; overflow
// drops the oldest buffered event.
func (p *Publisher) Publish(ctx context.Context, decision *models.Decision) error {
	if decision == nil {
		return nil
	}
	p.buffer.Enqueue(FromDecision(decision, requestcontext.RequestID(ctx), requestcontext.Now(ctx)))
	return nil
}
