package queue

import "context"

// Job processes one message type pulled off the queue.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job consumes.
	Type() string

	// Handle processes a single payload.
	Handle(ctx context.Context, payload interface{}) error
}
