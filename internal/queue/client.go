package queue

import "context"

// Client enqueues diagnostic jobs for a worker. Implementations must be
// safe for concurrent use by request handlers.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
