package audit

import "context"

// Sink persists audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(ctx context.Context, event Event) error
	Close() error
}
