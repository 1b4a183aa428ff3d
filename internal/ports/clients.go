package ports

import (
	"context"
	"time"
)

// MessageGenerator is the optional text-generation collaborator used to
// personalize the weekly next_message. Callers must treat any error as
// "use the deterministic fallback".
type MessageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DeliveryDedup is a best-effort fast path for redelivered webhooks. It may
// lose state at any time; correctness rests on the store's uniqueness
// constraint.
type DeliveryDedup interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) error
}
