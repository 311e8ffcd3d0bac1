package seencache

import "context"

// Store is the durable cache of seen-receipt state, keyed by conversation.
// Clients hydrate their seen indicators from it on reload, before the first
// full sync completes. Implementations must be concurrency-safe, and Add must
// be idempotent: recording the same message twice is a no-op.
type Store interface {
	Add(ctx context.Context, conversationID string, messageIDs ...string) error
	Members(ctx context.Context, conversationID string) ([]string, error)
	Drop(ctx context.Context, conversationID string) error
	Close() error
}
