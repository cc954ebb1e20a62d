// Package store defines the session message store and its SQLite
// implementation.
package store

import (
	"context"

	"github.com/guardchat/orchestrator/domain"
)

// Store persists session messages.
type Store interface {
	// AppendMessage persists one message keyed by its session.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// History returns the session's messages ordered by timestamp ascending.
	// A session with no messages yields an empty slice.
	History(ctx context.Context, sessionID string) ([]domain.ChatMessage, error)

	// Lifecycle
	Close() error
}
