// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"chickiegpt/internal/domain"
)

// MessageQuery controls pagination for ListMessages.
type MessageQuery struct {
	// Limit caps the number of rows returned; defaults to 500 when <= 0.
	Limit int
	// BeforeID, when > 0, restricts results to messages with id < BeforeID.
	BeforeID int64
	// Ascending returns the BeforeID page oldest-first. Without BeforeID the
	// result is always ascending (a page from the start of history).
	Ascending bool
}

// Repository defines the interface for persisting conversations, messages,
// and user facts.
type Repository interface {
	// CreateConversation inserts a conversation, optionally titled, and
	// returns its id. An empty title is stored as NULL.
	CreateConversation(ctx context.Context, title string) (int64, error)

	// GetConversation returns the conversation or nil when it does not exist.
	GetConversation(ctx context.Context, id int64) (*domain.Conversation, error)

	// SetTitleIfEmpty fills the title only when it is still NULL or empty.
	// First-writer-wins; later calls are no-ops.
	SetTitleIfEmpty(ctx context.Context, id int64, title string) error

	// ListConversations returns conversations newest-id-first, capped at
	// limit (100 when <= 0).
	ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error)

	// InsertMessage appends a message. The role must be one of the domain
	// role constants; anything else fails with a constraint violation.
	InsertMessage(ctx context.Context, conversationID int64, role, content string) error

	// ListMessages returns messages for a conversation per MessageQuery.
	ListMessages(ctx context.Context, conversationID int64, q MessageQuery) ([]domain.Message, error)

	// UpsertFact stores a fact with last-writer-wins semantics for the key,
	// refreshing its updated timestamp.
	UpsertFact(ctx context.Context, key, value string) error

	// DeleteFact removes a fact by key; no-op when absent.
	DeleteFact(ctx context.Context, key string) error

	// ListFacts returns all facts ordered by key ascending.
	ListFacts(ctx context.Context) ([]domain.Fact, error)

	// AllFacts projects ListFacts into a key to value mapping.
	AllFacts(ctx context.Context) (map[string]string, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
