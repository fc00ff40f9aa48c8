// Package domain contains core domain types for the ChickieGPT application.
package domain

import (
	"fmt"
	"time"
)

// Message roles. The messages table enforces the same set with a CHECK
// constraint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a titled thread grouping an ordered sequence of messages.
// The title stays empty until the first user message fills it.
type Conversation struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// DisplayTitle returns the stored title, or a "Chat {id}" fallback for
// conversations that have not been titled yet.
func (c Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("Chat %d", c.ID)
}

// Message is a single turn in a conversation. Messages are immutable once
// stored; insertion id is the canonical chronological order.
type Message struct {
	ID             int64
	ConversationID int64
	Role           string
	Content        string
	CreatedAt      time.Time
}

// ChatTurn is the role/content pair sent to the completion service.
type ChatTurn struct {
	Role    string
	Content string
}
