// Package transcript defines chat and message records and the store contract
// the turn processor persists through. Adapters live in sources/psql/dao and
// sources/memory.
package transcript

import (
	"chatrock/chatrock/utils/types"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrChatNotFound = errors.New("chat not found")

type Chat struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	CreatedAt time.Time
}

// Message is append-only. Position is assigned by the store on append and
// breaks ties between equal CreatedAt values.
type Message struct {
	ID        uuid.UUID
	ChatID    uuid.UUID
	Role      types.Role
	Content   types.Content
	CreatedAt time.Time
	Position  int64
}

// Store is plain CRUD. AppendMessages is atomic per call; separate calls are
// never wrapped in one transaction.
type Store interface {
	// GetChat returns nil, nil when no chat has that id.
	GetChat(ctx context.Context, id uuid.UUID) (*Chat, error)
	CreateChat(ctx context.Context, chat Chat) error
	AppendMessages(ctx context.Context, msgs []Message) error
	// ListMessagesByChat returns the transcript ordered by CreatedAt, then Position.
	ListMessagesByChat(ctx context.Context, chatID uuid.UUID) ([]Message, error)
	// ListChatsByUser returns the user's chats, newest first.
	ListChatsByUser(ctx context.Context, userID uuid.UUID) ([]Chat, error)
	// DeleteChat removes the chat and its messages. ErrChatNotFound if absent.
	DeleteChat(ctx context.Context, id uuid.UUID) error
}

// ToWire converts stored messages into the browser-facing shape.
func ToWire(msgs []Message) []types.ChatMessage {
	out := make([]types.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		createdAt := m.CreatedAt
		out = append(out, types.ChatMessage{
			ID:        m.ID.String(),
			ChatID:    m.ChatID.String(),
			Role:      m.Role,
			Content:   m.Content,
			CreatedAt: &createdAt,
		})
	}
	return out
}
