// Package llm holds the inference gateway: the narrow interface the turn
// processor uses to get a reply for a conversation, and its adapters.
package llm

import (
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/types"
	"context"
	"errors"
)

// ErrNoReply is returned when the provider answered without a usable message.
var ErrNoReply = errors.New("no reply produced")

type Message struct {
	Role    types.Role    `json:"role"`
	Content types.Content `json:"content"`
}

// Conversation is the request-scoped input to a model: optional system prompts
// followed by the transcript in chronological order.
type Conversation struct {
	System   []string  `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

type Usage struct {
	InputTokens  int32 `json:"inputTokens"`
	OutputTokens int32 `json:"outputTokens"`
}

type Reply struct {
	Role       types.Role    `json:"role"`
	Content    types.Content `json:"content"`
	StopReason string        `json:"stopReason,omitempty"`
	Usage      *Usage        `json:"usage,omitempty"`
}

// Gateway turns a conversation into exactly one reply message.
type Gateway interface {
	Converse(ctx context.Context, model catalog.ModelDescriptor, conv Conversation) (Reply, error)

	// ConverseStream is Converse with text deltas forwarded to onDelta as they
	// arrive. The returned Reply holds the full text.
	ConverseStream(ctx context.Context, model catalog.ModelDescriptor, conv Conversation, onDelta func(string)) (Reply, error)
}
