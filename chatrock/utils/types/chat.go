package types

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a message as exchanged with the browser.
type ChatMessage struct {
	ID        string     `json:"id,omitempty"`
	ChatID    string     `json:"chatId,omitempty"`
	Role      Role       `json:"role"`
	Content   Content    `json:"content"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// ChatRequest is the body of POST /api/chat and the first websocket frame.
type ChatRequest struct {
	ID       string        `json:"id"`
	Messages []ChatMessage `json:"messages"`
	ModelID  string        `json:"modelId"`
}

type ReplyMessage struct {
	Role    Role    `json:"role"`
	Content Content `json:"content"`
}

type ChatResponse struct {
	Message ReplyMessage `json:"message"`
}

// StreamFrame is one server-to-client websocket frame.
type StreamFrame struct {
	Type    string        `json:"type"` // "delta" | "done" | "error"
	Text    string        `json:"text,omitempty"`
	Message *ReplyMessage `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// ChatSummary is one entry in GET /api/history.
type ChatSummary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

type ModelInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type ModelListResponse struct {
	Default string      `json:"default"`
	Models  []ModelInfo `json:"models"`
}
