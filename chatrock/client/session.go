// Package client is a Go client for the chat API. A Session holds one chat's
// transcript the way the browser does: optimistic user messages, a loading
// flag while a turn is in flight.
package client

import (
	httputils "chatrock/chatrock/utils/http"
	"chatrock/chatrock/utils/types"
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyMessage = errors.New("message is empty")

type Session struct {
	BaseURL string
	ChatID  uuid.UUID
	ModelID string

	mu       sync.Mutex
	messages []types.ChatMessage
	loading  bool
	http     *http.Client
}

// NewSession starts a fresh chat. The cookie jar keeps the session cookie set
// by Login or Register.
func NewSession(baseURL, modelID string) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		ChatID:  uuid.New(),
		ModelID: modelID,
		http:    &http.Client{Jar: jar, Timeout: 2 * time.Minute},
	}, nil
}

func (s *Session) Register(ctx context.Context, email, password string) (*types.SessionResponse, error) {
	var out types.SessionResponse
	err := httputils.PostJSON(ctx, s.http, s.BaseURL+"/api/auth/register", types.CredentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) Login(ctx context.Context, email, password string) (*types.SessionResponse, error) {
	var out types.SessionResponse
	err := httputils.PostJSON(ctx, s.http, s.BaseURL+"/api/auth/login", types.CredentialsRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Submit appends text as a user message before sending, then appends the
// reply. On failure the user message stays in the transcript.
func (s *Session) Submit(ctx context.Context, text string) (*types.ReplyMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	now := time.Now().UTC()
	s.mu.Lock()
	s.messages = append(s.messages, types.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    s.ChatID.String(),
		Role:      types.RoleUser,
		Content:   types.Text(text),
		CreatedAt: &now,
	})
	s.loading = true
	req := types.ChatRequest{ID: s.ChatID.String(), ModelID: s.ModelID, Messages: append([]types.ChatMessage(nil), s.messages...)}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	var resp types.ChatResponse
	if err := httputils.PostJSON(ctx, s.http, s.BaseURL+"/api/chat", req, &resp); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.messages = append(s.messages, types.ChatMessage{
		ChatID:  s.ChatID.String(),
		Role:    resp.Message.Role,
		Content: resp.Message.Content,
	})
	s.mu.Unlock()
	return &resp.Message, nil
}

// Load replaces the transcript with the server's copy.
func (s *Session) Load(ctx context.Context) error {
	var msgs []types.ChatMessage
	if err := httputils.GetJSON(ctx, s.http, s.BaseURL+"/api/messages/"+s.ChatID.String(), &msgs); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	return nil
}

// Open switches to an existing chat and loads its transcript.
func (s *Session) Open(ctx context.Context, chatID uuid.UUID) error {
	s.mu.Lock()
	prev := s.ChatID
	s.ChatID = chatID
	s.mu.Unlock()
	if err := s.Load(ctx); err != nil {
		s.mu.Lock()
		s.ChatID = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

// NewChat starts over with an empty transcript and a fresh chat id.
func (s *Session) NewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ChatID = uuid.New()
	s.messages = nil
}

func (s *Session) History(ctx context.Context) ([]types.ChatSummary, error) {
	var out []types.ChatSummary
	if err := httputils.GetJSON(ctx, s.http, s.BaseURL+"/api/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) Models(ctx context.Context) (*types.ModelListResponse, error) {
	var out types.ModelListResponse
	if err := httputils.GetJSON(ctx, s.http, s.BaseURL+"/api/models", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the current chat on the server and starts a new one.
func (s *Session) Delete(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.BaseURL+"/api/chat/"+s.ChatID.String(), nil)
	if err != nil {
		return err
	}
	if err := httputils.Do(s.http, req, nil); err != nil {
		return err
	}
	s.NewChat()
	return nil
}
