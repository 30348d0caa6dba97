// Package memory is an in-process transcript store for development and tests.
package memory

import (
	"chatrock/chatrock/sources/transcript"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.RWMutex
	chats    map[uuid.UUID]transcript.Chat
	messages map[uuid.UUID][]transcript.Message
	ids      map[uuid.UUID]struct{}
}

func NewStore() *Store {
	return &Store{
		chats:    make(map[uuid.UUID]transcript.Chat),
		messages: make(map[uuid.UUID][]transcript.Message),
		ids:      make(map[uuid.UUID]struct{}),
	}
}

func (s *Store) GetChat(ctx context.Context, id uuid.UUID) (*transcript.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) CreateChat(ctx context.Context, chat transcript.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.chats[chat.ID]; exists {
		return fmt.Errorf("chat %s already exists", chat.ID)
	}
	s.chats[chat.ID] = chat
	return nil
}

// AppendMessages validates the whole batch before storing any of it.
func (s *Store) AppendMessages(ctx context.Context, msgs []transcript.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[uuid.UUID]int64)
	seen := make(map[uuid.UUID]struct{}, len(msgs))
	for _, m := range msgs {
		if _, ok := s.chats[m.ChatID]; !ok {
			return fmt.Errorf("append to chat %s: %w", m.ChatID, transcript.ErrChatNotFound)
		}
		if _, dup := s.ids[m.ID]; dup {
			return fmt.Errorf("message %s already exists", m.ID)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("message %s repeated in batch", m.ID)
		}
		seen[m.ID] = struct{}{}
		if _, ok := next[m.ChatID]; !ok {
			next[m.ChatID] = int64(len(s.messages[m.ChatID]))
		}
	}
	for _, m := range msgs {
		m.Position = next[m.ChatID]
		next[m.ChatID]++
		s.messages[m.ChatID] = append(s.messages[m.ChatID], m)
		s.ids[m.ID] = struct{}{}
	}
	return nil
}

func (s *Store) ListMessagesByChat(ctx context.Context, chatID uuid.UUID) ([]transcript.Message, error) {
	s.mu.RLock()
	out := append([]transcript.Message(nil), s.messages[chatID]...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *Store) ListChatsByUser(ctx context.Context, userID uuid.UUID) ([]transcript.Chat, error) {
	s.mu.RLock()
	var out []transcript.Chat
	for _, c := range s.chats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteChat(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return transcript.ErrChatNotFound
	}
	for _, m := range s.messages[id] {
		delete(s.ids, m.ID)
	}
	delete(s.messages, id)
	delete(s.chats, id)
	return nil
}
