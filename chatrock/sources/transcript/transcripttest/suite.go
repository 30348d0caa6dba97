// Package transcripttest holds behaviour checks shared by every transcript.Store adapter.
package transcripttest

import (
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/types"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// Factory returns a fresh store and a function that creates a user row the
// store's chats may reference.
type Factory func(t *testing.T) (transcript.Store, func(t *testing.T) uuid.UUID)

func Run(t *testing.T, factory Factory) {
	t.Run("GetChatMissing", func(t *testing.T) { testGetChatMissing(t, factory) })
	t.Run("CreateAndGetChat", func(t *testing.T) { testCreateAndGetChat(t, factory) })
	t.Run("OrderingAndTieBreak", func(t *testing.T) { testOrdering(t, factory) })
	t.Run("AppendIsAtomic", func(t *testing.T) { testAppendAtomic(t, factory) })
	t.Run("ContentRoundTrip", func(t *testing.T) { testContentRoundTrip(t, factory) })
	t.Run("ListChatsByUser", func(t *testing.T) { testListChatsByUser(t, factory) })
	t.Run("DeleteChat", func(t *testing.T) { testDeleteChat(t, factory) })
}

var base = time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)

func newChat(t *testing.T, s transcript.Store, userID uuid.UUID, at time.Time) transcript.Chat {
	t.Helper()
	c := transcript.Chat{ID: uuid.New(), UserID: userID, Title: "Chat at " + at.Format(time.RFC3339), CreatedAt: at}
	if err := s.CreateChat(context.Background(), c); err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return c
}

func msg(chatID uuid.UUID, role types.Role, text string, at time.Time) transcript.Message {
	return transcript.Message{ID: uuid.New(), ChatID: chatID, Role: role, Content: types.Text(text), CreatedAt: at}
}

func testGetChatMissing(t *testing.T, factory Factory) {
	s, _ := factory(t)
	c, err := s.GetChat(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if c != nil {
		t.Errorf("expected nil chat, got %+v", c)
	}
}

func testCreateAndGetChat(t *testing.T, factory Factory) {
	s, newUser := factory(t)
	user := newUser(t)
	want := newChat(t, s, user, base)

	got, err := s.GetChat(context.Background(), want.ID)
	if err != nil || got == nil {
		t.Fatalf("get chat: %v %v", got, err)
	}
	if got.UserID != user || got.Title != want.Title || !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("expected %+v, got %+v", want, *got)
	}
	if err := s.CreateChat(context.Background(), want); err == nil {
		t.Error("expected error creating a duplicate chat")
	}
}

func testOrdering(t *testing.T, factory Factory) {
	s, newUser := factory(t)
	ctx := context.Background()
	chat := newChat(t, s, newUser(t), base)

	late := msg(chat.ID, types.RoleAssistant, "third", base.Add(2*time.Second))
	if err := s.AppendMessages(ctx, []transcript.Message{late}); err != nil {
		t.Fatal(err)
	}
	// Same timestamp, appended in two calls: insertion order must win.
	first := msg(chat.ID, types.RoleUser, "first", base.Add(time.Second))
	second := msg(chat.ID, types.RoleAssistant, "second", base.Add(time.Second))
	if err := s.AppendMessages(ctx, []transcript.Message{first}); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendMessages(ctx, []transcript.Message{second}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Content.PlainText() != w {
			t.Errorf("position %d: expected %q, got %q", i, w, got[i].Content.PlainText())
		}
	}
}

func testAppendAtomic(t *testing.T, factory Factory) {
	s, newUser := factory(t)
	ctx := context.Background()
	chat := newChat(t, s, newUser(t), base)

	ok := msg(chat.ID, types.RoleUser, "kept?", base)
	orphan := msg(uuid.New(), types.RoleUser, "orphan", base)
	if err := s.AppendMessages(ctx, []transcript.Message{ok, orphan}); err == nil {
		t.Fatal("expected error appending to a missing chat")
	}
	got, err := s.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("failed batch must persist nothing, found %d messages", len(got))
	}
}

func testContentRoundTrip(t *testing.T, factory Factory) {
	s, newUser := factory(t)
	ctx := context.Background()
	chat := newChat(t, s, newUser(t), base)

	m := transcript.Message{
		ID:     uuid.New(),
		ChatID: chat.ID,
		Role:   types.RoleAssistant,
		Content: types.Content{
			types.TextBlock("checking"),
			types.ToolCallBlock(types.ToolCall{ID: "t1", Name: "weather", Input: []byte(`{"city":"Oslo"}`)}),
		},
		CreatedAt: base,
	}
	if err := s.AppendMessages(ctx, []transcript.Message{m}); err != nil {
		t.Fatal(err)
	}
	got, err := s.ListMessagesByChat(ctx, chat.ID)
	if err != nil || len(got) != 1 {
		t.Fatalf("list: %v %v", got, err)
	}
	c := got[0].Content
	if len(c) != 2 || c[0].Text != "checking" || c[1].ToolCall == nil || c[1].ToolCall.Name != "weather" {
		t.Errorf("content did not survive storage: %+v", c)
	}
	if got[0].Role != types.RoleAssistant || got[0].ID != m.ID {
		t.Errorf("unexpected message %+v", got[0])
	}
}

func testListChatsByUser(t *testing.T, factory Factory) {
	s, newUser := factory(t)
	ctx := context.Background()
	alice, bob := newUser(t), newUser(t)
	older := newChat(t, s, alice, base)
	newer := newChat(t, s, alice, base.Add(time.Hour))
	newChat(t, s, bob, base)

	got, err := s.ListChatsByUser(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Errorf("expected newest first for alice, got %+v", got)
	}
}

func testDeleteChat(t *testing.T, factory Factory) {
	s, newUser := factory(t)
	ctx := context.Background()
	chat := newChat(t, s, newUser(t), base)
	if err := s.AppendMessages(ctx, []transcript.Message{msg(chat.ID, types.RoleUser, "hi", base)}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteChat(ctx, chat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if c, _ := s.GetChat(ctx, chat.ID); c != nil {
		t.Error("chat should be gone")
	}
	if msgs, _ := s.ListMessagesByChat(ctx, chat.ID); len(msgs) != 0 {
		t.Errorf("messages should be gone, found %d", len(msgs))
	}
	if err := s.DeleteChat(ctx, chat.ID); !errors.Is(err, transcript.ErrChatNotFound) {
		t.Errorf("expected ErrChatNotFound, got %v", err)
	}
}
