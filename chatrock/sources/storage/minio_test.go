package storage

import (
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/types"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTranscriptKey(t *testing.T) {
	userID := uuid.MustParse("7d3f0c1e-2b8a-4f57-9a61-0c1f2e3d4b5a")
	chatID := uuid.MustParse("0b6f1d2c-3e4a-4b5c-8d9e-1f2a3b4c5d6e")
	want := "transcripts/7d3f0c1e-2b8a-4f57-9a61-0c1f2e3d4b5a/0b6f1d2c-3e4a-4b5c-8d9e-1f2a3b4c5d6e.json"
	if got := TranscriptKey(userID, chatID); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTranscriptObjectShape(t *testing.T) {
	at := time.Date(2024, 11, 5, 10, 0, 0, 0, time.UTC)
	chat := transcript.Chat{ID: uuid.New(), UserID: uuid.New(), Title: "Trip", CreatedAt: at}
	msgs := []transcript.Message{
		{ID: uuid.New(), ChatID: chat.ID, Role: types.RoleUser, Content: types.Text("hello"), CreatedAt: at},
		{ID: uuid.New(), ChatID: chat.ID, Role: types.RoleAssistant, Content: types.Text("hi"), CreatedAt: at},
	}

	data, err := json.Marshal(NewTranscriptObject(chat, msgs, at.Add(time.Hour)))
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"chatId", "userId", "title", "createdAt", "archivedAt", "messages"} {
		if _, ok := raw[k]; !ok {
			t.Errorf("missing %q in archived transcript", k)
		}
	}

	var back TranscriptObject
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Messages) != 2 || back.Messages[1].Content.PlainText() != "hi" {
		t.Errorf("unexpected messages %+v", back.Messages)
	}
}
