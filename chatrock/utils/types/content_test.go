package types

import (
	"encoding/json"
	"testing"
)

func TestContentAcceptsPlainString(t *testing.T) {
	var m ChatMessage
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Role != RoleUser {
		t.Errorf("expected role user, got %q", m.Role)
	}
	if got := m.Content.PlainText(); got != "hello" {
		t.Errorf("expected hello, got %q", got)
	}
}

func TestContentAcceptsLegacyTextBlocks(t *testing.T) {
	var c Content
	if err := json.Unmarshal([]byte(`[{"text":"a"},{"text":"b"}]`), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(c) != 2 || c[0].Type != BlockText {
		t.Fatalf("expected two text blocks, got %+v", c)
	}
	if got := c.PlainText(); got != "a\nb" {
		t.Errorf("expected joined text, got %q", got)
	}
}

func TestContentToolBlocks(t *testing.T) {
	raw := `[{"type":"tool_call","toolCall":{"id":"t1","name":"weather","input":{"city":"Oslo"}}},
	         {"type":"tool_result","toolResult":{"toolCallId":"t1","content":"sunny"}}]`
	var c Content
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.IsEmpty() {
		t.Error("tool content must not count as empty")
	}
	if c[0].ToolCall.Name != "weather" || c[1].ToolResult.Content != "sunny" {
		t.Errorf("unexpected blocks %+v", c)
	}
	if c.PlainText() != "" {
		t.Errorf("expected no plain text, got %q", c.PlainText())
	}
}

func TestContentRejectsUnknownBlock(t *testing.T) {
	var c Content
	if err := json.Unmarshal([]byte(`[{"type":"image"}]`), &c); err == nil {
		t.Error("expected error for unknown block type")
	}
	if err := json.Unmarshal([]byte(`42`), &c); err == nil {
		t.Error("expected error for numeric content")
	}
}

func TestContentIsEmpty(t *testing.T) {
	if !Text("   ").IsEmpty() {
		t.Error("whitespace text should be empty")
	}
	if !(Content{}).IsEmpty() {
		t.Error("no blocks should be empty")
	}
	if Text("x").IsEmpty() {
		t.Error("text should not be empty")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"user":      RoleUser,
		"Assistant": RoleAssistant,
		" system ":  RoleSystem,
		"tool":      RoleTool,
		"developer": RoleUnknown,
		"":          RoleUnknown,
	}
	for in, want := range cases {
		if got := ParseRole(in); got != want {
			t.Errorf("ParseRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCredentialsValidate(t *testing.T) {
	r := CredentialsRequest{Email: "  Ada@Example.com ", Password: "pass"}
	r.Normalize()
	if err := r.Validate(); err != nil {
		t.Errorf("expected valid credentials, got %v", err)
	}
	if r.Email != "ada@example.com" {
		t.Errorf("expected normalized email, got %q", r.Email)
	}
	if err := (CredentialsRequest{Email: "nope", Password: "pass"}).Validate(); err == nil {
		t.Error("expected invalid email")
	}
	if err := (CredentialsRequest{Email: "a@b.co", Password: "abc"}).Validate(); err == nil {
		t.Error("expected short password to fail")
	}
}
