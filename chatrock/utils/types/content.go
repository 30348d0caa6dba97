package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
	RoleUnknown   Role = "unknown"
)

// ParseRole maps anything outside the known set to RoleUnknown.
func ParseRole(s string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return r
	default:
		return RoleUnknown
	}
}

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolCall   BlockType = "tool_call"
	BlockToolResult BlockType = "tool_result"
)

type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Content    string `json:"content"`
	IsError    bool   `json:"isError,omitempty"`
}

// ContentBlock is one tagged piece of message content. Exactly one of Text,
// ToolCall or ToolResult is meaningful, selected by Type.
type ContentBlock struct {
	Type       BlockType   `json:"type"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"toolCall,omitempty"`
	ToolResult *ToolResult `json:"toolResult,omitempty"`
}

func TextBlock(s string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: s}
}

func ToolCallBlock(tc ToolCall) ContentBlock {
	return ContentBlock{Type: BlockToolCall, ToolCall: &tc}
}

func ToolResultBlock(tr ToolResult) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolResult: &tr}
}

func (b ContentBlock) Validate() error {
	switch b.Type {
	case BlockText:
		return nil
	case BlockToolCall:
		if b.ToolCall == nil || b.ToolCall.Name == "" {
			return fmt.Errorf("tool_call block without a tool name")
		}
	case BlockToolResult:
		if b.ToolResult == nil || b.ToolResult.ToolCallID == "" {
			return fmt.Errorf("tool_result block without a tool call id")
		}
	default:
		return fmt.Errorf("unknown content block type %q", b.Type)
	}
	return nil
}

// Content is the ordered block list of a message. On the wire it accepts either
// a plain string or an array of blocks; the legacy `[{"text": "..."}]` shape
// (no type tag) decodes as text blocks.
type Content []ContentBlock

func Text(s string) Content {
	return Content{TextBlock(s)}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = nil
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("content must be a string or an array of blocks: %w", err)
	}
	for i := range blocks {
		if blocks[i].Type == "" && blocks[i].ToolCall == nil && blocks[i].ToolResult == nil {
			blocks[i].Type = BlockText
		}
		if err := blocks[i].Validate(); err != nil {
			return err
		}
	}
	*c = blocks
	return nil
}

// PlainText joins the text blocks, ignoring tool payloads.
func (c Content) PlainText() string {
	var parts []string
	for _, b := range c {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// IsEmpty is true when there is no text and no tool payload.
func (c Content) IsEmpty() bool {
	for _, b := range c {
		switch b.Type {
		case BlockText:
			if strings.TrimSpace(b.Text) != "" {
				return false
			}
		case BlockToolCall, BlockToolResult:
			return false
		}
	}
	return true
}
