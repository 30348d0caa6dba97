package llm

import (
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/types"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const MaxTitleLength = 80

const titlePrompt = `- you will generate a short title based on the first message a user begins a conversation with
- ensure it is not more than 80 characters long
- the title should be a summary of the user's message
- do not use quotes or colons`

// GenerateTitle asks the model for a short summary of a chat's first message.
func GenerateTitle(ctx context.Context, gw Gateway, model catalog.ModelDescriptor, first types.Content) (string, error) {
	payload, err := json.Marshal(first.PlainText())
	if err != nil {
		return "", err
	}
	reply, err := gw.Converse(ctx, model, Conversation{
		System: []string{titlePrompt},
		Messages: []Message{
			{Role: types.RoleUser, Content: types.Text(string(payload))},
		},
	})
	if err != nil {
		return "", err
	}
	title := SanitizeTitle(reply.Content.PlainText())
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrNoReply)
	}
	return title, nil
}

// SanitizeTitle keeps the first non-empty line, drops quotes and colons and
// caps the length.
func SanitizeTitle(s string) string {
	var line string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	line = strings.Map(func(r rune) rune {
		switch r {
		case '"', '\'', '`', ':', '“', '”':
			return -1
		}
		return r
	}, line)
	line = strings.Join(strings.Fields(line), " ")
	if utf8.RuneCountInString(line) > MaxTitleLength {
		line = strings.TrimSpace(string([]rune(line)[:MaxTitleLength]))
	}
	return line
}
