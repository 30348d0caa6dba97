package llm

import (
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/types"
	"context"
	"strings"
)

// StubClient answers without any network call by echoing the latest user
// text. It keeps the server usable offline.
type StubClient struct{}

func NewStubClient() StubClient { return StubClient{} }

func (StubClient) Converse(ctx context.Context, model catalog.ModelDescriptor, conv Conversation) (Reply, error) {
	text := "Stub assistant reply from " + model.ID + ".\n\nYou said:\n" + lastUserText(conv.Messages)
	return Reply{Role: types.RoleAssistant, Content: types.Text(text), StopReason: "end_turn"}, nil
}

func (s StubClient) ConverseStream(ctx context.Context, model catalog.ModelDescriptor, conv Conversation, onDelta func(string)) (Reply, error) {
	reply, err := s.Converse(ctx, model, conv)
	if err != nil {
		return Reply{}, err
	}
	if onDelta != nil {
		for _, word := range strings.SplitAfter(reply.Content.PlainText(), " ") {
			onDelta(word)
		}
	}
	return reply, nil
}

func lastUserText(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == types.RoleUser {
			return strings.TrimSpace(msgs[i].Content.PlainText())
		}
	}
	return ""
}
