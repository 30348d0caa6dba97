package llm

import (
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/types"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeConverseAPI struct {
	out   *bedrockruntime.ConverseOutput
	err   error
	input *bedrockruntime.ConverseInput
}

func (f *fakeConverseAPI) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = params
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline on the inference context")
	}
	return f.out, f.err
}

func (f *fakeConverseAPI) ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	return nil, errors.New("not implemented")
}

var titan = catalog.ModelDescriptor{ID: "amazon.titan-text-express-v1", APIIdentifier: "amazon.titan-text-express-v1"}

func TestConverseMapsRequestAndReply(t *testing.T) {
	api := &fakeConverseAPI{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "hi there"}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(3), OutputTokens: aws.Int32(2), TotalTokens: aws.Int32(5)},
	}}
	c := NewBedrockClientWithAPI(api, time.Minute, 512)

	reply, err := c.Converse(context.Background(), titan, Conversation{
		System: []string{"be brief"},
		Messages: []Message{
			{Role: types.RoleUser, Content: types.Text("hello")},
		},
	})
	if err != nil {
		t.Fatalf("converse: %v", err)
	}
	if reply.Role != types.RoleAssistant || reply.Content.PlainText() != "hi there" {
		t.Errorf("unexpected reply %+v", reply)
	}
	if reply.Usage == nil || reply.Usage.OutputTokens != 2 {
		t.Errorf("expected usage to be mapped, got %+v", reply.Usage)
	}
	if aws.ToString(api.input.ModelId) != "amazon.titan-text-express-v1" {
		t.Errorf("unexpected model id %q", aws.ToString(api.input.ModelId))
	}
	if len(api.input.System) != 1 {
		t.Errorf("expected one system block, got %d", len(api.input.System))
	}
	if aws.ToInt32(api.input.InferenceConfig.MaxTokens) != 512 {
		t.Errorf("expected max tokens 512")
	}
}

func TestConverseEmptyOutputIsNoReply(t *testing.T) {
	cases := map[string]*bedrockruntime.ConverseOutput{
		"nil output": {},
		"no content": {Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{Role: brtypes.ConversationRoleAssistant}}},
		"blank text": {Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "  "}},
		}}},
	}
	for name, out := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewBedrockClientWithAPI(&fakeConverseAPI{out: out}, time.Minute, 0)
			_, err := c.Converse(context.Background(), titan, Conversation{Messages: []Message{{Role: types.RoleUser, Content: types.Text("x")}}})
			if !errors.Is(err, ErrNoReply) {
				t.Errorf("expected ErrNoReply, got %v", err)
			}
		})
	}
}

func TestConversePropagatesAPIError(t *testing.T) {
	boom := errors.New("throttled")
	c := NewBedrockClientWithAPI(&fakeConverseAPI{err: boom}, time.Minute, 0)
	_, err := c.Converse(context.Background(), titan, Conversation{Messages: []Message{{Role: types.RoleUser, Content: types.Text("x")}}})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped api error, got %v", err)
	}
}

func TestToBedrockMessagesMergesAndMapsTools(t *testing.T) {
	msgs := []Message{
		{Role: types.RoleUser, Content: types.Text("hello")},
		{Role: types.RoleUser, Content: types.Text("hello again")},
		{Role: types.RoleAssistant, Content: types.Content{
			types.ToolCallBlock(types.ToolCall{ID: "t1", Name: "weather", Input: json.RawMessage(`{"city":"Oslo"}`)}),
		}},
		{Role: types.RoleTool, Content: types.Content{
			types.ToolResultBlock(types.ToolResult{ToolCallID: "t1", Content: "sunny", IsError: true}),
		}},
		{Role: types.RoleAssistant, Content: types.Text("")},
	}
	out, err := toBedrockMessages(msgs)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 alternating messages, got %d", len(out))
	}
	if out[0].Role != brtypes.ConversationRoleUser || len(out[0].Content) != 2 {
		t.Errorf("expected merged user turn with 2 blocks, got %+v", out[0])
	}
	if _, ok := out[1].Content[0].(*brtypes.ContentBlockMemberToolUse); !ok {
		t.Errorf("expected tool use block, got %T", out[1].Content[0])
	}
	res, ok := out[2].Content[0].(*brtypes.ContentBlockMemberToolResult)
	if !ok {
		t.Fatalf("expected tool result block, got %T", out[2].Content[0])
	}
	if res.Value.Status != brtypes.ToolResultStatusError {
		t.Errorf("expected error status, got %q", res.Value.Status)
	}
}

func TestToBedrockMessagesRejectsSystemRole(t *testing.T) {
	_, err := toBedrockMessages([]Message{{Role: types.RoleSystem, Content: types.Text("x")}})
	if err == nil {
		t.Error("expected error for system role in messages")
	}
	if _, err := toBedrockMessages(nil); err == nil {
		t.Error("expected error for empty conversation")
	}
}

func TestCollectStream(t *testing.T) {
	events := make(chan brtypes.ConverseStreamOutput, 6)
	events <- &brtypes.ConverseStreamOutputMemberMessageStart{Value: brtypes.MessageStartEvent{Role: brtypes.ConversationRoleAssistant}}
	events <- &brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
		Delta: &brtypes.ContentBlockDeltaMemberText{Value: "Hel"},
	}}
	events <- &brtypes.ConverseStreamOutputMemberContentBlockDelta{Value: brtypes.ContentBlockDeltaEvent{
		Delta: &brtypes.ContentBlockDeltaMemberText{Value: "lo"},
	}}
	events <- &brtypes.ConverseStreamOutputMemberMessageStop{Value: brtypes.MessageStopEvent{StopReason: brtypes.StopReasonEndTurn}}
	events <- &brtypes.ConverseStreamOutputMemberMetadata{Value: brtypes.ConverseStreamMetadataEvent{
		Usage: &brtypes.TokenUsage{InputTokens: aws.Int32(1), OutputTokens: aws.Int32(2), TotalTokens: aws.Int32(3)},
	}}
	close(events)

	var deltas []string
	reply := collectStream(events, func(s string) { deltas = append(deltas, s) })
	if reply.Content.PlainText() != "Hello" {
		t.Errorf("expected Hello, got %q", reply.Content.PlainText())
	}
	if len(deltas) != 2 {
		t.Errorf("expected 2 deltas, got %v", deltas)
	}
	if reply.StopReason != "end_turn" || reply.Usage == nil {
		t.Errorf("expected stop reason and usage, got %+v", reply)
	}
}
