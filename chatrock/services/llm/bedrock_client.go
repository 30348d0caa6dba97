package llm

import (
	"chatrock/chatrock/config"
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/utils/logging"
	"chatrock/chatrock/utils/types"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"
)

// ConverseAPI is the subset of the Bedrock runtime client we call.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

type BedrockClient struct {
	api       ConverseAPI
	timeout   time.Duration
	maxTokens int32
}

// NewBedrockClient builds the process-wide Bedrock runtime client from static
// credentials. Call once at startup and share the result.
func NewBedrockClient(ctx context.Context, cfg config.Config) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewBedrockClientWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg.InferenceTimeout, cfg.MaxTokens), nil
}

func NewBedrockClientWithAPI(api ConverseAPI, timeout time.Duration, maxTokens int32) *BedrockClient {
	return &BedrockClient{api: api, timeout: timeout, maxTokens: maxTokens}
}

func (c *BedrockClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *BedrockClient) inferenceConfig() *brtypes.InferenceConfiguration {
	if c.maxTokens <= 0 {
		return nil
	}
	return &brtypes.InferenceConfiguration{MaxTokens: aws.Int32(c.maxTokens)}
}

func (c *BedrockClient) Converse(ctx context.Context, model catalog.ModelDescriptor, conv Conversation) (Reply, error) {
	defer logging.LogDuration(ctx, "bedrock_converse")()

	msgs, err := toBedrockMessages(conv.Messages)
	if err != nil {
		return Reply{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:         aws.String(model.APIIdentifier),
		Messages:        msgs,
		System:          toBedrockSystem(conv.System),
		InferenceConfig: c.inferenceConfig(),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("bedrock converse %s: %w", model.APIIdentifier, err)
	}

	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return Reply{}, fmt.Errorf("%w: output is not a message", ErrNoReply)
	}
	reply := Reply{
		Role:       fromBedrockRole(msgOut.Value.Role),
		Content:    fromBedrockContent(msgOut.Value.Content),
		StopReason: string(out.StopReason),
	}
	if out.Usage != nil {
		reply.Usage = &Usage{
			InputTokens:  aws.ToInt32(out.Usage.InputTokens),
			OutputTokens: aws.ToInt32(out.Usage.OutputTokens),
		}
	}
	if reply.Content.IsEmpty() {
		return Reply{}, fmt.Errorf("%w: message has no content", ErrNoReply)
	}
	return reply, nil
}

func (c *BedrockClient) ConverseStream(ctx context.Context, model catalog.ModelDescriptor, conv Conversation, onDelta func(string)) (Reply, error) {
	defer logging.LogDuration(ctx, "bedrock_converse_stream")()

	msgs, err := toBedrockMessages(conv.Messages)
	if err != nil {
		return Reply{}, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.api.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:         aws.String(model.APIIdentifier),
		Messages:        msgs,
		System:          toBedrockSystem(conv.System),
		InferenceConfig: c.inferenceConfig(),
	})
	if err != nil {
		return Reply{}, fmt.Errorf("bedrock converse stream %s: %w", model.APIIdentifier, err)
	}
	stream := out.GetStream()
	defer stream.Close()

	reply := collectStream(stream.Events(), onDelta)
	if err := stream.Err(); err != nil {
		return Reply{}, fmt.Errorf("bedrock stream %s: %w", model.APIIdentifier, err)
	}
	if reply.Content.IsEmpty() {
		return Reply{}, fmt.Errorf("%w: stream produced no text", ErrNoReply)
	}
	return reply, nil
}

// collectStream drains the event channel into a reply. Only text deltas are
// forwarded and accumulated.
func collectStream(events <-chan brtypes.ConverseStreamOutput, onDelta func(string)) Reply {
	reply := Reply{Role: types.RoleAssistant}
	var sb strings.Builder
	for event := range events {
		switch v := event.(type) {
		case *brtypes.ConverseStreamOutputMemberMessageStart:
			reply.Role = fromBedrockRole(v.Value.Role)
		case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
			d, ok := v.Value.Delta.(*brtypes.ContentBlockDeltaMemberText)
			if !ok || d.Value == "" {
				continue
			}
			sb.WriteString(d.Value)
			if onDelta != nil {
				onDelta(d.Value)
			}
		case *brtypes.ConverseStreamOutputMemberMessageStop:
			reply.StopReason = string(v.Value.StopReason)
		case *brtypes.ConverseStreamOutputMemberMetadata:
			if v.Value.Usage != nil {
				reply.Usage = &Usage{
					InputTokens:  aws.ToInt32(v.Value.Usage.InputTokens),
					OutputTokens: aws.ToInt32(v.Value.Usage.OutputTokens),
				}
			}
		}
	}
	reply.Content = types.Text(sb.String())
	return reply
}

func toBedrockSystem(system []string) []brtypes.SystemContentBlock {
	var out []brtypes.SystemContentBlock
	for _, s := range system {
		if strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, &brtypes.SystemContentBlockMemberText{Value: s})
	}
	return out
}

// toBedrockMessages maps the transcript to Converse messages. Tool results
// travel in user turns, and adjacent turns with the same role are merged
// because Converse requires roles to alternate.
func toBedrockMessages(msgs []Message) ([]brtypes.Message, error) {
	var out []brtypes.Message
	for _, m := range msgs {
		var role brtypes.ConversationRole
		switch m.Role {
		case types.RoleUser, types.RoleTool:
			role = brtypes.ConversationRoleUser
		case types.RoleAssistant:
			role = brtypes.ConversationRoleAssistant
		default:
			return nil, fmt.Errorf("role %q cannot be sent to the model", m.Role)
		}
		blocks, err := toBedrockContent(m.Content)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, brtypes.Message{Role: role, Content: blocks})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("conversation has no messages")
	}
	return out, nil
}

func toBedrockContent(c types.Content) ([]brtypes.ContentBlock, error) {
	var out []brtypes.ContentBlock
	for _, b := range c {
		switch b.Type {
		case types.BlockText:
			if strings.TrimSpace(b.Text) == "" {
				continue
			}
			out = append(out, &brtypes.ContentBlockMemberText{Value: b.Text})
		case types.BlockToolCall:
			var input any = map[string]any{}
			if len(b.ToolCall.Input) > 0 {
				if err := json.Unmarshal(b.ToolCall.Input, &input); err != nil {
					return nil, fmt.Errorf("tool call %s input: %w", b.ToolCall.ID, err)
				}
			}
			out = append(out, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
				ToolUseId: aws.String(b.ToolCall.ID),
				Name:      aws.String(b.ToolCall.Name),
				Input:     document.NewLazyDocument(input),
			}})
		case types.BlockToolResult:
			status := brtypes.ToolResultStatusSuccess
			if b.ToolResult.IsError {
				status = brtypes.ToolResultStatusError
			}
			out = append(out, &brtypes.ContentBlockMemberToolResult{Value: brtypes.ToolResultBlock{
				ToolUseId: aws.String(b.ToolResult.ToolCallID),
				Content: []brtypes.ToolResultContentBlock{
					&brtypes.ToolResultContentBlockMemberText{Value: b.ToolResult.Content},
				},
				Status: status,
			}})
		}
	}
	return out, nil
}

func fromBedrockRole(r brtypes.ConversationRole) types.Role {
	return types.ParseRole(string(r))
}

func fromBedrockContent(blocks []brtypes.ContentBlock) types.Content {
	var out types.Content
	for _, block := range blocks {
		switch v := block.(type) {
		case *brtypes.ContentBlockMemberText:
			out = append(out, types.TextBlock(v.Value))
		case *brtypes.ContentBlockMemberToolUse:
			tc := types.ToolCall{ID: aws.ToString(v.Value.ToolUseId), Name: aws.ToString(v.Value.Name)}
			if v.Value.Input != nil {
				var input any
				if err := v.Value.Input.UnmarshalSmithyDocument(&input); err == nil {
					tc.Input, _ = json.Marshal(input)
				}
			}
			out = append(out, types.ToolCallBlock(tc))
		default:
			logging.AppLogger.Warn("dropping unsupported bedrock content block", zap.String("type", fmt.Sprintf("%T", block)))
		}
	}
	return out
}
