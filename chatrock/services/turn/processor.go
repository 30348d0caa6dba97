// Package turn runs one conversation turn: validate the request, make sure the
// chat exists and belongs to the caller, persist the user message, ask the
// model and persist its reply.
package turn

import (
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/services/llm"
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/logging"
	"chatrock/chatrock/utils/types"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlaceholderTitleLayout matches the browser locale format the chat list shows.
const PlaceholderTitleLayout = "1/2/2006, 3:04:05 PM"

type Resolver interface {
	Resolve(modelID string) (catalog.ModelDescriptor, error)
}

type Input struct {
	ChatID   string
	ModelID  string
	Messages []types.ChatMessage
}

type Result struct {
	ChatID      uuid.UUID
	ChatCreated bool
	Message     types.ReplyMessage
	Usage       *llm.Usage
}

type Processor struct {
	models  Resolver
	store   transcript.Store
	gateway llm.Gateway
	titles  bool
	now     func() time.Time
	newID   func() uuid.UUID
}

type Option func(*Processor)

// WithTitleGeneration asks the model for a title when a chat is created.
func WithTitleGeneration(enabled bool) Option {
	return func(p *Processor) { p.titles = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(p *Processor) { p.newID = fn }
}

func NewProcessor(models Resolver, store transcript.Store, gateway llm.Gateway, opts ...Option) *Processor {
	p := &Processor{
		models:  models,
		store:   store,
		gateway: gateway,
		now:     time.Now,
		newID:   uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) ProcessTurn(ctx context.Context, rc types.RequestContext, in Input) (*Result, error) {
	defer logging.LogDuration(ctx, "ProcessTurn")()
	return p.process(ctx, rc, in, nil)
}

// ProcessTurnStream is ProcessTurn with reply text forwarded to onDelta as the
// model produces it.
func (p *Processor) ProcessTurnStream(ctx context.Context, rc types.RequestContext, in Input, onDelta func(string)) (*Result, error) {
	defer logging.LogDuration(ctx, "ProcessTurnStream")()
	if onDelta == nil {
		onDelta = func(string) {}
	}
	return p.process(ctx, rc, in, onDelta)
}

func (p *Processor) process(ctx context.Context, rc types.RequestContext, in Input, onDelta func(string)) (*Result, error) {
	if !rc.Authenticated() {
		return nil, newError(KindUnauthenticated, StateReceived, "authenticate", nil)
	}

	chatID, err := uuid.Parse(strings.TrimSpace(in.ChatID))
	if err != nil {
		return nil, newError(KindInvalidInput, StateAuthenticated, "parse chat id", err)
	}
	model, err := p.models.Resolve(in.ModelID)
	if err != nil {
		return nil, newError(KindModelNotFound, StateAuthenticated, "resolve model", err)
	}
	userContent, err := latestUserContent(in.Messages)
	if err != nil {
		return nil, newError(KindUserMessageNotFound, StateAuthenticated, "find user message", err)
	}

	created, err := p.ensureChat(ctx, rc, chatID, model, userContent)
	if err != nil {
		return nil, err
	}

	userMsg := transcript.Message{
		ID:        p.newID(),
		ChatID:    chatID,
		Role:      types.RoleUser,
		Content:   userContent,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.AppendMessages(ctx, []transcript.Message{userMsg}); err != nil {
		return nil, newError(KindStoreError, StateChatEnsured, "save user message", err)
	}

	history, err := p.store.ListMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, newError(KindStoreError, StateUserMessagePersisted, "load transcript", err)
	}
	conv := BuildConversation(history)

	// The client may go away from here on; the gateway bounds the call itself.
	detached := context.WithoutCancel(ctx)
	var reply llm.Reply
	if onDelta != nil {
		reply, err = p.gateway.ConverseStream(detached, model, conv, onDelta)
	} else {
		reply, err = p.gateway.Converse(detached, model, conv)
	}
	if err != nil {
		if errors.Is(err, llm.ErrNoReply) {
			return nil, newError(KindNoReplyProduced, StateInferenceRequested, "converse", err)
		}
		return nil, newError(KindInferenceError, StateInferenceRequested, "converse", err)
	}
	if reply.Content.IsEmpty() {
		return nil, newError(KindNoReplyProduced, StateInferenceRequested, "converse", llm.ErrNoReply)
	}

	assistantMsg := transcript.Message{
		ID:        p.newID(),
		ChatID:    chatID,
		Role:      types.RoleAssistant,
		Content:   reply.Content,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.AppendMessages(detached, []transcript.Message{assistantMsg}); err != nil {
		return nil, newError(KindStoreError, StateInferenceRequested, "save reply", err)
	}

	return &Result{
		ChatID:      chatID,
		ChatCreated: created,
		Message:     types.ReplyMessage{Role: types.RoleAssistant, Content: reply.Content},
		Usage:       reply.Usage,
	}, nil
}

// ensureChat creates the chat on first use and rejects chats owned by someone
// else. It reports whether the chat was created by this call.
func (p *Processor) ensureChat(ctx context.Context, rc types.RequestContext, chatID uuid.UUID, model catalog.ModelDescriptor, first types.Content) (bool, error) {
	chat, err := p.store.GetChat(ctx, chatID)
	if err != nil {
		return false, newError(KindStoreError, StateValidated, "get chat", err)
	}
	if chat != nil {
		if chat.UserID != rc.UserID {
			return false, newError(KindForbidden, StateValidated, "get chat", nil)
		}
		return false, nil
	}

	now := p.now().UTC()
	err = p.store.CreateChat(ctx, transcript.Chat{
		ID:        chatID,
		UserID:    rc.UserID,
		Title:     p.title(ctx, model, first, now),
		CreatedAt: now,
	})
	if err == nil {
		return true, nil
	}

	// Lost a race with a concurrent first turn on the same chat.
	chat, getErr := p.store.GetChat(ctx, chatID)
	if getErr != nil || chat == nil {
		return false, newError(KindStoreError, StateValidated, "create chat", err)
	}
	if chat.UserID != rc.UserID {
		return false, newError(KindForbidden, StateValidated, "create chat", nil)
	}
	return false, nil
}

func (p *Processor) title(ctx context.Context, model catalog.ModelDescriptor, first types.Content, now time.Time) string {
	placeholder := "Chat at " + now.Format(PlaceholderTitleLayout)
	if !p.titles {
		return placeholder
	}
	title, err := llm.GenerateTitle(ctx, p.gateway, model, first)
	if err != nil {
		logging.AppLogger.Warn("Title generation failed, using placeholder",
			zap.String("model", model.ID),
			zap.String("request_id", logging.RequestID(ctx)),
			zap.Error(err),
		)
		return placeholder
	}
	return title
}

var errNoUserMessage = errors.New("no user message in request")

// latestUserContent returns the content of the last user message, which must
// carry something to send.
func latestUserContent(msgs []types.ChatMessage) (types.Content, error) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if types.ParseRole(string(msgs[i].Role)) != types.RoleUser {
			continue
		}
		if msgs[i].Content.IsEmpty() {
			return nil, errors.New("latest user message is empty")
		}
		return msgs[i].Content, nil
	}
	return nil, errNoUserMessage
}

// BuildConversation maps a stored transcript to model input. System messages
// become system prompts and unknown roles are dropped.
func BuildConversation(history []transcript.Message) llm.Conversation {
	var conv llm.Conversation
	for _, m := range history {
		switch m.Role {
		case types.RoleSystem:
			if text := strings.TrimSpace(m.Content.PlainText()); text != "" {
				conv.System = append(conv.System, text)
			}
		case types.RoleUser, types.RoleAssistant, types.RoleTool:
			conv.Messages = append(conv.Messages, llm.Message{Role: m.Role, Content: m.Content})
		}
	}
	return conv
}
