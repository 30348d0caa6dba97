package controllers

import (
	"chatrock/chatrock/services/turn"
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/logging"
	"chatrock/chatrock/utils/types"
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Archiver keeps a copy of a transcript before the chat is deleted.
type Archiver interface {
	ArchiveTranscript(ctx context.Context, chat transcript.Chat, msgs []transcript.Message) (string, error)
}

type ChatController struct {
	proc    *turn.Processor
	store   transcript.Store
	archive Archiver
}

// NewChatController takes a nil archive when no bucket is configured.
func NewChatController(proc *turn.Processor, store transcript.Store, archive Archiver) *ChatController {
	return &ChatController{proc: proc, store: store, archive: archive}
}

func turnInput(req types.ChatRequest) turn.Input {
	return turn.Input{ChatID: req.ID, ModelID: req.ModelID, Messages: req.Messages}
}

func (c *ChatController) Chat(ctx context.Context, rc types.RequestContext, req types.ChatRequest) (*types.ChatResponse, error) {
	res, err := c.proc.ProcessTurn(ctx, rc, turnInput(req))
	if err != nil {
		return nil, err
	}
	return &types.ChatResponse{Message: res.Message}, nil
}

func (c *ChatController) ChatStream(ctx context.Context, rc types.RequestContext, req types.ChatRequest, onDelta func(string)) (*types.ChatResponse, error) {
	res, err := c.proc.ProcessTurnStream(ctx, rc, turnInput(req), onDelta)
	if err != nil {
		return nil, err
	}
	return &types.ChatResponse{Message: res.Message}, nil
}

// ownedChat loads a chat and checks the caller owns it. A missing chat is
// reported as nil without error.
func (c *ChatController) ownedChat(ctx context.Context, rc types.RequestContext, rawID, op string) (*transcript.Chat, error) {
	if !rc.Authenticated() {
		return nil, &turn.Error{Kind: turn.KindUnauthenticated, State: turn.StateReceived, Op: op}
	}
	chatID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, &turn.Error{Kind: turn.KindInvalidInput, State: turn.StateAuthenticated, Op: op, Err: err}
	}
	chat, err := c.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, &turn.Error{Kind: turn.KindStoreError, State: turn.StateValidated, Op: op, Err: err}
	}
	if chat != nil && chat.UserID != rc.UserID {
		return nil, &turn.Error{Kind: turn.KindForbidden, State: turn.StateValidated, Op: op}
	}
	return chat, nil
}

// GetMessages returns the ordered transcript. A chat that does not exist yet
// has an empty transcript.
func (c *ChatController) GetMessages(ctx context.Context, rc types.RequestContext, rawID string) ([]types.ChatMessage, error) {
	chat, err := c.ownedChat(ctx, rc, rawID, "get messages")
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return []types.ChatMessage{}, nil
	}
	msgs, err := c.store.ListMessagesByChat(ctx, chat.ID)
	if err != nil {
		return nil, &turn.Error{Kind: turn.KindStoreError, State: turn.StateChatEnsured, Op: "get messages", Err: err}
	}
	return transcript.ToWire(msgs), nil
}

func (c *ChatController) ListHistory(ctx context.Context, rc types.RequestContext) ([]types.ChatSummary, error) {
	if !rc.Authenticated() {
		return nil, &turn.Error{Kind: turn.KindUnauthenticated, State: turn.StateReceived, Op: "list history"}
	}
	chats, err := c.store.ListChatsByUser(ctx, rc.UserID)
	if err != nil {
		return nil, &turn.Error{Kind: turn.KindStoreError, State: turn.StateAuthenticated, Op: "list history", Err: err}
	}
	out := make([]types.ChatSummary, 0, len(chats))
	for _, ch := range chats {
		out = append(out, types.ChatSummary{ID: ch.ID, Title: ch.Title, CreatedAt: ch.CreatedAt})
	}
	return out, nil
}

// DeleteChat archives the transcript when an archive is configured, then
// removes the chat. An archive failure keeps the chat.
func (c *ChatController) DeleteChat(ctx context.Context, rc types.RequestContext, rawID string) error {
	chat, err := c.ownedChat(ctx, rc, rawID, "delete chat")
	if err != nil {
		return err
	}
	if chat == nil {
		return transcript.ErrChatNotFound
	}

	if c.archive != nil {
		msgs, err := c.store.ListMessagesByChat(ctx, chat.ID)
		if err != nil {
			return &turn.Error{Kind: turn.KindStoreError, State: turn.StateChatEnsured, Op: "delete chat", Err: err}
		}
		key, err := c.archive.ArchiveTranscript(ctx, *chat, msgs)
		if err != nil {
			return &turn.Error{Kind: turn.KindStoreError, State: turn.StateChatEnsured, Op: "archive chat", Err: err}
		}
		logging.AppLogger.Info("Archived chat transcript",
			zap.String("chat_id", chat.ID.String()),
			zap.String("key", key),
			zap.Int("messages", len(msgs)),
		)
	}

	if err := c.store.DeleteChat(ctx, chat.ID); err != nil {
		return fmt.Errorf("delete chat %s: %w", chat.ID, err)
	}
	return nil
}
