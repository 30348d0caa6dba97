package routes

import (
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/middlewares"
	"chatrock/chatrock/services/turn"
	"chatrock/chatrock/utils/logging"
	"chatrock/chatrock/utils/types"
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func turnFields(rc types.RequestContext, req types.ChatRequest) []zap.Field {
	return []zap.Field{
		zap.String("user_id", rc.UserID.String()),
		zap.String("chat_id", req.ID),
		zap.String("model_id", req.ModelID),
	}
}

// ChatRoutes serves POST / and DELETE /{chatId}. Callers mount it behind
// AuthMiddleware.
func ChatRoutes(ctrl *controllers.ChatController) chi.Router {
	r := chi.NewRouter()
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		rc := middlewares.RequestContextFrom(r.Context())
		var req types.ChatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err, zap.String("user_id", rc.UserID.String()))
			return
		}
		resp, err := ctrl.Chat(r.Context(), rc, req)
		if err != nil {
			writeError(w, r, err, turnFields(rc, req)...)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})
	r.Delete("/{chatId}", func(w http.ResponseWriter, r *http.Request) {
		rc := middlewares.RequestContextFrom(r.Context())
		chatID := chi.URLParam(r, "chatId")
		if err := ctrl.DeleteChat(r.Context(), rc, chatID); err != nil {
			writeError(w, r, err, zap.String("user_id", rc.UserID.String()), zap.String("chat_id", chatID))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

// ChatStreamHandler upgrades to a websocket. The first client frame is a
// ChatRequest; the server answers with delta frames and one done or error frame.
func ChatStreamHandler(ctrl *controllers.ChatController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc := middlewares.RequestContextFrom(r.Context())
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			conn.Close(websocket.StatusUnsupportedData, "unsupported data")
			return
		}
		var req types.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			writeFrame(ctx, conn, types.StreamFrame{Type: "error", Error: "invalid json"})
			conn.Close(websocket.StatusInvalidFramePayloadData, "invalid json")
			return
		}

		broken := false
		onDelta := func(text string) {
			if broken {
				return
			}
			if err := writeFrame(ctx, conn, types.StreamFrame{Type: "delta", Text: text}); err != nil {
				broken = true
			}
		}
		resp, err := ctrl.ChatStream(ctx, rc, req, onDelta)
		if err != nil {
			fields := append(turnFields(rc, req), zap.String("kind", string(turn.KindOf(err))), zap.Error(err))
			logging.ErrorLogger.Error("Stream turn failed", fields...)
			if !broken {
				writeFrame(ctx, conn, types.StreamFrame{Type: "error", Error: publicMessage(err)})
			}
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		if !broken {
			writeFrame(ctx, conn, types.StreamFrame{Type: "done", Message: &resp.Message})
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, frame types.StreamFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
