package routes

import (
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/middlewares"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageRoutes serves GET /{chatId}; other methods get 405.
func MessageRoutes(ctrl *controllers.ChatController) chi.Router {
	r := chi.NewRouter()
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	r.Get("/{chatId}", func(w http.ResponseWriter, r *http.Request) {
		rc := middlewares.RequestContextFrom(r.Context())
		chatID := chi.URLParam(r, "chatId")
		msgs, err := ctrl.GetMessages(r.Context(), rc, chatID)
		if err != nil {
			writeError(w, r, err, zap.String("user_id", rc.UserID.String()), zap.String("chat_id", chatID))
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	})
	return r
}

func HistoryRoutes(ctrl *controllers.ChatController) chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		rc := middlewares.RequestContextFrom(r.Context())
		chats, err := ctrl.ListHistory(r.Context(), rc)
		if err != nil {
			writeError(w, r, err, zap.String("user_id", rc.UserID.String()))
			return
		}
		writeJSON(w, http.StatusOK, chats)
	})
	return r
}

func ModelRoutes(ctrl *controllers.ModelsController) chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctrl.ListModels())
	})
	return r
}
