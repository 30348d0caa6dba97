package routes

import (
	"chatrock/chatrock/config"
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/middlewares"
	"chatrock/chatrock/utils/logging"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Controllers struct {
	Auth   *controllers.AuthController
	Chat   *controllers.ChatController
	Models *controllers.ModelsController
	Health *controllers.HealthController
}

// NewRouter builds the full HTTP surface. The websocket route sits outside
// the request timeout.
func NewRouter(cfg config.Config, c Controllers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestMiddleware)
	r.Use(middleware.Recoverer)

	r.Mount("/health", HealthRoutes(c.Health))

	r.Route("/api", func(api chi.Router) {
		api.Group(func(gr chi.Router) {
			gr.Use(middleware.Timeout(cfg.InferenceTimeout + 30*time.Second))
			gr.Mount("/auth", AuthRoutes(c.Auth, cfg))
			gr.Mount("/models", ModelRoutes(c.Models))

			gr.Group(func(authed chi.Router) {
				authed.Use(middlewares.AuthMiddleware(cfg))
				authed.Mount("/chat", ChatRoutes(c.Chat))
				authed.Mount("/messages", MessageRoutes(c.Chat))
				authed.Mount("/history", HistoryRoutes(c.Chat))
			})
		})
		api.With(middlewares.AuthMiddleware(cfg)).Get("/chat/ws", ChatStreamHandler(c.Chat))
	})
	return r
}
