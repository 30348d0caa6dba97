package routes

import (
	"chatrock/chatrock/config"
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/utils/types"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func AuthRoutes(ctrl *controllers.AuthController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", func(w http.ResponseWriter, r *http.Request) {
		var req types.CredentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := ctrl.Register(r.Context(), req)
		if err != nil {
			writeError(w, r, err, zap.String("email", req.Email))
			return
		}
		setSessionCookie(w, cfg, sess.Token)
		writeJSON(w, http.StatusCreated, sess)
	})
	r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
		var req types.CredentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		sess, err := ctrl.Login(r.Context(), req)
		if err != nil {
			writeError(w, r, err, zap.String("email", req.Email))
			return
		}
		setSessionCookie(w, cfg, sess.Token)
		writeJSON(w, http.StatusOK, sess)
	})
	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     cfg.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func setSessionCookie(w http.ResponseWriter, cfg config.Config, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.SessionTTL),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
