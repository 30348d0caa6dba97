package routes

import (
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/services/turn"
	"chatrock/chatrock/sources/psql/dao"
	"chatrock/chatrock/sources/transcript"
	"chatrock/chatrock/utils/logging"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps a failure to the HTTP status the API reports for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, transcript.ErrChatNotFound):
		return http.StatusNotFound
	case errors.Is(err, dao.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, controllers.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, controllers.ErrInvalidInput):
		return http.StatusBadRequest
	}
	switch turn.KindOf(err) {
	case turn.KindUnauthenticated:
		return http.StatusUnauthorized
	case turn.KindForbidden:
		return http.StatusForbidden
	case turn.KindInvalidInput:
		return http.StatusBadRequest
	case turn.KindUserMessageNotFound, turn.KindModelNotFound:
		return http.StatusNotFound
	case turn.KindNoReplyProduced, turn.KindInferenceError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError logs the failure with the caller's fields and writes a JSON
// error body. Server-side details stay out of 5xx bodies.
func writeError(w http.ResponseWriter, r *http.Request, err error, fields ...zap.Field) {
	status := StatusFor(err)
	kind := turn.KindOf(err)

	fields = append(fields,
		zap.String("request_id", logging.RequestID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	if state := turn.StateOf(err); state != "" {
		fields = append(fields, zap.String("state", string(state)))
	}
	logging.ErrorLogger.Error("Request failed", fields...)

	writeJSON(w, status, errorBody{Error: publicMessage(err), Kind: string(kind)})
}

func publicMessage(err error) string {
	if status := StatusFor(err); status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}
	return err.Error()
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &turn.Error{Kind: turn.KindInvalidInput, State: turn.StateReceived, Op: "decode body", Err: err}
	}
	return nil
}
