package routes

import (
	"bytes"
	"chatrock/chatrock/config"
	"chatrock/chatrock/controllers"
	"chatrock/chatrock/services/catalog"
	"chatrock/chatrock/services/llm"
	"chatrock/chatrock/services/turn"
	"chatrock/chatrock/sources/memory"
	"chatrock/chatrock/utils/logging"
	"chatrock/chatrock/utils/types"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logging.InitNopLogger()
	cfg := config.Config{
		JWTSecret:        "test-secret",
		SessionCookie:    "chatrock_session",
		SessionTTL:       time.Hour,
		InferenceTimeout: 5 * time.Second,
	}
	store := memory.NewStore()
	models := catalog.Builtin()
	proc := turn.NewProcessor(models, store, llm.NewStubClient())
	srv := httptest.NewServer(NewRouter(cfg, Controllers{
		Auth:   controllers.NewAuthController(memory.NewUsers(), cfg),
		Chat:   controllers.NewChatController(proc, store, nil),
		Models: controllers.NewModelsController(models),
		Health: controllers.NewHealthController(nil),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func register(t *testing.T, srv *httptest.Server, email string) types.SessionResponse {
	t.Helper()
	resp := do(t, "POST", srv.URL+"/api/auth/register", "", types.CredentialsRequest{Email: email, Password: "secret"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.StatusCode)
	}
	var sess types.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == "chatrock_session" && c.Value == sess.Token && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("register should set an HTTP-only session cookie")
	}
	return sess
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "amy@example.com")

	if resp := do(t, "POST", srv.URL+"/api/auth/register", "", types.CredentialsRequest{Email: "amy@example.com", Password: "secret"}); resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register: expected 409, got %d", resp.StatusCode)
	}
	if resp := do(t, "POST", srv.URL+"/api/auth/register", "", types.CredentialsRequest{Email: "nope", Password: "secret"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad email: expected 400, got %d", resp.StatusCode)
	}
	if resp := do(t, "POST", srv.URL+"/api/auth/login", "", types.CredentialsRequest{Email: "amy@example.com", Password: "wrong"}); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", resp.StatusCode)
	}
	if resp := do(t, "POST", srv.URL+"/api/auth/login", "", types.CredentialsRequest{Email: "amy@example.com", Password: "secret"}); resp.StatusCode != http.StatusOK {
		t.Errorf("login: expected 200, got %d", resp.StatusCode)
	}
	if resp := do(t, "POST", srv.URL+"/api/auth/logout", "", nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("logout: expected 204, got %d", resp.StatusCode)
	}
}

func TestChatEndpoint(t *testing.T) {
	srv := newTestServer(t)
	sess := register(t, srv, "bo@example.com")
	chatID := uuid.New()
	body := types.ChatRequest{
		ID:       chatID.String(),
		ModelID:  catalog.DefaultModelID,
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: types.Text("hello")}},
	}

	if resp := do(t, "POST", srv.URL+"/api/chat", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", resp.StatusCode)
	}

	resp := do(t, "POST", srv.URL+"/api/chat", sess.Token, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: expected 200, got %d", resp.StatusCode)
	}
	var out types.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Message.Role != types.RoleAssistant || !strings.Contains(out.Message.Content.PlainText(), "hello") {
		t.Errorf("unexpected reply %+v", out.Message)
	}

	resp = do(t, "GET", srv.URL+"/api/messages/"+chatID.String(), sess.Token, nil)
	var msgs []types.ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Role != types.RoleUser || msgs[1].Role != types.RoleAssistant {
		t.Errorf("unexpected transcript %+v", msgs)
	}

	if resp := do(t, "POST", srv.URL+"/api/messages/"+chatID.String(), sess.Token, nil); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST messages: expected 405, got %d", resp.StatusCode)
	}

	resp = do(t, "GET", srv.URL+"/api/history", sess.Token, nil)
	var history []types.ChatSummary
	if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].ID != chatID {
		t.Errorf("unexpected history %+v", history)
	}

	other := register(t, srv, "cy@example.com")
	if resp := do(t, "POST", srv.URL+"/api/chat", other.Token, body); resp.StatusCode != http.StatusForbidden {
		t.Errorf("foreign chat: expected 403, got %d", resp.StatusCode)
	}

	if resp := do(t, "DELETE", srv.URL+"/api/chat/"+chatID.String(), sess.Token, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}
	if resp := do(t, "DELETE", srv.URL+"/api/chat/"+chatID.String(), sess.Token, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}
}

func TestChatEndpointErrors(t *testing.T) {
	srv := newTestServer(t)
	sess := register(t, srv, "di@example.com")
	user := []types.ChatMessage{{Role: types.RoleUser, Content: types.Text("hello")}}

	cases := []struct {
		name string
		body types.ChatRequest
		want int
	}{
		{"unknown model", types.ChatRequest{ID: uuid.NewString(), ModelID: "nope", Messages: user}, http.StatusNotFound},
		{"no user message", types.ChatRequest{ID: uuid.NewString(), ModelID: catalog.DefaultModelID}, http.StatusNotFound},
		{"bad chat id", types.ChatRequest{ID: "c1", ModelID: catalog.DefaultModelID, Messages: user}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := do(t, "POST", srv.URL+"/api/chat", sess.Token, tc.body)
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Kind == "" {
				t.Errorf("expected a kinded error body, got %+v %v", body, err)
			}
		})
	}
}

func TestChatWebsocket(t *testing.T) {
	srv := newTestServer(t)
	sess := register(t, srv, "ed@example.com")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + sess.Token}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	req, _ := json.Marshal(types.ChatRequest{
		ID:       uuid.NewString(),
		ModelID:  catalog.DefaultModelID,
		Messages: []types.ChatMessage{{Role: types.RoleUser, Content: types.Text("stream this")}},
	})
	if err := conn.Write(ctx, websocket.MessageText, req); err != nil {
		t.Fatal(err)
	}

	var text strings.Builder
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			var ce websocket.CloseError
			if errors.As(err, &ce) {
				t.Fatal("connection closed before the done frame")
			}
			t.Fatal(err)
		}
		var frame types.StreamFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.Fatal(err)
		}
		if frame.Type == "delta" {
			text.WriteString(frame.Text)
			continue
		}
		if frame.Type != "done" || frame.Message == nil {
			t.Fatalf("unexpected frame %+v", frame)
		}
		if frame.Message.Content.PlainText() != text.String() {
			t.Errorf("deltas %q do not add up to the reply %q", text.String(), frame.Message.Content.PlainText())
		}
		return
	}
}

func TestModelsAndHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, "GET", srv.URL+"/api/models", "", nil)
	var list types.ModelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if list.Default != catalog.DefaultModelID || len(list.Models) == 0 {
		t.Errorf("unexpected model list %+v", list)
	}
	if resp := do(t, "GET", srv.URL+"/health", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health: expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[turn.Kind]int{
		turn.KindUnauthenticated:     http.StatusUnauthorized,
		turn.KindForbidden:           http.StatusForbidden,
		turn.KindInvalidInput:        http.StatusBadRequest,
		turn.KindUserMessageNotFound: http.StatusNotFound,
		turn.KindModelNotFound:       http.StatusNotFound,
		turn.KindNoReplyProduced:     http.StatusBadGateway,
		turn.KindInferenceError:      http.StatusBadGateway,
		turn.KindStoreError:          http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := StatusFor(&turn.Error{Kind: kind}); got != want {
			t.Errorf("%s: expected %d, got %d", kind, want, got)
		}
	}
	if got := StatusFor(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("plain error: expected 500, got %d", got)
	}
	if publicMessage(&turn.Error{Kind: turn.KindStoreError, Err: errors.New("password=hunter2")}) != "Internal Server Error" {
		t.Error("5xx bodies must not leak error details")
	}
}
