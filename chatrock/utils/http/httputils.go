package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("bad status: %d", e.Code)
	}
	return fmt.Sprintf("bad status: %d: %s", e.Code, e.Body)
}

func PostJSON(ctx context.Context, client *http.Client, url string, body interface{}, resp interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return Do(client, req, resp)
}

func GetJSON(ctx context.Context, client *http.Client, url string, resp interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return Do(client, req, resp)
}

// Do sends req and decodes a JSON body into resp when resp is non-nil.
func Do(client *http.Client, req *http.Request, resp interface{}) error {
	req.Header.Set("Accept", "application/json")
	r, err := client.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()
	if r.StatusCode < 200 || r.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
		return &StatusError{Code: r.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if resp != nil && r.StatusCode != http.StatusNoContent {
		return json.NewDecoder(r.Body).Decode(resp)
	}
	return nil
}
