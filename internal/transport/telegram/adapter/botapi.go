package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// apiError is a Bot API call that returned ok=false or a non-2xx status.
type apiError struct {
	Method      string
	HTTPStatus  int
	Code        int
	Description string
}

func (e *apiError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s: http %d", e.Method, e.HTTPStatus)
	}
	return fmt.Sprintf("telegram %s: %s (code %d, http %d)", e.Method, e.Description, e.Code, e.HTTPStatus)
}

// apiReply is the envelope every Bot API method answers with.
type apiReply struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (a *Adapter) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimSuffix(a.cfg.APIURL, "/"), strings.TrimSpace(a.cfg.Token), method)
}

// callAPI posts params as JSON to a Bot API method the telebot client
// does not expose.
func (a *Adapter) callAPI(ctx context.Context, method string, params any) error {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(params); err != nil {
		return fmt.Errorf("telegram %s: encode: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.methodURL(method), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var reply apiReply
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &reply)
	if reply.OK && resp.StatusCode < 300 {
		return nil
	}
	return &apiError{Method: method, HTTPStatus: resp.StatusCode, Code: reply.ErrorCode, Description: reply.Description}
}
