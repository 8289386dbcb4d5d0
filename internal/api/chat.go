package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ChatPage asks a question about the user's indexed pages. The answer is
// markdown or plain text.
func (c *Client) ChatPage(ctx context.Context, in ChatRequest) (string, error) {
	if err := check(in); err != nil {
		return "", err
	}
	var raw []byte
	if err := c.do(ctx, request{method: http.MethodPost, path: "/chat", body: in, out: &raw}); err != nil {
		return "", err
	}
	return decodeAnswer(raw), nil
}

func (c *Client) ContentSummary(ctx context.Context, in SummaryRequest) (string, error) {
	if err := check(in); err != nil {
		return "", err
	}
	var raw []byte
	if err := c.do(ctx, request{method: http.MethodPost, path: "/chat/summary", body: in, out: &raw}); err != nil {
		return "", err
	}
	return decodeAnswer(raw), nil
}

// IndexPages asks the server to (re)build the chat index over the user's
// pages.
func (c *Client) IndexPages(ctx context.Context) (string, error) {
	var raw []byte
	if err := c.do(ctx, request{method: http.MethodPost, path: "/chat/upload", out: &raw}); err != nil {
		return "", err
	}
	return decodeAnswer(raw), nil
}

// decodeAnswer accepts a bare text body, a JSON string, or an object with
// one of the fields answer, summary, response, message or data.
func decodeAnswer(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if json.Unmarshal(trimmed, &s) == nil {
			return s
		}
	case '{':
		var obj map[string]json.RawMessage
		if json.Unmarshal(trimmed, &obj) == nil {
			for _, key := range []string{"answer", "summary", "response", "message", "data"} {
				v, ok := obj[key]
				if !ok {
					continue
				}
				if s := decodeAnswer(v); s != "" {
					return s
				}
			}
		}
	}
	return strings.TrimSpace(string(raw))
}
