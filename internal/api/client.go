// Package api is the HTTP client for the notion-clone REST API. It injects
// the bearer token from the session, refreshes it once on a 401 and maps
// failures onto ValidationError, TransportError and APIError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/henvic/httpretty"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/term"

	"notionclone/client/internal/session"
	"notionclone/client/internal/util"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	DefaultTimeout = 10 * time.Second

	// LoginPath is handed to the session-expired callback.
	LoginPath = "/login"

	refreshPath = "/auth/refresh-token"
	maxBodySize = 8 << 20
)

// Paths that never carry the Authorization header.
var publicPaths = []string{
	"/auth/login",
	"/auth/register",
	refreshPath,
	"/users/login",
	"/users/register",
	"/users/forgot-password/request-otp",
	"/users/forgot-password/reset",
}

func isPublic(path string) bool {
	for _, p := range publicPaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

type Client struct {
	baseURL   string
	http      *http.Client
	session   *session.Session
	logger    *zap.Logger
	onExpired func(redirect string)
	debug     io.Writer

	refreshes singleflight.Group
	expireMu  sync.Mutex
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is kept
// unless WithTimeout is also given.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDebugOutput dumps every request and response to w.
func WithDebugOutput(w io.Writer) Option {
	return func(c *Client) { c.debug = w }
}

// WithSessionExpired registers the callback run after the session has been
// torn down because the token could not be refreshed. It receives the path
// the user should be sent to.
func WithSessionExpired(fn func(redirect string)) Option {
	return func(c *Client) { c.onExpired = fn }
}

func New(baseURL string, sess *session.Session, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", baseURL)
	}
	if sess == nil {
		return nil, errors.New("api: session is required")
	}
	// The refresh endpoint authenticates with a cookie set at login.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout, Jar: jar},
		session: sess,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	if c.debug != nil {
		c.http.Transport = debugTransport(c.debug, c.http.Transport)
	}
	return c, nil
}

func (c *Client) Session() *session.Session { return c.session }

func (c *Client) BaseURL() string { return c.baseURL }

func debugTransport(w io.Writer, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	colors := false
	if f, ok := w.(*os.File); ok {
		colors = term.IsTerminal(int(f.Fd()))
	}
	logger := &httpretty.Logger{
		Time:            true,
		TLS:             false,
		Colors:          colors,
		RequestHeader:   true,
		RequestBody:     true,
		ResponseHeader:  true,
		ResponseBody:    true,
		Formatters:      []httpretty.Formatter{&httpretty.JSONFormatter{}},
		MaxResponseBody: 50000,
	}
	logger.SetOutput(w)
	return logger.RoundTripper(next)
}

// request describes one API call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
}

// do runs r with the 401 policy: one token refresh, one retry, and on a
// second failure the session is torn down and ErrSessionExpired returned.
func (c *Client) do(ctx context.Context, r request) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
		payload = b
	}

	public := isPublic(r.path)
	token := ""
	if !public {
		token = c.session.Token()
		if token == "" {
			return ErrNotAuthenticated
		}
	}

	resp, err := c.send(ctx, r, payload, token)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && !public {
		drain(resp)
		fresh, rerr := c.refresh(ctx, token)
		if rerr != nil {
			c.expire(ctx)
			return ErrSessionExpired
		}
		resp, err = c.send(ctx, r, payload, fresh)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			c.expire(ctx)
			return ErrSessionExpired
		}
	}
	defer resp.Body.Close()
	return c.decode(resp, r)
}

func (c *Client) send(ctx context.Context, r request, payload []byte, token string) (*http.Response, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", r.method, r.path, err)
	}
	reqID := util.NewID("req")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return nil, &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	c.logger.Debug("api request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", reqID),
	)
	return resp, nil
}

func (c *Client) decode(resp *http.Response, r request) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &TransportError{Method: r.method, Path: r.path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, r.path, data)
	}
	switch out := r.out.(type) {
	case nil:
		return nil
	case *[]byte:
		*out = data
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, r.out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func responseError(status int, path string, data []byte) *APIError {
	apiErr := &APIError{Status: status, Path: path, Code: http.StatusText(status)}
	var body errorResponse
	if json.Unmarshal(data, &body) == nil {
		if body.Code != "" {
			apiErr.Code = body.Code
		} else if body.Error != "" {
			apiErr.Code = body.Error
		}
		apiErr.Message = body.Message
		if body.Path != "" {
			apiErr.Path = body.Path
		}
		apiErr.Details = body.Errors
	} else if text := strings.TrimSpace(string(data)); text != "" && len(text) < 300 && !strings.HasPrefix(text, "<") {
		apiErr.Message = text
	}
	return apiErr
}

// refresh exchanges the stale token for a new one. Concurrent callers share
// one request; a caller whose token was already replaced gets the new one
// without another round trip. A failed refresh ends the session.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := c.refreshes.Do("refresh", func() (any, error) {
		current := c.session.Token()
		if current == "" {
			return "", ErrNotAuthenticated
		}
		if current != stale {
			return current, nil
		}
		body := map[string]string{}
		if rt := c.session.RefreshToken(); rt != "" {
			body["refreshToken"] = rt
		}
		var out tokenResponse
		err := c.do(ctx, request{method: http.MethodPost, path: refreshPath, body: body, out: &out})
		if err == nil && out.Token == "" {
			err = errors.New("refresh response carried no token")
		}
		if err != nil {
			// The session must be gone before the flight returns; a late
			// 401 then finds no token instead of refreshing again.
			c.logger.Warn("token refresh failed", zap.Error(err))
			c.expire(ctx)
			return "", err
		}
		if err := c.session.Rotate(context.WithoutCancel(ctx), out.Token, out.RefreshToken); err != nil {
			c.logger.Warn("persist refreshed token", zap.Error(err))
		}
		return out.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// expire clears the session once and notifies the callback.
func (c *Client) expire(ctx context.Context) {
	c.expireMu.Lock()
	wasActive := c.session.Authenticated()
	if wasActive {
		if err := c.session.End(context.WithoutCancel(ctx), "session expired"); err != nil {
			c.logger.Warn("clear session", zap.Error(err))
		}
	}
	c.expireMu.Unlock()
	if wasActive && c.onExpired != nil {
		c.onExpired(LoginPath)
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
}

func escape(segment string) string {
	return url.PathEscape(segment)
}
