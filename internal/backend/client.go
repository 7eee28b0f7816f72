package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/pkg/logger"
)

const maxResponseBytes = 8 << 20

// Options configures a Client. Zero values get safe defaults.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	Timeout        time.Duration
	AuthCheckPaths []string
	Terminator     Terminator
	Logger         *slog.Logger
}

// Client calls the hackathon backend on behalf of the session in ctx.
type Client struct {
	baseURL        string
	http           *http.Client
	authCheckPaths []string
	terminator     Terminator
	log            *slog.Logger
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	paths := opts.AuthCheckPaths
	if len(paths) == 0 {
		paths = DefaultAuthCheckPaths
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           hc,
		authCheckPaths: paths,
		terminator:     opts.Terminator,
		log:            logger.Or(opts.Logger),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
}

type Response struct {
	Status int
	Header http.Header
	Body   []byte

	// Terminated is set when this response ended the caller's session.
	Terminated        bool
	TerminationReason string
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.Status >= 200 && r.Status < 300 }

// Err converts a non-2xx response into an *APIError.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &APIError{Status: r.Status, Detail: detailFrom(r.Body, r.Status)}
}

// Do sends req with the session bearer from ctx.
//
// The gateway owns Authorization: a caller supplied value is dropped, and
// the bearer is attached only when the context carries an access token.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.baseURL == "" {
		return nil, ErrBaseURLNotConfigured
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.baseURL + ensureLeadingSlash(req.Path)
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	httpReq.Header.Del("Authorization")
	httpReq.Header.Del("Cookie")
	token, explicit := explicitToken(ctx)
	if !explicit {
		token = auth.AccessToken(ctx)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Method: method, Path: req.Path, Err: err}
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header, Body: raw}
	if c.shouldTerminate(ctx, resp.StatusCode, req.Path) {
		s, _ := auth.SessionFrom(ctx)
		t := Termination{SessionID: s.ID, Path: req.Path, Reason: ReasonAPIUnauthorized}
		c.log.Info("backend rejected session on auth check",
			"path", req.Path, "session_id", s.ID, "page", CurrentPage(ctx))
		c.terminator.Terminate(ctx, t)
		out.Terminated = true
		out.TerminationReason = t.Reason
	}
	return out, nil
}

// DoJSON runs Do and decodes a 2xx body into dst. Non-2xx becomes *APIError.
func (c *Client) DoJSON(ctx context.Context, req Request, dst any) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return resp, err
	}
	if dst == nil || len(resp.Body) == 0 {
		return resp, nil
	}
	if err := decodeJSON(resp.Body, dst); err != nil {
		return resp, fmt.Errorf("decode %s response: %w", req.Path, err)
	}
	return resp, nil
}

func ensureLeadingSlash(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

var errEmptyBody = errors.New("empty body")
