package proxy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"hackathon-gateway/internal/auth"
	"hackathon-gateway/internal/backend"
)

const maxRelayBytes = 8 << 20

var droppedForwardHeaders = map[string]bool{
	"Host":                true,
	"Accept-Encoding":     true,
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Proxy-Connection":    true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

func skipForwardHeader(k string) bool {
	return droppedForwardHeaders[http.CanonicalHeaderKey(k)]
}

// Forwarder relays a raw request body to the backend.
type Forwarder struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Relayed is the backend's answer, passed back to the browser as-is.
type Relayed struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Relayed) ContentType() string {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/json"
}

// Forward sends raw to path with the caller's end-to-end headers. Host,
// hop-by-hop headers and Accept-Encoding stay behind; the transport
// negotiates compression itself and hands back decoded bodies.
// The session bearer is added only when the caller sent no Authorization.
func (f Forwarder) Forward(ctx context.Context, method, path string, raw []byte, header http.Header) (*Relayed, error) {
	base := strings.TrimRight(f.BaseURL, "/")
	if base == "" {
		return nil, backend.ErrBaseURLNotConfigured
	}
	target := strings.TrimRight(base+path, "/")

	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build forward request: %w", err)
	}
	for k, vs := range header {
		if skipForwardHeader(k) {
			continue
		}
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Authorization") == "" {
		if token := auth.AccessToken(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	hc := f.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &backend.TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &backend.TransportError{Method: method, Path: path, Err: err}
	}
	return &Relayed{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}
