package hook

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/getstubd/stubd/pkg/registry"
	"github.com/getstubd/stubd/pkg/stub"
)

// RoundTripper intercepts requests for a registry. It implements
// http.RoundTripper and can be set directly as a client's Transport.
type RoundTripper struct {
	registry *registry.Registry
	next     http.RoundTripper
}

// NewRoundTripper creates a transport that resolves requests against reg
// while it is started, and delegates to next otherwise. A nil next falls
// back to http.DefaultTransport.
func NewRoundTripper(reg *registry.Registry, next http.RoundTripper) *RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &RoundTripper{registry: reg, next: next}
}

// RoundTrip implements http.RoundTripper.
func (t *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.registry.Started() {
		return t.next.RoundTrip(req)
	}

	sreq, err := stub.FromNative(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.registry.ResponseFor(sreq)
	if err != nil {
		return nil, err
	}

	if err := replayDelay(req, resp.Delay); err != nil {
		return nil, err
	}

	if resp.Failed() {
		return nil, resp.Err
	}

	return buildResponse(req, resp), nil
}

// replayDelay waits out a configured delay, giving up early only when the
// request context expires.
func replayDelay(req *http.Request, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

// buildResponse converts a stub response into the client-native form.
func buildResponse(req *http.Request, resp *stub.Response) *http.Response {
	header := make(http.Header, len(resp.Headers))
	for name, value := range resp.Headers {
		header.Set(name, value)
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}
}

// ClientHook installs interception on a specific *http.Client and restores
// the original transport on uninstall. It implements registry.Hook.
type ClientHook struct {
	registry *registry.Registry
	client   *http.Client
	saved    http.RoundTripper
	active   bool
}

// NewClientHook creates a hook for client. Register it with
// registry.RegisterHook so Start and Stop toggle the interception.
func NewClientHook(reg *registry.Registry, client *http.Client) *ClientHook {
	return &ClientHook{registry: reg, client: client}
}

// Install swaps the client's transport for an intercepting one. Idempotent.
func (h *ClientHook) Install() {
	if h.active {
		return
	}
	h.saved = h.client.Transport
	h.client.Transport = NewRoundTripper(h.registry, h.saved)
	h.active = true
}

// Uninstall restores the client's original transport. Idempotent.
func (h *ClientHook) Uninstall() {
	if !h.active {
		return
	}
	h.client.Transport = h.saved
	h.saved = nil
	h.active = false
}
