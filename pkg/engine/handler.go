package engine

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/getstubd/stubd/pkg/registry"
	"github.com/getstubd/stubd/pkg/stub"
)

// Handler resolves incoming server-side requests against a registry.
type Handler struct {
	Registry *registry.Registry
	Log      *slog.Logger
}

// unmatchedResponse is the JSON payload written for unexpected requests.
type unmatchedResponse struct {
	Error   string `json:"error"`
	Method  string `json:"method"`
	URL     string `json:"url"`
	Closest any    `json:"closest,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sreq, err := serverRequest(r)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp, err := h.Registry.ResponseFor(sreq)
	if err != nil {
		h.writeUnmatched(w, err)
		return
	}

	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-r.Context().Done():
			return
		}
	}

	// A failure-configured stub has no HTTP shape to write; the closest
	// server-side analogue is dropping the connection mid-response.
	if resp.Failed() {
		h.Log.Debug("delivering configured failure", "error", resp.Err)
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		http.Error(w, resp.Err.Error(), http.StatusBadGateway)
		return
	}

	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) writeUnmatched(w http.ResponseWriter, err error) {
	payload := unmatchedResponse{Error: "unexpected_request"}
	var unexpected *registry.UnexpectedRequestError
	if errors.As(err, &unexpected) {
		payload.Method = unexpected.Method
		payload.URL = unexpected.URL
		if len(unexpected.Closest) > 0 {
			payload.Closest = unexpected.Closest
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(payload)
}

// serverRequest adapts an incoming server-side request to the neutral
// interface. Server-side URLs lack scheme and host, so they are
// reconstructed from the request before matching.
func serverRequest(r *http.Request) (stub.HTTPRequest, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
	}

	full := *r.URL
	if full.Scheme == "" {
		full.Scheme = "http"
		if r.TLS != nil {
			full.Scheme = "https"
		}
	}
	if full.Host == "" {
		full.Host = r.Host
	}

	return &incomingRequest{
		url:    &full,
		method: r.Method,
		header: r.Header,
		body:   body,
	}, nil
}

type incomingRequest struct {
	url    *url.URL
	method string
	header http.Header
	body   []byte
}

func (r *incomingRequest) URL() *url.URL       { return r.url }
func (r *incomingRequest) Method() string      { return r.method }
func (r *incomingRequest) Header() http.Header { return r.header }
func (r *incomingRequest) Body() []byte        { return r.body }
