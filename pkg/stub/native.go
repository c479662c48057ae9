package stub

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// nativeRequest adapts *http.Request to the neutral HTTPRequest interface.
type nativeRequest struct {
	url    *url.URL
	method string
	header http.Header
	body   []byte
}

// FromNative captures an *http.Request as a neutral HTTPRequest. The body
// is read once and restored on the original request, so the adapter can be
// built before the request is (re)sent.
func FromNative(r *http.Request) (HTTPRequest, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	return &nativeRequest{
		url:    r.URL,
		method: r.Method,
		header: r.Header,
		body:   body,
	}, nil
}

func (r *nativeRequest) URL() *url.URL       { return r.url }
func (r *nativeRequest) Method() string      { return r.method }
func (r *nativeRequest) Header() http.Header { return r.header }
func (r *nativeRequest) Body() []byte        { return r.body }
