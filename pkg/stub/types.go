// Package stub provides the core data model: the neutral request interface,
// the stubbed request pattern, and the canned response attached to it.
package stub

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/getstubd/stubd/pkg/matcher"
)

// HTTPRequest is the neutral, read-only view of an outgoing request that
// matching operates on. Any HTTP client can be bridged into the library by
// adapting its native request type to these four capabilities.
type HTTPRequest interface {
	// URL returns the full request URL.
	URL() *url.URL

	// Method returns the HTTP method.
	Method() string

	// Header returns the request headers.
	Header() http.Header

	// Body returns the complete request body, or nil when there is none.
	Body() []byte
}

// Request is a registered stub: a pattern describing which requests it
// intercepts, and the response delivered when it does. Build one through
// pkg/stubbing, pkg/config, or New; once handed to a registry it must not
// be mutated.
type Request struct {
	// ID uniquely identifies the stub, for request-log correlation.
	ID string

	// Name is an optional human-readable label used in diagnostics.
	Name string

	// Method is the HTTP method to intercept. Compared case-insensitively.
	Method string

	// URL matches the full request URL.
	URL matcher.Matcher

	// Headers maps canonical header names to the matcher each observed
	// value must satisfy. A stubbed header that is absent from the request
	// is a mismatch.
	Headers map[string]matcher.Matcher

	// Body optionally constrains the request body.
	Body matcher.Matcher

	// BodyJSONPath maps JSONPath expressions to the value each must
	// resolve to in a JSON request body. All conditions must hold.
	BodyJSONPath map[string]any

	// Response is delivered when the stub matches.
	Response *Response
}

// New creates a stub for the given method and URL matcher with a fresh ID.
// Narrow it via SetHeader/SetBody before registering.
func New(method string, url matcher.Matcher) *Request {
	return &Request{
		ID:     uuid.NewString(),
		Method: method,
		URL:    url,
	}
}

// SetHeader adds a header constraint. Names are canonicalized so lookups
// are case-insensitive.
func (r *Request) SetHeader(name string, m matcher.Matcher) {
	if r.Headers == nil {
		r.Headers = make(map[string]matcher.Matcher)
	}
	r.Headers[textproto.CanonicalMIMEHeaderKey(name)] = m
}

// SetBody sets the body constraint.
func (r *Request) SetBody(m matcher.Matcher) {
	r.Body = m
}

// Label returns the stub's name if set, otherwise a method+pattern summary.
func (r *Request) Label() string {
	if r.Name != "" {
		return r.Name
	}
	if r.URL != nil {
		return fmt.Sprintf("%s %s", r.Method, r.URL)
	}
	return r.Method
}

// Response is the canned reply attached to a stub. It is either a normal
// HTTP response (status, headers, body) or a configured failure (Err) —
// never both. Use the constructors to keep the variants exclusive.
type Response struct {
	// StatusCode is the HTTP status to deliver.
	StatusCode int

	// Headers are the response headers.
	Headers map[string]string

	// Body is the response body.
	Body []byte

	// Delay postpones delivery after a match, simulating latency.
	Delay time.Duration

	// Err, when set, makes the stub report a client-level error instead
	// of a response.
	Err error
}

// NewResponse creates a normal response with the given status code.
func NewResponse(statusCode int) *Response {
	return &Response{StatusCode: statusCode}
}

// DefaultResponse is the response delivered by a stub registered without
// one: an empty 200.
func DefaultResponse() *Response {
	return &Response{StatusCode: http.StatusOK}
}

// NewFailureResponse creates a failure response: the intercepted call
// reports err the way its transport reports network errors.
func NewFailureResponse(err error) *Response {
	return &Response{Err: err}
}

// NewRawResponse parses a complete HTTP/1.x response (status line, headers,
// body) from its wire form. The blob is parsed eagerly so malformed
// fixtures fail at registration, not at request time.
func NewRawResponse(raw []byte) (*Response, error) {
	parsed, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(raw)), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid raw response: %w", err)
	}
	defer func() { _ = parsed.Body.Close() }()

	body, err := io.ReadAll(parsed.Body)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("invalid raw response body: %w", err)
	}

	resp := &Response{
		StatusCode: parsed.StatusCode,
		Body:       body,
	}
	if len(parsed.Header) > 0 {
		resp.Headers = make(map[string]string, len(parsed.Header))
		for name := range parsed.Header {
			resp.Headers[name] = parsed.Header.Get(name)
		}
	}
	return resp, nil
}

// Failed reports whether this is a failure response.
func (r *Response) Failed() bool {
	return r.Err != nil
}

// SetHeader sets a response header.
func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
}
