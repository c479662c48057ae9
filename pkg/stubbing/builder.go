package stubbing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/getstubd/stubd/pkg/matcher"
	"github.com/getstubd/stubd/pkg/registry"
	"github.com/getstubd/stubd/pkg/stub"
)

// RequestBuilder accumulates the request side of a stub. Each With* call
// narrows the pattern; a terminal And* call attaches the response and
// registers the completed stub.
type RequestBuilder struct {
	t   testing.TB
	reg *registry.Registry
	req *stub.Request
	err error // first error encountered during building
}

func newRequestBuilder(t testing.TB, reg *registry.Registry, method string, url matcher.Matcher) *RequestBuilder {
	return &RequestBuilder{
		t:   t,
		reg: reg,
		req: stub.New(method, url),
	}
}

// setError records the first error encountered during building.
// Subsequent errors are ignored (first error wins).
func (b *RequestBuilder) setError(err error) {
	if b.err == nil {
		b.err = err
	}
}

// WithName labels the stub for diagnostics and request-log correlation.
func (b *RequestBuilder) WithName(name string) *RequestBuilder {
	b.req.Name = name
	return b
}

// WithHeader requires the named request header to satisfy m.
// Names compare case-insensitively.
func (b *RequestBuilder) WithHeader(name string, m matcher.Matcher) *RequestBuilder {
	b.req.SetHeader(name, m)
	return b
}

// WithHeaders requires every listed header to carry the exact given value.
func (b *RequestBuilder) WithHeaders(headers map[string]string) *RequestBuilder {
	for name, value := range headers {
		b.req.SetHeader(name, matcher.String(value))
	}
	return b
}

// WithBody requires the request body to satisfy m.
func (b *RequestBuilder) WithBody(m matcher.Matcher) *RequestBuilder {
	b.req.SetBody(m)
	return b
}

// WithBodyJSONPath requires the JSON request body to resolve path to
// expected. Repeated calls accumulate conditions; all must hold.
func (b *RequestBuilder) WithBodyJSONPath(path string, expected any) *RequestBuilder {
	if b.req.BodyJSONPath == nil {
		b.req.BodyJSONPath = make(map[string]any)
	}
	b.req.BodyJSONPath[path] = expected
	return b
}

// AndReturn attaches a normal response with the given status code and
// registers the stub. The returned ResponseBuilder refines the response;
// refinements apply as long as they happen before the stub first matches.
func (b *RequestBuilder) AndReturn(statusCode int) *ResponseBuilder {
	b.t.Helper()
	resp := stub.NewResponse(statusCode)
	b.register(resp)
	return &ResponseBuilder{t: b.t, resp: resp}
}

// AndReturnRawResponse parses a complete HTTP/1.x wire response and
// registers the stub with it. A malformed blob fails the test immediately.
func (b *RequestBuilder) AndReturnRawResponse(raw []byte) *ResponseBuilder {
	b.t.Helper()
	resp, err := stub.NewRawResponse(raw)
	if err != nil {
		b.setError(err)
		resp = stub.NewResponse(0)
	}
	b.register(resp)
	return &ResponseBuilder{t: b.t, resp: resp}
}

// AndFailWithError registers the stub with a failure response: the
// intercepted call reports err instead of receiving a response.
func (b *RequestBuilder) AndFailWithError(err error) {
	b.t.Helper()
	b.register(stub.NewFailureResponse(err))
}

func (b *RequestBuilder) register(resp *stub.Response) {
	b.t.Helper()
	if b.err != nil {
		b.t.Fatalf("invalid stub for %s: %v", b.req.Label(), b.err)
		return
	}
	b.req.Response = resp
	b.reg.Add(b.req)
}

// ResponseBuilder refines the response attached by AndReturn or
// AndReturnRawResponse.
type ResponseBuilder struct {
	t    testing.TB
	resp *stub.Response
}

// WithHeader sets a response header.
func (b *ResponseBuilder) WithHeader(name, value string) *ResponseBuilder {
	b.resp.SetHeader(name, value)
	return b
}

// WithHeaders sets multiple response headers at once.
func (b *ResponseBuilder) WithHeaders(headers map[string]string) *ResponseBuilder {
	for name, value := range headers {
		b.resp.SetHeader(name, value)
	}
	return b
}

// WithBody sets the response body. Strings and byte slices are used as-is.
func (b *ResponseBuilder) WithBody(body any) *ResponseBuilder {
	b.t.Helper()
	switch v := body.(type) {
	case string:
		b.resp.Body = []byte(v)
	case []byte:
		b.resp.Body = v
	default:
		b.t.Fatalf("WithBody: unsupported body type %T (use WithJSON for structs)", body)
	}
	return b
}

// WithJSON encodes body as JSON and sets Content-Type, unless one was
// already set.
func (b *ResponseBuilder) WithJSON(body any) *ResponseBuilder {
	b.t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		b.t.Fatalf("WithJSON: %v", err)
		return b
	}
	b.resp.Body = data
	if _, ok := b.resp.Headers["Content-Type"]; !ok {
		b.resp.SetHeader("Content-Type", "application/json")
	}
	return b
}

// WithDelay postpones delivery of the response, simulating latency.
func (b *ResponseBuilder) WithDelay(d time.Duration) *ResponseBuilder {
	b.t.Helper()
	if d < 0 {
		b.t.Fatalf("WithDelay: negative delay %v", d)
		return b
	}
	b.resp.Delay = d
	return b
}

// WithDelayString is WithDelay for duration strings like "150ms".
func (b *ResponseBuilder) WithDelayString(s string) *ResponseBuilder {
	b.t.Helper()
	d, err := time.ParseDuration(s)
	if err != nil {
		b.t.Fatalf("WithDelayString: invalid duration %q: %v", s, err)
		return b
	}
	return b.WithDelay(d)
}
