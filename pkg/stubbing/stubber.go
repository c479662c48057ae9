package stubbing

import (
	"net/http"
	"strings"
	"testing"

	"github.com/getstubd/stubd/pkg/hook"
	"github.com/getstubd/stubd/pkg/matcher"
	"github.com/getstubd/stubd/pkg/registry"
	"github.com/getstubd/stubd/pkg/requestlog"
)

// Stubber owns a registry and a hooked HTTP client for one test.
type Stubber struct {
	t      testing.TB
	reg    *registry.Registry
	client *http.Client
}

// New creates a Stubber with a fresh registry, starts interception, and
// registers cleanup (stop + clear) on the test.
func New(t testing.TB, opts ...registry.Option) *Stubber {
	t.Helper()
	return NewWithRegistry(t, registry.New(opts...))
}

// NewWithRegistry is like New but uses a caller-provided registry, for
// tests that inject their own coordinator.
func NewWithRegistry(t testing.TB, reg *registry.Registry) *Stubber {
	t.Helper()

	client := &http.Client{}
	reg.RegisterHook(hook.NewClientHook(reg, client))
	reg.Start()
	t.Cleanup(func() {
		reg.Stop()
		reg.Clear()
	})

	return &Stubber{t: t, reg: reg, client: client}
}

// Client returns an *http.Client whose requests resolve against the
// registered stubs.
func (s *Stubber) Client() *http.Client {
	return s.client
}

// Registry returns the underlying registry, for hooking further clients or
// direct control.
func (s *Stubber) Registry() *registry.Registry {
	return s.reg
}

// Hook installs interception on an additional, caller-owned client.
func (s *Stubber) Hook(client *http.Client) {
	s.reg.RegisterHook(hook.NewClientHook(s.reg, client))
}

// StubRequest starts a stub for the given method and URL matcher. Narrow
// it with the builder's With* methods and finish with AndReturn,
// AndReturnRawResponse, or AndFailWithError — the terminal call registers
// the stub.
func (s *Stubber) StubRequest(method string, url matcher.Matcher) *RequestBuilder {
	s.t.Helper()
	return newRequestBuilder(s.t, s.reg, method, url)
}

// StubURL is shorthand for stubbing an exact method and URL.
func (s *Stubber) StubURL(method, url string) *RequestBuilder {
	s.t.Helper()
	return s.StubRequest(method, matcher.String(url))
}

// Requests returns every intercepted request, oldest first.
func (s *Stubber) Requests() []requestlog.Entry {
	return s.reg.History().List()
}

// LastRequest returns the most recently intercepted request.
// Fails the test when nothing was intercepted.
func (s *Stubber) LastRequest() requestlog.Entry {
	s.t.Helper()
	entry, ok := s.reg.History().Last()
	if !ok {
		s.t.Fatal("no requests were intercepted")
	}
	return entry
}

// RequireCalled fails the test unless at least one intercepted request
// with the given method and URL was answered by a stub.
func (s *Stubber) RequireCalled(method, url string) {
	s.t.Helper()
	for _, e := range s.Requests() {
		if strings.EqualFold(e.Method, method) && e.URL == url && e.Matched() {
			return
		}
	}
	s.t.Fatalf("expected a stubbed call to %s %s, got none", method, url)
}

// RequireNotCalled fails the test if any request with the given method and
// URL was intercepted, matched or not.
func (s *Stubber) RequireNotCalled(method, url string) {
	s.t.Helper()
	for _, e := range s.Requests() {
		if strings.EqualFold(e.Method, method) && e.URL == url {
			s.t.Fatalf("expected no call to %s %s, got one", method, url)
		}
	}
}

// CallCount returns how many intercepted requests a given stub answered.
func (s *Stubber) CallCount(stubID string) int {
	count := 0
	for _, e := range s.Requests() {
		if e.StubID == stubID {
			count++
		}
	}
	return count
}
