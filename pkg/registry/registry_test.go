package registry

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/pkg/matcher"
	"github.com/getstubd/stubd/pkg/stub"
)

func testRequest(t *testing.T, method, url string) stub.HTTPRequest {
	t.Helper()
	native, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	req, err := stub.FromNative(native)
	require.NoError(t, err)
	return req
}

func newStub(method, url string, status int, body string) *stub.Request {
	s := stub.New(method, matcher.String(url))
	resp := stub.NewResponse(status)
	resp.Body = []byte(body)
	s.Response = resp
	return s
}

func TestResponseForFirstMatchWins(t *testing.T) {
	reg := New()

	// Both stubs match the same request; the earlier registration wins
	// even though the later one is registered with more constraints.
	first := newStub("GET", "http://x/a", 200, "first")
	second := stub.New("GET", matcher.String("http://x/a"))
	second.SetHeader("Accept", matcher.String("*/*"))
	second.Response = stub.NewResponse(500)
	reg.Add(first)
	reg.Add(second)

	resp, err := reg.ResponseFor(testRequest(t, "GET", "http://x/a"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(resp.Body))
}

func TestResponseForNthStub(t *testing.T) {
	reg := New()
	reg.Add(newStub("GET", "http://x/a", 200, "a"))
	reg.Add(newStub("GET", "http://x/b", 201, "b"))
	reg.Add(newStub("GET", "http://x/c", 202, "c"))

	resp, err := reg.ResponseFor(testRequest(t, "GET", "http://x/b"))
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "b", string(resp.Body))
}

func TestResponseForUnmatched(t *testing.T) {
	reg := New()
	reg.Add(newStub("GET", "http://x/a", 200, "ok"))

	_, err := reg.ResponseFor(testRequest(t, "GET", "http://x/b"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedRequest)

	var unexpected *UnexpectedRequestError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, "GET", unexpected.Method)
	assert.Equal(t, "http://x/b", unexpected.URL)
	require.NotEmpty(t, unexpected.Closest, "the method-matching stub should appear as a near miss")
	assert.Contains(t, unexpected.Closest[0].Reason, "url expected")
}

func TestResponseForNoStubs(t *testing.T) {
	reg := New()

	_, err := reg.ResponseFor(testRequest(t, "GET", "http://x/a"))
	require.Error(t, err)

	var unexpected *UnexpectedRequestError
	require.ErrorAs(t, err, &unexpected)
	assert.Empty(t, unexpected.Closest)
	assert.Contains(t, unexpected.Error(), "no stubs came close")
}

func TestClearThenAnyRequestIsUnmatched(t *testing.T) {
	reg := New()
	reg.Add(newStub("GET", "http://x/a", 200, "ok"))
	reg.Clear()

	_, err := reg.ResponseFor(testRequest(t, "GET", "http://x/a"))
	assert.ErrorIs(t, err, ErrUnexpectedRequest)
}

func TestStopStartPreservesStubs(t *testing.T) {
	reg := New()
	reg.Add(newStub("GET", "http://x/a", 200, "ok"))

	reg.Start()
	reg.Stop()
	reg.Start()

	assert.Len(t, reg.Stubs(), 1)
	resp, err := reg.ResponseFor(testRequest(t, "GET", "http://x/a"))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestFailureStub(t *testing.T) {
	reg := New()
	s := stub.New("GET", matcher.String("http://x/err"))
	s.Response = stub.NewFailureResponse(errors.New("connection refused"))
	reg.Add(s)

	resp, err := reg.ResponseFor(testRequest(t, "GET", "http://x/err"))
	require.NoError(t, err, "a configured failure is an expected outcome, not a resolution error")
	assert.True(t, resp.Failed())
	assert.EqualError(t, resp.Err, "connection refused")
}

func TestStubWithoutResponseGetsDefault(t *testing.T) {
	reg := New()
	reg.Add(stub.New("GET", matcher.String("http://x/a")))

	resp, err := reg.ResponseFor(testRequest(t, "GET", "http://x/a"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type fakeHook struct {
	installs   int
	uninstalls int
}

func (h *fakeHook) Install()   { h.installs++ }
func (h *fakeHook) Uninstall() { h.uninstalls++ }

func TestStartStopTogglesHooks(t *testing.T) {
	reg := New()
	h := &fakeHook{}
	reg.RegisterHook(h)

	assert.False(t, reg.Started())

	reg.Start()
	assert.True(t, reg.Started())
	assert.Equal(t, 1, h.installs)

	// Idempotent: a second Start must not reinstall.
	reg.Start()
	assert.Equal(t, 1, h.installs)

	reg.Stop()
	assert.False(t, reg.Started())
	assert.Equal(t, 1, h.uninstalls)

	reg.Stop()
	assert.Equal(t, 1, h.uninstalls)
}

func TestRegisterHookWhileStarted(t *testing.T) {
	reg := New()
	reg.Start()

	h := &fakeHook{}
	reg.RegisterHook(h)
	assert.Equal(t, 1, h.installs, "hooks registered after Start install immediately")
}

func TestHistoryRecordsOutcomes(t *testing.T) {
	reg := New()
	matched := newStub("GET", "http://x/a", 200, "ok")
	reg.Add(matched)

	_, err := reg.ResponseFor(testRequest(t, "GET", "http://x/a"))
	require.NoError(t, err)
	_, err = reg.ResponseFor(testRequest(t, "GET", "http://x/b"))
	require.Error(t, err)

	entries := reg.History().List()
	require.Len(t, entries, 2)

	assert.Equal(t, matched.ID, entries[0].StubID)
	assert.Equal(t, 200, entries[0].ResponseStatus)
	assert.True(t, entries[0].Matched())

	assert.False(t, entries[1].Matched())
	assert.True(t, strings.HasPrefix(entries[1].Error, "unexpected request"))
}

func TestConcurrentAccess(t *testing.T) {
	reg := New()
	reg.Add(newStub("GET", "http://x/a", 200, "ok"))

	req := testRequest(t, "GET", "http://x/a")
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = reg.ResponseFor(req)
				reg.Add(newStub("GET", "http://x/extra", 200, ""))
				reg.Start()
				reg.Stop()
			}
		}()
	}
	wg.Wait()
}
