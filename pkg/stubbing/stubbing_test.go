package stubbing

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/pkg/matcher"
	"github.com/getstubd/stubd/pkg/registry"
)

func TestStubAndFetch(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/a").
		AndReturn(200).
		WithBody("ok")

	resp, err := s.Client().Get("http://x/a")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestUnstubbedURLFailsWithDiff(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/a").
		AndReturn(200).
		WithBody("ok")

	_, err := s.Client().Get("http://x/b")
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrUnexpectedRequest)
	assert.Contains(t, err.Error(), "url expected", "the diff should point at the URL field")
}

func TestHeaderAndBodyNarrowing(t *testing.T) {
	s := New(t)
	s.StubRequest("POST", matcher.String("http://x/users")).
		WithHeader("Content-Type", matcher.Fold("application/json")).
		WithBody(matcher.MustRegex(`"name":\s*"ada"`)).
		AndReturn(201).
		WithJSON(map[string]any{"id": 1})

	req, err := http.NewRequest(http.MethodPost, "http://x/users", strings.NewReader(`{"name": "ada"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "APPLICATION/JSON")

	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	// Same URL without the stubbed header must not match.
	bare, err := http.NewRequest(http.MethodPost, "http://x/users", strings.NewReader(`{"name": "ada"}`))
	require.NoError(t, err)
	_, err = s.Client().Do(bare)
	assert.ErrorIs(t, err, registry.ErrUnexpectedRequest)
}

func TestJSONPathNarrowing(t *testing.T) {
	s := New(t)
	s.StubRequest("POST", matcher.String("http://x/orders")).
		WithBodyJSONPath("$.order.total", 99.5).
		AndReturn(202)

	resp, err := s.Client().Post("http://x/orders", "application/json",
		strings.NewReader(`{"order":{"total":99.5}}`))
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)
}

func TestEarlierRegistrationWins(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/a").AndReturn(200).WithBody("first")
	s.StubURL("GET", "http://x/a").AndReturn(500).WithBody("second")

	resp, err := s.Client().Get("http://x/a")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "first", string(body))
	assert.Equal(t, 200, resp.StatusCode)
}

func TestAndFailWithError(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/err").
		AndFailWithError(errors.New("connection refused"))

	resp, err := s.Client().Get("http://x/err")
	require.Error(t, err, "a failure stub must never produce a response")
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAndReturnRawResponse(t *testing.T) {
	raw := "HTTP/1.1 301 Moved Permanently\r\n" +
		"Location: http://x/new\r\n" +
		"Content-Length: 0\r\n" +
		"\r\n"

	s := New(t)
	s.StubURL("HEAD", "http://x/old").
		AndReturnRawResponse([]byte(raw))

	req, err := http.NewRequest(http.MethodHead, "http://x/old", nil)
	require.NoError(t, err)

	// Disable redirect following so the raw 301 comes back as-is.
	client := s.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	assert.Equal(t, 301, resp.StatusCode)
	assert.Equal(t, "http://x/new", resp.Header.Get("Location"))
}

func TestResponseDelay(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/slow").
		AndReturn(200).
		WithDelay(40 * time.Millisecond)

	start := time.Now()
	resp, err := s.Client().Get("http://x/slow")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestGlobStub(t *testing.T) {
	s := New(t)
	s.StubRequest("GET", matcher.MustGlob("http://x/api/**")).
		AndReturn(200).
		WithBody("matched")

	resp, err := s.Client().Get("http://x/api/v1/users/42")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestRequestHistory(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/a").AndReturn(200)
	s.StubURL("POST", "http://x/b").AndReturn(201)

	_, err := s.Client().Get("http://x/a")
	require.NoError(t, err)
	_, err = s.Client().Post("http://x/b", "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)

	entries := s.Requests()
	require.Len(t, entries, 2)
	assert.Equal(t, "GET", entries[0].Method)
	assert.Equal(t, "POST", entries[1].Method)
	assert.Equal(t, "payload", entries[1].Body)

	s.RequireCalled("GET", "http://x/a")
	s.RequireCalled("POST", "http://x/b")
	s.RequireNotCalled("DELETE", "http://x/a")

	last := s.LastRequest()
	assert.Equal(t, "http://x/b", last.URL)
}

func TestHookAdditionalClient(t *testing.T) {
	s := New(t)
	s.StubURL("GET", "http://x/a").AndReturn(200).WithBody("ok")

	other := &http.Client{}
	s.Hook(other)

	resp, err := other.Get("http://x/a")
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCallCount(t *testing.T) {
	s := New(t)
	builder := s.StubURL("GET", "http://x/a")
	builder.AndReturn(200)

	stubs := s.Registry().Stubs()
	require.Len(t, stubs, 1)

	for i := 0; i < 3; i++ {
		_, err := s.Client().Get("http://x/a")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, s.CallCount(stubs[0].ID))
}
