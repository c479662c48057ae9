package stub

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getstubd/stubd/pkg/matcher"
)

func TestNewAssignsID(t *testing.T) {
	a := New("GET", matcher.String("http://x/a"))
	b := New("GET", matcher.String("http://x/a"))

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSetHeaderCanonicalizesNames(t *testing.T) {
	s := New("GET", matcher.String("http://x/a"))
	s.SetHeader("content-type", matcher.String("application/json"))

	_, ok := s.Headers["Content-Type"]
	assert.True(t, ok, "header names should be stored canonically")
}

func TestLabel(t *testing.T) {
	s := New("GET", matcher.String("http://x/a"))
	assert.Equal(t, `GET "http://x/a"`, s.Label())

	s.Name = "fetch user"
	assert.Equal(t, "fetch user", s.Label())
}

func TestResponseVariants(t *testing.T) {
	normal := NewResponse(201)
	assert.Equal(t, 201, normal.StatusCode)
	assert.False(t, normal.Failed())

	failure := NewFailureResponse(errors.New("connection refused"))
	assert.True(t, failure.Failed())
	assert.EqualError(t, failure.Err, "connection refused")
}

func TestNewRawResponse(t *testing.T) {
	raw := "HTTP/1.1 418 I'm a teapot\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"short"

	resp, err := NewRawResponse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, 418, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Headers["Content-Type"])
	assert.Equal(t, "short", string(resp.Body))
	assert.False(t, resp.Failed())
}

func TestNewRawResponseMalformed(t *testing.T) {
	_, err := NewRawResponse([]byte("not an http response"))
	require.Error(t, err)
}

func TestDefaultResponse(t *testing.T) {
	resp := DefaultResponse()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.False(t, resp.Failed())
}

func TestFromNative(t *testing.T) {
	native, err := http.NewRequest(http.MethodPost, "https://api.example.com/users?page=2", strings.NewReader(`{"name":"ada"}`))
	require.NoError(t, err)
	native.Header.Set("Content-Type", "application/json")

	req, err := FromNative(native)
	require.NoError(t, err)

	assert.Equal(t, "POST", req.Method())
	assert.Equal(t, "https://api.example.com/users?page=2", req.URL().String())
	assert.Equal(t, "application/json", req.Header().Get("Content-Type"))
	assert.Equal(t, `{"name":"ada"}`, string(req.Body()))

	// The native body must remain readable after adaptation.
	restored, err := io.ReadAll(native.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"ada"}`, string(restored))
}

func TestFromNativeNoBody(t *testing.T) {
	native, err := http.NewRequest(http.MethodGet, "http://x/a", nil)
	require.NoError(t, err)

	req, err := FromNative(native)
	require.NoError(t, err)
	assert.Nil(t, req.Body())
}
