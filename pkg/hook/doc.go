// Package hook bridges net/http clients into the registry.
//
// A RoundTripper wraps a client's real transport. While the registry is
// started it translates each outgoing request into the neutral request
// interface, resolves it against the registered stubs, and delivers the
// canned response (after any configured delay) without touching the
// network. While stopped, requests pass through to the real transport
// untouched.
//
// ClientHook ties a RoundTripper to a specific *http.Client and implements
// registry.Hook, so Registry.Start and Stop install and remove the
// interception on every registered client.
package hook
