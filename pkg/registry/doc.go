// Package registry coordinates stub registration and request resolution.
//
// A Registry holds an ordered list of stubs and a set of client hooks.
// While started, hooks redirect outgoing requests to ResponseFor, which
// scans the stubs in registration order and returns the response of the
// first match. Registration order is match priority: the earliest matching
// stub wins, regardless of how specific later stubs are.
//
// An unmatched request is a hard failure: ResponseFor returns an
// *UnexpectedRequestError carrying near-miss diffs against the closest
// registered stubs, so a missing stub surfaces immediately in the failing
// test instead of leaking a real network call.
//
// The registry is an explicitly constructed object, not ambient global
// state. Tests build one (usually through pkg/stubbing), register hooks,
// and tear it down with Stop and Clear.
package registry
