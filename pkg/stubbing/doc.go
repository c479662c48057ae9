// Package stubbing is the test-facing entry point: a fluent DSL for
// registering stubs and a Stubber that wires everything together for a
// single test.
//
// Typical use:
//
//	func TestClient(t *testing.T) {
//	    s := stubbing.New(t)
//	    s.StubRequest("GET", matcher.String("https://api.example.com/users/1")).
//	        WithHeader("Accept", matcher.String("application/json")).
//	        AndReturn(200).
//	        WithJSON(map[string]any{"id": 1, "name": "ada"})
//
//	    resp, err := s.Client().Get("https://api.example.com/users/1")
//	    // ...
//	}
//
// New starts interception immediately and registers cleanup on the test,
// so no network call can escape for the lifetime of the test. A request no
// stub matches fails with an error describing the closest registered stub.
package stubbing
