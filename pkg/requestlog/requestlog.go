// Package requestlog captures intercepted requests for later inspection.
//
// This serves test authors who need to verify what their code actually
// sent: which requests were issued, which stub answered each one, and what
// came back. It is distinct from operational logging, which uses log/slog.
//
// The package is a leaf with no internal dependencies, so any package can
// import it without creating cycles.
package requestlog

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxBodyBytes caps the body excerpt stored per entry.
const maxBodyBytes = 10 * 1024

// Entry captures one intercepted request and its outcome.
type Entry struct {
	// ID uniquely identifies the log entry.
	ID string `json:"id"`

	// Timestamp is when the request was intercepted.
	Timestamp time.Time `json:"timestamp"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// URL is the full request URL.
	URL string `json:"url"`

	// Headers are the request headers.
	Headers map[string][]string `json:"headers,omitempty"`

	// Body is the request body, truncated to 10KB.
	Body string `json:"body,omitempty"`

	// BodySize is the original body size in bytes.
	BodySize int `json:"bodySize"`

	// StubID identifies the stub that answered (empty if none matched).
	StubID string `json:"stubId,omitempty"`

	// ResponseStatus is the delivered status code (0 for failures).
	ResponseStatus int `json:"responseStatus,omitempty"`

	// Error holds the error message for unmatched requests and
	// failure-configured stubs.
	Error string `json:"error,omitempty"`
}

// Matched reports whether a stub answered this request.
func (e *Entry) Matched() bool {
	return e.StubID != ""
}

// Store is a bounded, concurrency-safe in-memory request history.
// When the bound is reached the oldest entries are evicted.
type Store struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// NewStore creates a store retaining at most max entries.
// A non-positive max falls back to 1000.
func NewStore(max int) *Store {
	if max <= 0 {
		max = 1000
	}
	return &Store{max: max}
}

// Record appends an entry, assigning an ID and timestamp if unset and
// truncating oversized bodies.
func (s *Store) Record(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.BodySize == 0 {
		e.BodySize = len(e.Body)
	}
	if len(e.Body) > maxBodyBytes {
		e.Body = e.Body[:maxBodyBytes]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if len(s.entries) > s.max {
		s.entries = s.entries[len(s.entries)-s.max:]
	}
	return e
}

// List returns all retained entries, oldest first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Last returns the most recent entry, or false when the store is empty.
func (s *Store) Last() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
