package registry

import (
	"log/slog"
	"sync"

	"github.com/getstubd/stubd/internal/matching"
	"github.com/getstubd/stubd/pkg/logging"
	"github.com/getstubd/stubd/pkg/requestlog"
	"github.com/getstubd/stubd/pkg/stub"
)

// Hook intercepts an HTTP client's request dispatch path. Install is
// called on Start, Uninstall on Stop; both must be safe to call twice.
type Hook interface {
	Install()
	Uninstall()
}

// Registry holds registered stubs and resolves intercepted requests.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	stubs   []*stub.Request
	hooks   []Hook
	started bool

	log     *slog.Logger
	history *requestlog.Store
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the operational logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithHistorySize bounds the request history. Defaults to 1000 entries.
func WithHistorySize(n int) Option {
	return func(r *Registry) { r.history = requestlog.NewStore(n) }
}

// New creates a stopped registry with no stubs.
func New(opts ...Option) *Registry {
	r := &Registry{
		log:     logging.Nop(),
		history: requestlog.NewStore(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start installs all registered hooks, enabling interception. Idempotent.
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	for _, h := range r.hooks {
		h.Install()
	}
	r.log.Debug("registry started", "hooks", len(r.hooks), "stubs", len(r.stubs))
}

// Stop uninstalls all hooks, disabling interception. Registered stubs are
// kept; use Clear to drop them. Idempotent.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		return
	}
	r.started = false
	for _, h := range r.hooks {
		h.Uninstall()
	}
	r.log.Debug("registry stopped")
}

// Started reports whether interception is active.
func (r *Registry) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// RegisterHook adds a client hook. If the registry is already started the
// hook is installed immediately.
func (r *Registry) RegisterHook(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, h)
	if r.started {
		h.Install()
	}
}

// Add appends a stub. No de-duplication: registering two stubs with
// overlapping patterns is allowed, and the earlier one wins.
func (r *Registry) Add(s *stub.Request) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stubs = append(r.stubs, s)
	r.log.Debug("stub registered", "stub", s.Label(), "total", len(r.stubs))
}

// Clear removes all stubs. Callable whether started or not.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stubs = nil
	r.log.Debug("stubs cleared")
}

// Stubs returns the registered stubs in registration order.
func (r *Registry) Stubs() []*stub.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*stub.Request, len(r.stubs))
	copy(out, r.stubs)
	return out
}

// History returns the request log fed by ResponseFor.
func (r *Registry) History() *requestlog.Store {
	return r.history
}

// ResponseFor resolves a request to the response of the first matching
// stub, in registration order. When no stub matches it returns an
// *UnexpectedRequestError carrying near-miss diffs against the closest
// candidates.
func (r *Registry) ResponseFor(req stub.HTTPRequest) (*stub.Response, error) {
	stubs := r.Stubs()

	entry := requestlog.Entry{
		Method:   req.Method(),
		Headers:  req.Header(),
		Body:     string(req.Body()),
		BodySize: len(req.Body()),
	}
	if u := req.URL(); u != nil {
		entry.URL = u.String()
	}

	for _, s := range stubs {
		if !matching.Matches(s, req) {
			continue
		}
		resp := s.Response
		if resp == nil {
			resp = stub.DefaultResponse()
		}
		entry.StubID = s.ID
		entry.ResponseStatus = resp.StatusCode
		if resp.Failed() {
			entry.ResponseStatus = 0
			entry.Error = resp.Err.Error()
		}
		r.history.Record(entry)
		r.log.Debug("stub matched", "method", entry.Method, "url", entry.URL, "stub", s.Label())
		return resp, nil
	}

	err := &UnexpectedRequestError{
		Method:  entry.Method,
		URL:     entry.URL,
		Closest: matching.Closest(stubs, req, 3),
	}
	entry.Error = err.Error()
	r.history.Record(entry)
	r.log.Warn("unexpected request", "method", entry.Method, "url", entry.URL, "stubs", len(stubs))
	return nil, err
}
