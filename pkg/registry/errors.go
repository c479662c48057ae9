package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getstubd/stubd/internal/matching"
)

// ErrUnexpectedRequest is the sentinel identifying the unexpected-request
// failure condition. Use errors.Is against errors returned by ResponseFor
// or an intercepted client call.
var ErrUnexpectedRequest = errors.New("unexpected request")

// UnexpectedRequestError reports a request no registered stub matched.
// It carries near-miss diffs against the closest candidates so the failing
// test shows which field of which stub was off.
type UnexpectedRequestError struct {
	// Method and URL identify the attempted request.
	Method string
	URL    string

	// Closest are the best partially-matching stubs, ranked by score.
	// Empty when no stub matched any field.
	Closest []matching.NearMiss
}

func (e *UnexpectedRequestError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "unexpected request: %s %s", e.Method, e.URL)
	if len(e.Closest) == 0 {
		b.WriteString(" (no stubs came close)")
		return b.String()
	}
	for _, nm := range e.Closest {
		label := nm.StubName
		if label == "" {
			label = nm.StubID
		}
		fmt.Fprintf(&b, "\n  closest stub %s (%d%%): %s", label, nm.MatchPercentage, nm.Reason)
	}
	return b.String()
}

// Unwrap makes errors.Is(err, ErrUnexpectedRequest) hold.
func (e *UnexpectedRequestError) Unwrap() error {
	return ErrUnexpectedRequest
}
