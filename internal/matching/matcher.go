package matching

import (
	"strings"

	"github.com/getstubd/stubd/pkg/stub"
)

// Matches reports whether the request satisfies every constraint the stub
// specifies: method equal, URL matcher satisfied, all stubbed headers
// present and matching, and any body constraints holding. Constraints the
// stub does not specify are ignored.
func Matches(s *stub.Request, r stub.HTTPRequest) bool {
	if s == nil || r == nil {
		return false
	}

	if s.Method != "" && !MatchMethod(s.Method, r.Method()) {
		return false
	}

	if s.URL != nil && !s.URL.Matches(urlString(r)) {
		return false
	}

	for name, m := range s.Headers {
		value := r.Header().Get(name)
		if value == "" || !m.Matches(value) {
			return false
		}
	}

	if s.Body != nil && !s.Body.Matches(string(r.Body())) {
		return false
	}

	if len(s.BodyJSONPath) > 0 {
		if result := MatchJSONPath(s.BodyJSONPath, r.Body()); result.Score == 0 {
			return false
		}
	}

	return true
}

// MatchMethod checks if the request method matches.
func MatchMethod(expected, actual string) bool {
	return strings.EqualFold(expected, actual)
}

// urlString renders the request URL for matching. A nil URL becomes the
// empty string, which no URL matcher is expected to accept.
func urlString(r stub.HTTPRequest) string {
	u := r.URL()
	if u == nil {
		return ""
	}
	return u.String()
}
