package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getstubd/stubd/pkg/stub"
)

// FieldResult describes whether a single stubbed field matched the request.
type FieldResult struct {
	Field    string `json:"field"`
	Matched  bool   `json:"matched"`
	Score    int    `json:"score"`
	MaxScore int    `json:"maxScore"`
	Expected any    `json:"expected,omitempty"`
	Actual   any    `json:"actual,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// HeaderDetail describes the match result for a single header.
type HeaderDetail struct {
	Key      string `json:"key"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Matched  bool   `json:"matched"`
}

// NearMiss is the field-by-field difference between a request and a stub
// that did not (fully) match it. Used for diagnostics only — never for
// match decisions.
type NearMiss struct {
	StubID           string        `json:"stubId"`
	StubName         string        `json:"stubName,omitempty"`
	Score            int           `json:"score"`
	MaxPossibleScore int           `json:"maxPossibleScore"`
	MatchPercentage  int           `json:"matchPercentage"`
	Fields           []FieldResult `json:"fields"`
	Reason           string        `json:"reason"`
}

// Empty reports whether every compared field matched.
func (n *NearMiss) Empty() bool {
	for i := range n.Fields {
		if !n.Fields[i].Matched {
			return false
		}
	}
	return true
}

// Breakdown evaluates every field the stub specifies against the request
// without short-circuiting, returning per-field match/mismatch results.
func Breakdown(s *stub.Request, r stub.HTTPRequest) *NearMiss {
	if s == nil || r == nil {
		return &NearMiss{}
	}

	result := &NearMiss{StubID: s.ID, StubName: s.Name}

	// Method
	if s.Method != "" {
		matched := MatchMethod(s.Method, r.Method())
		result.addField(FieldResult{
			Field:    "method",
			Matched:  matched,
			Score:    scoreIf(matched, ScoreMethod),
			MaxScore: ScoreMethod,
			Expected: s.Method,
			Actual:   r.Method(),
		})
	}

	// URL
	if s.URL != nil {
		actual := urlString(r)
		matched := s.URL.Matches(actual)
		result.addField(FieldResult{
			Field:    "url",
			Matched:  matched,
			Score:    scoreIf(matched, ScoreURL),
			MaxScore: ScoreURL,
			Expected: s.URL.String(),
			Actual:   actual,
		})
	}

	// Headers
	if len(s.Headers) > 0 {
		allMatched := true
		headerScore := 0
		var details []HeaderDetail
		for name, m := range s.Headers {
			actual := r.Header().Get(name)
			matched := actual != "" && m.Matches(actual)
			if actual == "" {
				actual = "(missing)"
			}
			if matched {
				headerScore += ScoreHeader
			} else {
				allMatched = false
			}
			details = append(details, HeaderDetail{
				Key:      name,
				Expected: m.String(),
				Actual:   actual,
				Matched:  matched,
			})
		}
		sort.Slice(details, func(i, j int) bool { return details[i].Key < details[j].Key })
		result.addField(FieldResult{
			Field:    "headers",
			Matched:  allMatched,
			Score:    headerScore,
			MaxScore: len(s.Headers) * ScoreHeader,
			Details:  details,
		})
	}

	// Body
	if s.Body != nil {
		matched := s.Body.Matches(string(r.Body()))
		result.addField(FieldResult{
			Field:    "body",
			Matched:  matched,
			Score:    scoreIf(matched, ScoreBody),
			MaxScore: ScoreBody,
			Expected: s.Body.String(),
			Actual:   truncate(string(r.Body()), 200),
		})
	}

	// Body JSONPath
	if len(s.BodyJSONPath) > 0 {
		jpResult := MatchJSONPath(s.BodyJSONPath, r.Body())
		matched := jpResult.Score > 0
		result.addField(FieldResult{
			Field:    "bodyJSONPath",
			Matched:  matched,
			Score:    jpResult.Score,
			MaxScore: len(s.BodyJSONPath) * ScoreJSONPathCondition,
			Expected: s.BodyJSONPath,
		})
	}

	if result.MaxPossibleScore > 0 {
		result.MatchPercentage = (result.Score * 100) / result.MaxPossibleScore
	}
	result.Reason = GenerateReason(result.Fields)

	return result
}

func (n *NearMiss) addField(f FieldResult) {
	n.Fields = append(n.Fields, f)
	n.Score += f.Score
	n.MaxPossibleScore += f.MaxScore
}

func scoreIf(matched bool, score int) int {
	if matched {
		return score
	}
	return 0
}

// Closest evaluates all stubs against the request and returns the top N by
// partial match score. Only stubs with at least one matched field are
// included. Called only on the unmatched path — zero overhead when a stub
// matches.
func Closest(stubs []*stub.Request, r stub.HTTPRequest, topN int) []NearMiss {
	if topN <= 0 {
		topN = 3
	}

	var candidates []NearMiss
	for _, s := range stubs {
		if s == nil {
			continue
		}
		nm := Breakdown(s, r)
		if nm.Score == 0 {
			continue
		}
		candidates = append(candidates, *nm)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].MatchPercentage > candidates[j].MatchPercentage
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}

// GenerateReason creates a human-readable explanation of why a stub
// partially matched but ultimately failed.
func GenerateReason(fields []FieldResult) string {
	if len(fields) == 0 {
		return "no fields to compare"
	}

	var matched []string
	var firstMismatch *FieldResult
	for i := range fields {
		if fields[i].Matched {
			matched = append(matched, fields[i].Field)
		} else if firstMismatch == nil {
			firstMismatch = &fields[i]
		}
	}

	if firstMismatch == nil {
		return "all specified fields matched"
	}
	if len(matched) == 0 {
		return formatMismatch(firstMismatch)
	}
	return joinFields(matched) + " matched, but " + formatMismatch(firstMismatch)
}

func formatMismatch(f *FieldResult) string {
	switch f.Field {
	case "method":
		return fmt.Sprintf("method expected %q, got %q", f.Expected, f.Actual)
	case "url":
		return fmt.Sprintf("url expected %v, got %q", f.Expected, f.Actual)
	case "headers":
		if details, ok := f.Details.([]HeaderDetail); ok {
			for _, d := range details {
				if !d.Matched {
					return fmt.Sprintf("header %s expected %s, got %q", d.Key, d.Expected, d.Actual)
				}
			}
		}
		return "header mismatch"
	case "body":
		return fmt.Sprintf("body expected %v", f.Expected)
	case "bodyJSONPath":
		return "body JSONPath condition not satisfied"
	default:
		return f.Field + " did not match"
	}
}

// joinFields joins field names with commas and "and".
func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1]
	}
}

// truncate shortens a string to maxLen, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
