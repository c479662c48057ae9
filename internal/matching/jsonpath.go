package matching

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/jp"
)

// JSONPathResult contains the results of JSONPath matching.
type JSONPathResult struct {
	// Score is ScoreJSONPathCondition per matched condition, 0 on any miss.
	Score int

	// Matched holds the value each JSONPath expression resolved to,
	// keyed by the expression itself.
	Matched map[string]any
}

// MatchJSONPath evaluates JSONPath conditions against a JSON body.
// All conditions must hold; a body that is not valid JSON never matches.
// A condition of the form {"exists": bool} asserts (non-)existence instead
// of comparing values.
func MatchJSONPath(conditions map[string]any, body []byte) JSONPathResult {
	if len(conditions) == 0 {
		return JSONPathResult{}
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return JSONPathResult{}
	}

	result := JSONPathResult{Matched: make(map[string]any)}
	for path, expected := range conditions {
		matched, value := matchSingleJSONPath(path, expected, data)
		if !matched {
			return JSONPathResult{}
		}
		result.Score += ScoreJSONPathCondition
		if value != nil {
			result.Matched[path] = value
		}
	}
	return result
}

// matchSingleJSONPath evaluates one condition, returning the extracted
// value on a match.
func matchSingleJSONPath(path string, expected any, data any) (bool, any) {
	expr, err := jp.ParseString(path)
	if err != nil {
		// Invalid expression: treat as no match, not as an error.
		return false, nil
	}

	results := expr.Get(data)

	if exists, ok := existenceCheck(expected); ok {
		if exists {
			if len(results) == 0 {
				return false, nil
			}
			return true, results[0]
		}
		return len(results) == 0, nil
	}

	// Wildcard paths can return several values; any equal value matches.
	for _, result := range results {
		if valuesEqual(result, expected) {
			return true, result
		}
	}
	return false, nil
}

// existenceCheck reports whether expected is an {"exists": bool} object
// and, if so, the requested existence.
func existenceCheck(expected any) (exists, ok bool) {
	m, isMap := expected.(map[string]any)
	if !isMap || len(m) != 1 {
		return false, false
	}
	b, isBool := m["exists"].(bool)
	return b, isBool
}

// valuesEqual compares two values, coercing numeric types: JSON numbers
// decode as float64 while fixture values may carry int.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == expected
	}
	if reflect.DeepEqual(actual, expected) {
		return true
	}

	an, aok := toFloat64(actual)
	en, eok := toFloat64(expected)
	if aok && eok {
		return an == en
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	default:
		return 0, false
	}
}

// ValidateJSONPathExpression validates a JSONPath expression at load time.
func ValidateJSONPathExpression(path string) error {
	if _, err := jp.ParseString(path); err != nil {
		return fmt.Errorf("invalid JSONPath expression %q: %w", path, err)
	}
	return nil
}
