// Package matching decides whether an observed request satisfies a stub,
// and explains near misses when nothing does.
package matching

// Match score constants. Stub selection is first-registered-wins, so these
// scores never influence which stub answers a request; they only rank
// near-miss candidates when no stub matches at all.
const (
	// ScoreMethod is the score for a method match.
	ScoreMethod = 10

	// ScoreURL is the score for a URL match.
	// Highest single-field score: a stub whose URL matches is almost
	// always the one the test author meant.
	ScoreURL = 20

	// ScoreHeader is the score for each header match.
	ScoreHeader = 10

	// ScoreBody is the score for a body match.
	ScoreBody = 15

	// ScoreJSONPathCondition is the score per matched JSONPath condition.
	ScoreJSONPathCondition = 15
)
