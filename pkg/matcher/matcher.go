package matcher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Matcher tests whether a candidate value satisfies a pattern.
// Implementations are immutable and safe for concurrent use.
type Matcher interface {
	// Matches reports whether the candidate satisfies the pattern.
	// An empty candidate only matches patterns that explicitly allow it
	// (e.g. String("")); it never causes an error or panic.
	Matches(candidate string) bool

	fmt.Stringer
}

// String returns a matcher for an exact, case-sensitive literal.
func String(s string) Matcher {
	return stringMatcher{literal: s}
}

// Fold returns a matcher for a case-insensitive literal.
func Fold(s string) Matcher {
	return stringMatcher{literal: s, fold: true}
}

type stringMatcher struct {
	literal string
	fold    bool
}

func (m stringMatcher) Matches(candidate string) bool {
	if m.fold {
		return strings.EqualFold(m.literal, candidate)
	}
	return m.literal == candidate
}

func (m stringMatcher) String() string {
	if m.fold {
		return fmt.Sprintf("%q (case-insensitive)", m.literal)
	}
	return fmt.Sprintf("%q", m.literal)
}

// Regex returns a matcher for a regular expression (RE2 syntax).
// The pattern is compiled once, at construction.
func Regex(pattern string) (Matcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return regexMatcher{re: re}, nil
}

// MustRegex is like Regex but panics on an invalid pattern.
// Intended for test code and package-level variables.
func MustRegex(pattern string) Matcher {
	m, err := Regex(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) Matches(candidate string) bool {
	return m.re.MatchString(candidate)
}

func (m regexMatcher) String() string {
	return fmt.Sprintf("regex %q", m.re.String())
}

// Bytes returns a matcher for an exact byte sequence.
// Candidates are compared byte-for-byte; used for request bodies.
func Bytes(b []byte) Matcher {
	cp := make([]byte, len(b))
	copy(cp, b)
	return bytesMatcher{data: cp}
}

type bytesMatcher struct {
	data []byte
}

func (m bytesMatcher) Matches(candidate string) bool {
	return bytes.Equal(m.data, []byte(candidate))
}

func (m bytesMatcher) String() string {
	const maxDisplay = 64
	if len(m.data) <= maxDisplay {
		return fmt.Sprintf("%d bytes %q", len(m.data), m.data)
	}
	return fmt.Sprintf("%d bytes %q...", len(m.data), m.data[:maxDisplay])
}

// Glob returns a matcher for a glob pattern. Supports * within a path
// segment and ** across segments, so "https://api.example.com/v1/**"
// matches any URL under that prefix.
func Glob(pattern string) (Matcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	return globMatcher{pattern: pattern}, nil
}

// MustGlob is like Glob but panics on an invalid pattern.
func MustGlob(pattern string) Matcher {
	m, err := Glob(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

type globMatcher struct {
	pattern string
}

func (m globMatcher) Matches(candidate string) bool {
	ok, err := doublestar.Match(m.pattern, candidate)
	return err == nil && ok
}

func (m globMatcher) String() string {
	return fmt.Sprintf("glob %q", m.pattern)
}

// Expr returns a matcher backed by a boolean expression. The candidate is
// bound to the variable "value", so patterns read naturally:
//
//	matcher.Expr(`value startsWith "https://" && value contains "/users/"`)
//
// The expression is compiled once, at construction.
func Expr(program string) (Matcher, error) {
	compiled, err := expr.Compile(program, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid match expression %q: %w", program, err)
	}
	return exprMatcher{source: program, program: compiled}, nil
}

// MustExpr is like Expr but panics on an invalid expression.
func MustExpr(program string) Matcher {
	m, err := Expr(program)
	if err != nil {
		panic(err)
	}
	return m
}

type exprEnv struct {
	Value string `expr:"value"`
}

type exprMatcher struct {
	source  string
	program *vm.Program
}

func (m exprMatcher) Matches(candidate string) bool {
	out, err := expr.Run(m.program, exprEnv{Value: candidate})
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}

func (m exprMatcher) String() string {
	return fmt.Sprintf("expr %q", m.source)
}
