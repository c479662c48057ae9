// Package matcher provides the pattern-matching primitives used to decide
// whether a field of an observed HTTP request satisfies a registered stub.
//
// A Matcher is an immutable predicate over a candidate string. The package
// ships six variants:
//
//   - String: exact, case-sensitive literal
//   - Fold: case-insensitive literal
//   - Regex: regular expression (RE2 syntax)
//   - Bytes: exact byte sequence, for request bodies
//   - Glob: glob pattern with ** support, for URLs
//   - Expr: arbitrary boolean expression over the candidate value
//
// Matchers never fail at match time: an empty or absent candidate simply
// does not match, and variants that require compilation (Regex, Glob, Expr)
// validate their pattern at construction instead.
package matcher
