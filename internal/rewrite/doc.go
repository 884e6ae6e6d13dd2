// Package rewrite implements the in-process models: a rule based rewriter
// used as the local-rewriter and local-rewriter-enhanced generators, and a
// stylometric scorer used as the local-stylometric detector.
//
// Both are deterministic. Where a rule offers several alternatives the
// choice is derived from a hash of the sentence, so the same input always
// produces the same output and tests can assert exact strings.
package rewrite
