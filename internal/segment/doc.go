// Package segment splits text into addressable spans for granular detection.
//
// Three granularities are supported: line, sentence and chunk. Every segment
// carries byte offsets into the input. Segments exclude surrounding
// whitespace, and the whitespace between them is recovered from the offsets,
// so Reconstruct always returns the input byte for byte.
//
// Spans shorter than a minimum rune length are merged into a neighbour so
// that noisy fragments (a heading, a lone word) are not scored on their own.
package segment
