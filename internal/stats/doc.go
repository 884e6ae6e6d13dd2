// Package stats derives counts, percentages and timing summaries from
// already computed detection and pipeline results. Every function is pure.
package stats
