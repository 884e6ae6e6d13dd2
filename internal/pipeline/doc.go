// Package pipeline chains generator models over a text.
//
// A run feeds the output of each step into the next one. A step whose
// generator fails, times out, or returns nothing is recorded as FAILED and
// its input is carried forward, so one bad model never breaks the chain.
// Only a failed model load aborts a run.
//
// Generators that need the resident slot are invoked through
// resident.State, which swaps models on demand and keeps a swap from
// overlapping an inference call. Steps always run one after another.
package pipeline
