// Package detect runs detection sessions: it invokes several detector models
// on a text, or on every segment of a text, and combines their verdicts with
// the ensemble aggregator.
//
// Detectors are called concurrently through errgroup, with at most one
// worker per distinct detector. A detector that fails or times out is
// recorded as a model.ModelFailure and the remaining verdicts are still
// aggregated. Only when no detector produced a verdict does the session
// fail, with model.ErrEmptyEnsemble.
package detect
