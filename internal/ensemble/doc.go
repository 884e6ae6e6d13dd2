// Package ensemble combines per-model detection verdicts into one result.
//
// The aggregation is a weighted mean of AI probabilities. A model's weight is
// its configured override, or the inverse of its performance rank, so better
// ranked detectors count more. When any contributing model has no weight, or
// every weight is equal, the plain mean is used instead. Verdicts are sorted
// by model id first, so the result does not depend on the order in which the
// detectors finished.
package ensemble
