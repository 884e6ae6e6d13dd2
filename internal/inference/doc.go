// Package inference defines the boundary between the orchestration layer and
// the models themselves.
//
// A detector is a Scorer returning the probability that a text is AI
// authored. A generator is a Generator turning text into new text. A Loader
// makes a model resident. A Provider maps model ids to these
// implementations. Nothing in this package knows how inference is done; the
// backend package talks to remote inference servers and the rewrite package
// implements in-process models.
//
// Call wraps a single model invocation with a per-call timeout and turns its
// failures into model.ErrInference errors.
package inference
