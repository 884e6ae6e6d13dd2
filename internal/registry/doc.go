// Package registry holds the catalog of detector and generator models.
//
// The registry is built once at startup and is read-only afterwards, so it
// can be shared by every request without locking. It answers three kinds of
// questions: what a model is (Get), which models exist for a role (List,
// TopN), and which generator fits a goal (Recommended). Selection resolves a
// caller's choice of models into a concrete, de-duplicated id list before any
// model is invoked.
package registry
