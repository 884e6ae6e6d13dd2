// Package service implements the operations exposed by the humanizer CLI
// and HTTP API.
//
// A Service owns one registry, one resident model state, one detection
// session and one pipeline orchestrator, and validates every request
// before any model is invoked: texts must not be blank and must fall within
// the configured length limits (detection needs longer input than
// humanization). Lengths are counted in runes of the trimmed text.
//
// When a history store is attached, detections and pipeline runs are
// recorded after they complete. Recording failures are logged and never
// fail the request.
package service
