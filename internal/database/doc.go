// Package database provides the SQLite history of detections and pipeline
// runs.
//
// The history is optional: it is opened only when a history directory is
// configured. Texts are never stored. Each record keeps a SHA3-256 digest
// of the analyzed text, so repeated submissions of the same text can be
// correlated without retaining its content. Pipeline runs are stored with
// their step metadata, minus the step texts.
//
// The store uses modernc.org/sqlite, a CGO-free driver, with a single
// connection and WAL journaling.
package database
