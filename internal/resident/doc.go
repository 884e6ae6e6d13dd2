// Package resident tracks which models are loaded.
//
// Only one generator model fits in memory at a time. State records it and
// serializes every generator swap and every generator call behind one lock,
// so no inference runs against a model that is being replaced. Detectors are
// small enough to stay loaded together; State loads each of them lazily
// under the same lock and lets detector inference run concurrently outside
// it.
package resident
