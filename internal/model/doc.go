// Package model defines the entities shared by the detection and humanization
// layers of humanizer.
//
// This package contains the following main types:
//   - ModelDescriptor: catalog entry for a detector or generator model
//   - Segment: an addressable span of the input text with byte offsets
//   - DetectionVerdict and EnsembleResult: per-model and combined verdicts
//   - PipelineStep and PipelineRun: the record of a humanization pipeline
//   - Error: the structured error carrying the failure kind, model and step
//
// The types live in their own package because the registry, detection,
// pipeline, highlight, report and database packages all exchange them.
// Every type is serializable to JSON so the HTTP boundary, the CLI report
// writers and the history store see one stable shape.
package model
