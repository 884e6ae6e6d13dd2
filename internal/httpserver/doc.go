// Package httpserver exposes the humanizer service over HTTP+JSON with gin.
//
// Every route maps onto one service operation. Failures use a uniform body
// {"error", "kind", "model_id", "step", "request_id"} whose kind mirrors the
// model error taxonomy:
//
//	invalid_input    400
//	model_not_found  404
//	load_error       503
//	inference_error  502
//	empty_ensemble   502
//
// Requests are tagged with an X-Request-Id (a UUID, generated when the
// client sends none), traced with OpenTelemetry and logged through slog.
package httpserver
