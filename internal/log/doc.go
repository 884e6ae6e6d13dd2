// Package log builds the slog loggers used by the humanizer CLI and HTTP
// server.
//
// Every logger wraps its text or JSON handler in a SecureHandler, which
// rewrites attributes before they reach the output:
//   - secrets (backend API keys, bearer tokens, authorization headers) are
//     replaced by MaskValue
//   - the text under analysis ("text", "input_text", "output_text" and
//     similar keys) is cut to MaxTextLength runes, so request bodies never
//     land in logs in full
//
// Usage:
//
//	logger := log.NewLogger(os.Stderr, "json", verbose)
//	slog.SetDefault(logger)
//	logger.Debug("generate", "model_id", id, "input_text", text)
package log
