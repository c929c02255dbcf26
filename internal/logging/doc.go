// Package logging provides structured logging for gt125.
//
// This package wraps a global zap logger with convenience functions used
// throughout the client, plus helpers for logging gateway frames.
//
// # Log Levels
//
//   - Debug: Frame hex dumps and per-exchange summaries
//   - Info: Poll cycles, report broadcasts, server lifecycle
//   - Warn: Failed exchanges, unreachable devices, publish errors
//   - Error: Startup failures
//
// # Silent By Default
//
// One-shot CLI commands call InitializeFromEnv, which installs a no-op logger
// unless GT125_LOG_LEVEL is set, so command output stays clean. The serve
// command calls InitializeWithFile, which always logs and can additionally
// write JSON lines to a rotated file.
//
// # Frame Logging
//
//	logging.LogFrame("192.168.1.20:4550", logging.DirectionOut, "read", frame)
//
// LogFrame is a no-op unless debug logging is enabled, so callers do not need
// to guard it.
package logging
