// Package logger provides structured logging for the server.
//
// It wraps the standard library log/slog:
//
//   - logger.go: handler construction and global-level control
//   - context.go: context-aware logging with client ID propagation
//   - redact.go: truncation of oversized payload values
//
// Features:
//
//   - JSON and text output formats
//   - Dynamic log level adjustment
//   - Oversized value truncation so large SET/XADD payloads don't flood logs
//   - Context propagation for per-connection fields
package logger
