// Package logger provides structured logging for rediswire.
//
// It wraps the standard library log/slog:
//
//   - logger.go: logger configuration and the process-wide default
//   - context.go: context-aware logging with the profile and server address
//   - redact.go: masking of Redis credentials in attributes and commands
//
// Features:
//
//   - JSON and text output formats
//   - Runtime-adjustable level
//   - Automatic credential masking
package logger
