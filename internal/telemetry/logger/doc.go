// Package logger provides structured logging for the secure store.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, configuration, global level
//   - context.go: context propagation and per-operation enrichment
//   - redact.go: sensitive data redaction
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime via SetLevel
//   - Automatic masking of key material, signatures, IVs and identity ids
//   - Context propagation of the current storage operation
package logger
