// Package logging provides structured logging for the BlueMe server.
//
// It wraps log/slog with configuration-driven level filtering, output
// format selection, and default service fields. Components receive a
// *Logger (or a narrow logging interface) at construction time.
package logging
