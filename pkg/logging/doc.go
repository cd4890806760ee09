// Package logging provides structured logging configuration for supamocka.
//
// This package wraps log/slog so every component logs the same way. It
// supports configurable log levels and output formats, plus an optional
// diagnostics file that receives the full results and errors of every
// tracked request.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("users synced", "count", 12)
//	logger.Error("request failed", "error", err)
//
// # Output Formats
//
//   - Text: Human-readable format for the terminal
//   - JSON: Structured format, used for the diagnostics file
//
// # Integration
//
// Components accept a *slog.Logger in their options. If no logger is
// provided, they fall back to logging.Nop().
package logging
