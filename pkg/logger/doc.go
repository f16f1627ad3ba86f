// Package logger builds configured log/slog loggers.
//
// It provides a small factory over slog handlers with functional options
// for level, format, output, and static attributes, plus environment-driven
// construction via Config.
package logger
