// Package logger provides structured logging built on zerolog.
//
// A single Logger interface is used throughout the application so that
// components can be tested with a silent logger. The package maintains a
// global instance configured once at startup via Initialize; components
// that are constructed before that point fall back to a default
// info-level console logger.
package logger
