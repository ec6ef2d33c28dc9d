// Package logging is a small leveled wrapper over stdlib log, switched by
// the LOG_LEVEL environment variable.
//
// Grounded directly on the kolabpad teacher pack's pkg/logger: stdlib log
// with an env-driven level switch, not a structured third-party logger.
// apex-build-platform elsewhere in the pack reaches for zap, but this
// client follows its chosen teacher for this concern rather than the rest
// of the pack (see DESIGN.md).
package logging

import (
	"log"
	"os"
	"strings"
)

// Level is a logging verbosity threshold.
type Level int

const (
	LevelError Level = iota
	LevelInfo
	LevelDebug
)

var current = LevelInfo

// Init reads LOG_LEVEL ("debug", "info", "error") and sets the package's
// active level; unset or unrecognized values default to info.
func Init() {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		current = LevelDebug
	case "error":
		current = LevelError
	default:
		current = LevelInfo
	}
}

// SetLevel overrides the active level directly, for tests.
func SetLevel(l Level) { current = l }

// Debug logs at debug level.
func Debug(format string, v ...interface{}) {
	if current >= LevelDebug {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Info logs at info level.
func Info(format string, v ...interface{}) {
	if current >= LevelInfo {
		log.Printf("[INFO] "+format, v...)
	}
}

// Error always logs, regardless of level.
func Error(format string, v ...interface{}) {
	log.Printf("[ERROR] "+format, v...)
}
