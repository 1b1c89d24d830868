// Package applog is a thin leveled wrapper around the standard log package,
// matching the teacher's call-site texture (plain log.Printf/fmt.Printf,
// "Warning: ..." / "Failed to ..." message prefixes in
// game/session/manager.go) instead of adopting a structured logging
// library no example in the corpus imports.
package applog

import (
	"log"
	"os"
)

var std = log.New(os.Stderr, "", log.LstdFlags)

// Infof logs an informational message.
func Infof(format string, args ...any) {
	std.Printf("INFO "+format, args...)
}

// Warnf logs a non-fatal warning, the shape STORAGE_WARN and DB_WARN use.
func Warnf(format string, args ...any) {
	std.Printf("WARN "+format, args...)
}

// Errorf logs an error that does not itself terminate the process.
func Errorf(format string, args ...any) {
	std.Printf("ERROR "+format, args...)
}

// Fatalf logs at error severity and exits 1, for CONFIG_ERROR/FATAL_IO.
func Fatalf(format string, args ...any) {
	std.Printf("FATAL "+format, args...)
	os.Exit(1)
}
