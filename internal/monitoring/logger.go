// Package monitoring holds the diagnostic logger shared by the calibration
// packages.
package monitoring

import "log"

// Logger is a printf-style logging function.
type Logger func(format string, v ...interface{})

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf Logger = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f Logger) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Component returns a logger that prefixes every line with "[name] " and
// writes through whatever Logf is current at call time.
func Component(name string) Logger {
	prefix := "[" + name + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
