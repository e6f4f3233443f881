// Package monitoring holds the engine's diagnostic logger.
//
// Engine packages log through Logf rather than the log package directly so
// that batch runs, tests and the CLI can redirect or mute per-scan warnings
// without touching global log state.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a recoverable engine condition (dropped detection, rejected
// update) with a uniform prefix so warnings can be grepped out of run logs.
func Warnf(component, format string, v ...interface{}) {
	Logf("["+component+"] warning: "+format, v...)
}
