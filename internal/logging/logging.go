// Package logging is a small structured-logging shim over the
// teacher's original debug-gated log.Printf (utils/debug_print.go),
// adding [debug]/[info]/[error] level prefixes. Call sites pass
// Printf-style format strings and arguments.
package logging

import "log"

var debugMode bool

// SetDebuggingMode turns verbose diagnostic output on or off.
func SetDebuggingMode(status bool) {
	debugMode = status
}

// Debugf prints only when debug mode is enabled, matching the
// teacher's PrintDebug.
func Debugf(format string, args ...interface{}) {
	if debugMode {
		log.Printf("[debug] "+format, args...)
	}
}

// Infof always prints; used for merge/compaction lifecycle events a
// store operator would want on by default.
func Infof(format string, args ...interface{}) {
	log.Printf("[info] "+format, args...)
}

// Errorf always prints, for recoverable errors surfaced by background
// work (e.g. a failed merge) that can't simply be returned.
func Errorf(format string, args ...interface{}) {
	log.Printf("[error] "+format, args...)
}
