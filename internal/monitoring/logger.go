// Package monitoring holds the diagnostic logger shared by the store, the run
// controller and the oracle adapters.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Runf logs a line tagged with the run it belongs to, so interleaved output
// from concurrent runs stays attributable.
func Runf(run string, format string, v ...interface{}) {
	Logf("[%s] "+format, append([]interface{}{run}, v...)...)
}
