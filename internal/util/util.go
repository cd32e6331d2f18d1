// Package util holds internal utility (or helper) functions.
package util

import (
	"runtime"

	"k8s.io/klog/v2"
)

// GetStackTrace returns a formatted stack trace of the goroutine that calls it.
func GetStackTrace() string {
	// Stack returns a formatted stack trace of the goroutine that calls it.
	// It writes into the given byte slice and truncates the trace if the
	// slice is too small. A small buffer is usually enough.
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false) // `false` means just the current goroutine
	return string(buf[:n])
}

// ReportError reports an error to the log, but otherwise ignores it.
func ReportError(err error) {
	if err != nil {
		klog.Warningf("Unhandled error: %+v", err)
	}
}

// RecoverAndLog is meant to be called directly by a `defer` statement at
// the top of a long-lived background goroutine (a socket worker, a
// heartbeat loop). It turns a panic into a logged error plus stack trace
// instead of taking down the whole process, since one malformed message
// should end that one worker, not the caller's program.
func RecoverAndLog(workerName string) {
	if r := recover(); r != nil {
		klog.Errorf("jpyclient: panic in %s: %v\n%s", workerName, r, GetStackTrace())
	}
}
