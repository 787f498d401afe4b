// Package tunnel controls the lifecycle of the BrowserStackLocal tunnel binary.
//
// It builds the binary's start and stop command lines from an ordered option
// set, launches the daemon and reads its single JSON handshake, records the
// reported PID for liveness checks, and issues the matching stop invocation.
// Binary discovery and version metadata are supplied by narrow collaborators
// so tests can drive the controller with stub executors and fake binaries.
//
// A process normally owns one controller created with Init; New exists for
// callers that want an isolated instance.
package tunnel
