// Package logtail reads and follows the tunnel daemon's log file.
//
// Last returns the trailing complete lines of the file together with the offset
// of the last newline. Follow picks up from there and emits complete lines as the
// daemon appends them, restarting from the top when the file is truncated or
// replaced, which the controller does after every start.
package logtail
