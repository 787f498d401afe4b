// Package tunnelstate persists the lifecycle of a started tunnel so a later
// bslocal process can report on it or stop it.
//
// Records are TOML files guarded by an advisory lock file next to them. They
// hold the access key the tunnel was started with, so files are written 0600.
package tunnelstate
