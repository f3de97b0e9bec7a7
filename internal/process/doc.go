// Package process manages stdio-attached child processes.
//
// A Child is a subprocess whose stdout is consumed line by line and whose
// stdin accepts line writes, which is the transport the runner bridge
// uses for its JSON-line protocol. Unlike a supervised daemon, a Child is
// never restarted: an unexpected exit is reported once through OnExit and
// the caller decides what that means (for a session runner it means the
// session disconnected).
//
// Shutdown follows SIGTERM-then-SIGKILL: Stop signals the child's process
// group, waits for the configured graceful timeout, then kills the group.
//
// Thread Safety: all exported methods are safe for concurrent use.
package process
