// Package reactive provides the fine-grained state substrate the dropzone
// control is built on: signals (observable values), effects (side effects
// that re-run when the signals they read change), and owners (disposal
// scopes that tie the lifetime of signals, effects, and cleanup functions
// to a component instance).
//
// Reads and writes are individually thread-safe, but the intended model is
// single-threaded: all mutations happen on one event loop, and asynchronous
// work re-enters the loop through a Dispatcher. The Timeout and Interval
// helpers follow that model by delivering their callbacks via Dispatch.
package reactive
