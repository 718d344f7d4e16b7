// Package live binds a dropzone control to a WebSocket session.
//
// Each connection gets its own Session with a single event loop
// goroutine. Client events (drop, browse, remove, clear, submit) are
// read off the socket, queued, and applied to the control on that loop;
// async work such as uploader completions and progress reports reaches
// the loop through Dispatch. After every processed event the session
// pushes a JSON state snapshot, so the client renders whatever the
// control's state says and keeps no logic of its own.
package live
