// Package dropzone implements the CSV file-selection-and-upload control:
// a bounded, ordered set of staged files, all-or-nothing batch validation,
// a single-flight submission lifecycle with aggregate progress, and a
// transient auto-dismissing error message.
//
// The control is a state container updated only through its methods, which
// must all run on one event loop (see reactive.Dispatcher). The only
// suspension point is the call into the injected uploader: Submit runs it
// on its own goroutine and marshals progress and completion back onto the
// loop, so the processing flag is the sole concurrency guard the UI needs.
//
// States: Idle (accepting candidates, mutations allowed) and Processing
// (an upload is in flight, all mutating affordances disabled). Every
// submission, successful or failed, returns the control to Idle with an
// empty staged set and zero progress.
package dropzone
