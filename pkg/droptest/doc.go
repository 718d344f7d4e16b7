// Package droptest provides test helpers for dropzone-based components.
//
// The control's methods must run on a dispatcher loop; droptest supplies a
// Loop that serializes dispatched functions the way a live session's event
// loop would, scripted uploaders for driving the submission path, and wait
// helpers for asserting on state that settles asynchronously.
//
// Example:
//
//	loop := droptest.NewLoop()
//	dz, _ := dropzone.New(dropzone.Config{MaxFiles: 1, Upload: up.Upload}, loop)
//	loop.Run(func() { dz.Submit() })
//	droptest.Eventually(t, loop, func() bool { return !dz.Processing() })
package droptest
