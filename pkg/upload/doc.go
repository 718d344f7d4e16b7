// Package upload implements the staging side of the CSV upload flow.
//
// The browser posts each selected file to the staging endpoint and gets
// back a temp ID; the dropzone control carries that ID as the file's Ref.
// On submission, a BatchUploader claims the staged temp files and moves
// them into an Archive under a fresh batch ID. Temp files that are never
// claimed are swept by Cleanup.
//
// Staging over plain HTTP keeps large bodies off the live WebSocket, so
// an upload never blocks the session's event loop or heartbeats.
//
// Store and Archive have disk and S3 backends; mix them freely, such as
// staging on local disk and archiving to S3.
//
// The staging handler enforces the CSV restriction server side, by
// filename suffix. The client-side filter on the control is a
// convenience only and is not trusted.
package upload
