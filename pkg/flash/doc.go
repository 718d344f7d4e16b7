// Package flash implements a single-slot transient message channel: one
// visible message at a time, replaced by newer messages, auto-dismissed
// after a fixed duration. The dropzone control uses it to surface
// validation and upload errors.
package flash
