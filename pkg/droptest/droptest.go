package droptest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
)

// Loop is a reactive.Dispatcher that runs dispatched functions inline,
// serialized under a mutex. It stands in for a live session's event loop:
// run-to-completion semantics without a goroutine of its own.
type Loop struct {
	mu sync.Mutex
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{}
}

// Dispatch runs fn immediately, serialized with every other dispatched
// function. Safe to call from any goroutine.
func (l *Loop) Dispatch(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// Run is Dispatch under a test-facing name. Use it for the test's own
// interactions with the control so they serialize with async callbacks.
func (l *Loop) Run(fn func()) {
	l.Dispatch(fn)
}

// Eventually polls cond on the loop until it returns true or a second
// passes.
func Eventually(t *testing.T, loop *Loop, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		loop.Run(func() { ok = cond() })
		if ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

// Candidates builds a Candidate batch from filenames, with a fixed size
// and a MIME type guessed from the suffix.
func Candidates(names ...string) []dropzone.Candidate {
	batch := make([]dropzone.Candidate, len(names))
	for i, name := range names {
		batch[i] = dropzone.Candidate{Name: name, Size: 1024, Type: "text/csv"}
	}
	return batch
}

// ScriptedUploader is a dropzone.UploadFunc source with a scripted
// outcome. Each call records the batch it received, replays the
// configured progress values, then returns Err.
type ScriptedUploader struct {
	// Progress values reported, in order, before returning.
	Progress []float64

	// Err is the final outcome. Nil means success.
	Err error

	// Block, when non-nil, is closed by the test to release the upload.
	// Until then the uploader holds after reporting progress, keeping
	// the control observable in its processing state.
	Block chan struct{}

	mu    sync.Mutex
	calls [][]dropzone.File
}

// Upload is the dropzone.UploadFunc.
func (u *ScriptedUploader) Upload(ctx context.Context, files []dropzone.File, progress func(float64)) error {
	u.mu.Lock()
	batch := make([]dropzone.File, len(files))
	copy(batch, files)
	u.calls = append(u.calls, batch)
	u.mu.Unlock()

	for _, v := range u.Progress {
		progress(v)
	}
	if u.Block != nil {
		select {
		case <-u.Block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return u.Err
}

// Calls returns the batches received so far.
func (u *ScriptedUploader) Calls() [][]dropzone.File {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([][]dropzone.File, len(u.calls))
	copy(out, u.calls)
	return out
}

// FailWith returns an uploader that fails with the given message.
func FailWith(msg string) *ScriptedUploader {
	return &ScriptedUploader{Err: errors.New(msg)}
}
