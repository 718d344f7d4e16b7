package dropzone_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
	"github.com/dropkit-go/dropkit/pkg/droptest"
)

func newZone(t *testing.T, cfg dropzone.Config) (*dropzone.Dropzone, *droptest.Loop) {
	t.Helper()
	if cfg.Upload == nil {
		cfg.Upload = func(ctx context.Context, files []dropzone.File, progress func(float64)) error {
			return nil
		}
	}
	loop := droptest.NewLoop()
	var dz *dropzone.Dropzone
	var err error
	loop.Run(func() {
		dz, err = dropzone.New(cfg, loop)
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { loop.Run(dz.Dispose) })
	return dz, loop
}

func names(files []dropzone.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestNewRequiresUploader(t *testing.T) {
	loop := droptest.NewLoop()
	if _, err := dropzone.New(dropzone.Config{MaxFiles: 1}, loop); err == nil {
		t.Fatal("expected error for missing uploader")
	}
}

func TestAcceptValidBatch(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 3, EnableAddMore: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv", "b.CSV"))
	})

	loop.Run(func() {
		got := names(dz.Files())
		if len(got) != 2 || got[0] != "a.csv" || got[1] != "b.CSV" {
			t.Fatalf("files = %v", got)
		}
		if _, ok := dz.Error(); ok {
			t.Fatal("unexpected error message")
		}
	})
}

func TestMixedBatchRejectedWhole(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 3, EnableAddMore: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.AcceptCandidates(droptest.Candidates("b.csv", "notes.txt"))
	})

	loop.Run(func() {
		got := names(dz.Files())
		if len(got) != 1 || got[0] != "a.csv" {
			t.Fatalf("files = %v, want only a.csv", got)
		}
		msg, ok := dz.Error()
		if !ok || msg != "Only CSV files are allowed." {
			t.Fatalf("error = %q, %v", msg, ok)
		}
	})
}

func TestCapacityCheckedBeforeTypeFilter(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		// A non-CSV drop onto a full set reports the capacity error,
		// not the type error.
		dz.AcceptCandidates(droptest.Candidates("notes.txt"))
	})

	loop.Run(func() {
		msg, ok := dz.Error()
		if !ok || msg != "You can only upload 1 files." {
			t.Fatalf("error = %q, %v", msg, ok)
		}
		if got := names(dz.Files()); len(got) != 1 || got[0] != "a.csv" {
			t.Fatalf("files = %v", got)
		}
	})
}

func TestOversizedBatchRejectedWhole(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 2, EnableAddMore: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.AcceptCandidates(droptest.Candidates("b.csv", "c.csv"))
	})

	loop.Run(func() {
		if got := names(dz.Files()); len(got) != 1 {
			t.Fatalf("files = %v, want only a.csv", got)
		}
		msg, _ := dz.Error()
		if msg != "You can only upload 2 files." {
			t.Fatalf("error = %q", msg)
		}
	})
}

func TestSingleSelectionTruncatesBatch(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv", "b.csv"))
	})

	loop.Run(func() {
		if got := names(dz.Files()); len(got) != 1 || got[0] != "a.csv" {
			t.Fatalf("files = %v", got)
		}
	})
}

func TestMultiplePickerAcceptsWholeBatch(t *testing.T) {
	// Multi-select stays available through the picker even when the
	// add-more affordance is disabled.
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 2, Multiple: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv", "b.csv"))
	})

	loop.Run(func() {
		if got := names(dz.Files()); len(got) != 2 || got[0] != "a.csv" || got[1] != "b.csv" {
			t.Fatalf("files = %v", got)
		}
		if _, ok := dz.Error(); ok {
			t.Fatal("unexpected error")
		}
	})
}

func TestSuccessfulAppendClearsError(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 2, EnableAddMore: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("notes.txt"))
		if _, ok := dz.Error(); !ok {
			t.Fatal("expected error after rejected batch")
		}
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		if _, ok := dz.Error(); ok {
			t.Fatal("error should clear on successful append")
		}
	})
}

func TestRemovePreservesOrderAndResetsProgress(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 3, EnableAddMore: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv", "b.csv", "c.csv"))
		dz.Remove(1)
	})

	loop.Run(func() {
		got := names(dz.Files())
		if len(got) != 2 || got[0] != "a.csv" || got[1] != "c.csv" {
			t.Fatalf("files = %v", got)
		}
		if dz.Progress() != 0 {
			t.Fatalf("progress = %v, want 0", dz.Progress())
		}
	})
}

func TestRemoveOutOfRangeIgnored(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 2, EnableAddMore: true})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Remove(5)
		dz.Remove(-1)
	})

	loop.Run(func() {
		if got := names(dz.Files()); len(got) != 1 {
			t.Fatalf("files = %v", got)
		}
	})
}

func TestSubmitWithIncompleteSet(t *testing.T) {
	up := &droptest.ScriptedUploader{}
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 2, EnableAddMore: true, Upload: up.Upload})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Submit()
	})

	loop.Run(func() {
		msg, ok := dz.Error()
		if !ok || msg != "Please select exactly 2 files." {
			t.Fatalf("error = %q, %v", msg, ok)
		}
		if dz.Processing() {
			t.Fatal("processing must not start for an incomplete set")
		}
		if got := names(dz.Files()); len(got) != 1 {
			t.Fatalf("files = %v, staged set must be preserved", got)
		}
	})
	if len(up.Calls()) != 0 {
		t.Fatal("uploader must not be invoked")
	}
}

func TestSubmitSuccess(t *testing.T) {
	up := &droptest.ScriptedUploader{Progress: []float64{50, 100}}
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1, Upload: up.Upload})

	loop.Run(func() {
		dz.AcceptCandidates([]dropzone.Candidate{{Name: "report.csv", Size: 500000, Type: "text/csv"}})
		dz.Submit()
	})

	droptest.Eventually(t, loop, func() bool { return !dz.Processing() })

	loop.Run(func() {
		if got := dz.Files(); len(got) != 0 {
			t.Fatalf("files = %v, want empty after success", got)
		}
		if dz.Progress() != 0 {
			t.Fatalf("progress = %v, want 0 after completion", dz.Progress())
		}
		if msg, ok := dz.Error(); ok {
			t.Fatalf("unexpected error %q", msg)
		}
	})

	calls := up.Calls()
	if len(calls) != 1 {
		t.Fatalf("uploader invoked %d times", len(calls))
	}
	if calls[0][0].Name != "report.csv" || calls[0][0].Size != 500000 {
		t.Fatalf("uploader received %+v", calls[0])
	}
}

func TestSubmitFailureSurfacesMessage(t *testing.T) {
	up := droptest.FailWith("network timeout")
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1, Upload: up.Upload})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Submit()
	})

	droptest.Eventually(t, loop, func() bool { return !dz.Processing() })

	loop.Run(func() {
		msg, ok := dz.Error()
		if !ok || msg != "network timeout" {
			t.Fatalf("error = %q, %v", msg, ok)
		}
		// A failed batch is discarded like a successful one.
		if got := dz.Files(); len(got) != 0 {
			t.Fatalf("files = %v, want empty after failure", got)
		}
		if dz.Progress() != 0 {
			t.Fatalf("progress = %v", dz.Progress())
		}
	})
}

func TestSubmitFailureFallbackMessage(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{
		MaxFiles: 1,
		Upload: func(ctx context.Context, files []dropzone.File, progress func(float64)) error {
			return errors.New("")
		},
	})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Submit()
	})

	droptest.Eventually(t, loop, func() bool {
		msg, ok := dz.Error()
		return ok && msg == "Upload failed."
	})
}

func TestProgressClampedAndLastWriteWins(t *testing.T) {
	release := make(chan struct{})
	up := &droptest.ScriptedUploader{Progress: []float64{-10, 150, 73}, Block: release}
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1, Upload: up.Upload})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Submit()
	})

	droptest.Eventually(t, loop, func() bool { return dz.Progress() == 73 })
	close(release)
	droptest.Eventually(t, loop, func() bool { return !dz.Processing() })
}

func TestSingleFlight(t *testing.T) {
	release := make(chan struct{})
	up := &droptest.ScriptedUploader{Block: release}
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1, Upload: up.Upload})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Submit()
		dz.Submit()
		dz.Submit()
	})

	droptest.Eventually(t, loop, func() bool { return dz.Processing() })
	close(release)
	droptest.Eventually(t, loop, func() bool { return !dz.Processing() })

	if n := len(up.Calls()); n != 1 {
		t.Fatalf("uploader invoked %d times, want 1", n)
	}
}

func TestInteractionsIgnoredWhileProcessing(t *testing.T) {
	release := make(chan struct{})
	up := &droptest.ScriptedUploader{Block: release}
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1, Upload: up.Upload})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		dz.Submit()
	})
	droptest.Eventually(t, loop, func() bool { return dz.Processing() })

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("b.csv"))
		dz.Remove(0)
		dz.Clear()
		if got := names(dz.Files()); len(got) != 1 || got[0] != "a.csv" {
			t.Fatalf("files = %v, in-flight batch must be untouched", got)
		}
	})

	close(release)
	droptest.Eventually(t, loop, func() bool { return !dz.Processing() })
}

func TestErrorAutoDismiss(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1, DismissAfter: 30 * time.Millisecond})

	loop.Run(func() {
		dz.AcceptCandidates(droptest.Candidates("notes.txt"))
		if _, ok := dz.Error(); !ok {
			t.Fatal("expected visible error")
		}
	})

	droptest.Eventually(t, loop, func() bool {
		_, ok := dz.Error()
		return !ok
	})
}

func TestAffordanceAccessors(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 2, Multiple: true, EnableAddMore: true})

	loop.Run(func() {
		if !dz.AllowsMultiple() {
			t.Fatal("AllowsMultiple")
		}
		if dz.Full() || dz.CanAddMore() {
			t.Fatal("empty set: not full, nothing to add more to")
		}
		dz.AcceptCandidates(droptest.Candidates("a.csv"))
		if !dz.CanAddMore() {
			t.Fatal("one of two staged: add-more applies")
		}
		dz.AcceptCandidates(droptest.Candidates("b.csv"))
		if !dz.Full() || dz.CanAddMore() {
			t.Fatal("full set: no add-more")
		}
	})
}

func TestMaxFilesDefaultsToOne(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{})
	loop.Run(func() {
		if dz.MaxFiles() != 1 {
			t.Fatalf("MaxFiles = %d", dz.MaxFiles())
		}
	})
}

func TestEmptyBatchIgnored(t *testing.T) {
	dz, loop := newZone(t, dropzone.Config{MaxFiles: 1})
	loop.Run(func() {
		dz.AcceptCandidates(nil)
		if _, ok := dz.Error(); ok {
			t.Fatal("empty batch must not raise an error")
		}
	})
}
