package dropzone

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropkit-go/dropkit/pkg/flash"
	"github.com/dropkit-go/dropkit/pkg/reactive"
)

// File is one staged entry. Identity is positional: two files with the
// same name are distinct entries.
type File struct {
	// Name is the filename reported by the client.
	Name string

	// Size is the file size in bytes.
	Size int64

	// Ref is an opaque handle the uploader collaborator can resolve,
	// such as a temp ID returned by the upload endpoint. The control
	// itself never interprets it.
	Ref string
}

// Candidate is a file offered to the selection surface in a drop or
// browse batch, before validation.
type Candidate struct {
	Name string
	Size int64

	// Type is the MIME type reported by the client. Validation is by
	// filename suffix; Type is carried for the collaborator's benefit.
	Type string

	Ref string
}

// UploadFunc is the injected uploader collaborator. It may call progress
// any number of times with values in [0,100]; the control applies the last
// write. It must eventually return nil (success) or an error whose message
// is surfaced to the user.
type UploadFunc func(ctx context.Context, files []File, progress func(float64)) error

// Config is read once at construction and immutable afterwards.
type Config struct {
	// Multiple mirrors the native file input's multiple attribute.
	Multiple bool

	// MaxFiles is the capacity bound. Default: 1.
	MaxFiles int

	// EnableAddMore shows the secondary add-file affordance below
	// capacity and allows multi-entry batches.
	EnableAddMore bool

	// DismissAfter overrides the error auto-dismiss duration.
	// Default: flash.DefaultDismissAfter.
	DismissAfter time.Duration

	// Upload is the uploader collaborator. Required.
	Upload UploadFunc
}

// Accept is the file filter the selection affordance advertises.
const Accept = ".csv,text/csv"

// fallbackUploadError is surfaced when the uploader fails without a message.
const fallbackUploadError = "Upload failed."

// Dropzone is the control's state container. All methods except the
// read-only accessors must be called on the dispatcher's event loop.
type Dropzone struct {
	cfg  Config
	disp reactive.Dispatcher

	owner   *reactive.Owner
	baseCtx context.Context

	files      *reactive.SliceSignal[File]
	progress   *reactive.Float64Signal
	processing *reactive.BoolSignal
	errs       *flash.Flash
}

// New creates a Dropzone. Completions, progress callbacks, and the error
// dismissal timer are all delivered through disp.
func New(cfg Config, disp reactive.Dispatcher) (*Dropzone, error) {
	if cfg.Upload == nil {
		return nil, errors.New("dropzone: Config.Upload is required")
	}
	if disp == nil {
		return nil, errors.New("dropzone: dispatcher is required")
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 1
	}

	d := &Dropzone{
		cfg:     cfg,
		disp:    disp,
		owner:   reactive.NewOwner(nil),
		baseCtx: context.Background(),
	}

	reactive.WithOwner(d.owner, func() {
		d.files = reactive.NewSliceSignal[File](nil)
		d.progress = reactive.NewFloat64Signal(0)
		d.processing = reactive.NewBoolSignal(false)
		d.errs = flash.New(disp, cfg.DismissAfter)
		reactive.OnCleanup(d.errs.Dispose)
	})

	return d, nil
}

// WithContext sets the base context passed to the uploader. Intended for
// a host binding the control to a connection lifetime.
func (d *Dropzone) WithContext(ctx context.Context) *Dropzone {
	if ctx != nil {
		d.baseCtx = ctx
	}
	return d
}

// Owner returns the reactive scope owning the control's state.
func (d *Dropzone) Owner() *reactive.Owner {
	return d.owner
}

// =============================================================================
// Selection Surface
// =============================================================================

// AcceptCandidates validates a drop or browse batch and appends it to the
// staged set. Validation is all-or-nothing per call: a batch that exceeds
// capacity or contains any non-CSV entry is rejected whole, including its
// valid entries. A successful append clears the error message.
func (d *Dropzone) AcceptCandidates(batch []Candidate) {
	if len(batch) == 0 {
		return
	}
	// The selection affordances are disabled while an upload is in
	// flight; a late event is dropped.
	if d.processing.Peek() {
		return
	}

	// Single-file selection semantics unless the configuration allows
	// multi-select, even when the client sends several entries at once.
	if !d.cfg.Multiple && !d.cfg.EnableAddMore && len(batch) > 1 {
		batch = batch[:1]
	}

	staged := d.files.Peek()
	if len(staged)+len(batch) > d.cfg.MaxFiles {
		d.errs.Set(fmt.Sprintf("You can only upload %d files.", d.cfg.MaxFiles))
		return
	}

	accepted := make([]File, 0, len(batch))
	for _, c := range batch {
		if !isCSV(c.Name) {
			d.errs.Set("Only CSV files are allowed.")
			return
		}
		accepted = append(accepted, File{Name: c.Name, Size: c.Size, Ref: c.Ref})
	}

	d.files.AppendAll(accepted...)
	d.files.Truncate(d.cfg.MaxFiles)
	d.errs.Clear()
}

// isCSV reports whether name has a .csv suffix, case-insensitively.
func isCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

// =============================================================================
// Accumulator
// =============================================================================

// Remove drops the staged entry at index, preserving the order of the
// rest, and resets progress: values tracked for a changed set are no
// longer meaningful. Ignored while processing.
func (d *Dropzone) Remove(index int) {
	if d.processing.Peek() {
		return
	}
	d.files.RemoveAt(index)
	d.progress.Set(0)
}

// Clear empties the staged set and resets progress. Ignored while
// processing.
func (d *Dropzone) Clear() {
	if d.processing.Peek() {
		return
	}
	d.files.Clear()
	d.progress.Set(0)
}

// =============================================================================
// Submission Controller
// =============================================================================

// Submit starts the upload of the staged set. The set must hold exactly
// MaxFiles entries; otherwise an error message is surfaced and the
// processing flag is never raised. Submissions are single-flight: the
// triggering affordance is disabled while processing, and a re-entrant
// call is ignored.
//
// Whatever the uploader's outcome, the staged set and progress are reset
// and the processing flag is cleared last, so the control can never be
// observed as still-processing after control returns to the user.
func (d *Dropzone) Submit() {
	if d.processing.Peek() {
		return
	}

	staged := d.files.Peek()
	if len(staged) != d.cfg.MaxFiles {
		d.errs.Set(fmt.Sprintf("Please select exactly %d files.", d.cfg.MaxFiles))
		return
	}

	d.processing.SetTrue()
	d.progress.Set(0)

	batch := make([]File, len(staged))
	copy(batch, staged)

	go func() {
		err := d.cfg.Upload(d.baseCtx, batch, func(v float64) {
			d.disp.Dispatch(func() { d.applyProgress(v) })
		})
		d.disp.Dispatch(func() { d.finish(err) })
	}()
}

// applyProgress records a progress report. Last write wins; values are
// clamped to [0,100]. Reports arriving after completion are dropped.
func (d *Dropzone) applyProgress(v float64) {
	if !d.processing.Peek() {
		return
	}
	if v < 0 {
		v = 0
	} else if v > 100 {
		v = 100
	}
	d.progress.Set(v)
}

// finish applies the submission outcome as one transition. A failed batch
// is discarded like a successful one; there is no retry and no
// preservation of the staged selection.
func (d *Dropzone) finish(err error) {
	reactive.Batch(func() {
		if err != nil {
			msg := err.Error()
			if msg == "" {
				msg = fallbackUploadError
			}
			d.errs.Set(msg)
		}
		d.files.Clear()
		d.progress.Set(0)
		// Cleared last: once observers see processing=false, the
		// reset state is already in place.
		d.processing.SetFalse()
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Files returns the staged set in insertion order.
func (d *Dropzone) Files() []File {
	return d.files.Get()
}

// Progress returns the aggregate upload progress in [0,100].
func (d *Dropzone) Progress() float64 {
	return d.progress.Get()
}

// Processing reports whether a submission is in flight.
func (d *Dropzone) Processing() bool {
	return d.processing.Get()
}

// Error returns the visible transient message, if any.
func (d *Dropzone) Error() (string, bool) {
	return d.errs.Message()
}

// Full reports whether the staged set is at capacity; the drop and browse
// affordances are disabled while it is.
func (d *Dropzone) Full() bool {
	return d.files.Len() >= d.cfg.MaxFiles
}

// CanAddMore reports whether the secondary add-file affordance applies:
// enabled by configuration, something already staged, below capacity, and
// not processing.
func (d *Dropzone) CanAddMore() bool {
	return d.cfg.EnableAddMore && d.files.Len() > 0 && !d.Full() && !d.processing.Get()
}

// AllowsMultiple reports whether the native selection affordance should
// allow multi-select.
func (d *Dropzone) AllowsMultiple() bool {
	return d.cfg.Multiple
}

// MaxFiles returns the configured capacity.
func (d *Dropzone) MaxFiles() int {
	return d.cfg.MaxFiles
}

// Dispose tears down the control's reactive scope and cancels the error
// dismissal timer. The control must not be used afterwards.
func (d *Dropzone) Dispose() {
	d.owner.Dispose()
}
