package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when a temp file doesn't exist.
var ErrNotFound = errors.New("upload: file not found")

// ErrExpired is returned when a temp file has outlived the staging TTL.
var ErrExpired = errors.New("upload: file expired")

// ErrTooLarge is returned when a file exceeds the size limit.
var ErrTooLarge = errors.New("upload: file too large")

// ErrNotCSV is returned when a staged file is not a CSV file.
var ErrNotCSV = errors.New("upload: not a csv file")

// Store is a temp staging backend. Files land here from the staging
// endpoint and leave through Claim or Cleanup.
type Store interface {
	// Save stages the file and returns a temp ID.
	Save(ctx context.Context, filename, contentType string, size int64, r io.Reader) (tempID string, err error)

	// Claim retrieves and consumes a staged file. A claimed temp ID is
	// gone; claiming it again returns ErrNotFound.
	Claim(ctx context.Context, tempID string) (*File, error)

	// Cleanup removes staged files older than maxAge and returns how
	// many it removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}

// File is a staged or archived file handle.
type File struct {
	// ID is the temp ID (staged) or object key (archived).
	ID string

	// Filename is the original filename from the client.
	Filename string

	// ContentType is the MIME type reported at staging time.
	ContentType string

	// Size is the file size in bytes.
	Size int64

	// Path is the local filesystem path, when backed by disk.
	Path string

	// URL is the remote URL, when backed by S3.
	URL string

	// Reader provides the file contents. The caller owns it and must
	// Close it; for disk stores closing also releases the temp file.
	Reader io.ReadCloser
}

// Close closes the file reader if open.
func (f *File) Close() error {
	if f.Reader != nil {
		return f.Reader.Close()
	}
	return nil
}

// IsCSV reports whether name carries a .csv suffix, case-insensitively.
func IsCSV(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".csv")
}

// Config holds staging handler settings.
type Config struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Default: 10MB.
	MaxFileSize int64

	// TempExpiry is how long staged files live before Cleanup removes
	// them. Default: 1 hour.
	TempExpiry time.Duration
}

// DefaultConfig returns a Config with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize: 10 << 20,
		TempExpiry:  time.Hour,
	}
}

// Handler returns the staging endpoint with default settings. Mount it
// on the router: r.Post("/upload", upload.Handler(store)).
//
// The endpoint expects a multipart form with a "file" field and answers
// with JSON:
//
//	{"temp_id": "abc123", "name": "report.csv", "size": 500000}
func Handler(store Store) http.Handler {
	return HandlerWithConfig(store, DefaultConfig())
}

// HandlerWithConfig returns a staging endpoint with custom settings.
func HandlerWithConfig(store Store, config *Config) http.Handler {
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 << 20
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Bound the body before parsing so an oversized request never
		// reaches the store.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		if !IsCSV(header.Filename) {
			http.Error(w, "Only CSV files are allowed.", http.StatusUnsupportedMediaType)
			return
		}

		tempID, err := store.Save(
			r.Context(),
			header.Filename,
			header.Header.Get("Content-Type"),
			header.Size,
			file,
		)
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Upload failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"temp_id": tempID,
			"name":    header.Filename,
			"size":    header.Size,
		})
	})
}
