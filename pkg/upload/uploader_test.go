package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropkit-go/dropkit/pkg/dropzone"
	"github.com/dropkit-go/dropkit/pkg/upload"
)

func stage(t *testing.T, store upload.Store, filename, content string) dropzone.File {
	t.Helper()
	tempID, err := store.Save(context.Background(), filename, "text/csv", int64(len(content)), bytes.NewReader([]byte(content)))
	require.NoError(t, err)
	return dropzone.File{Name: filename, Size: int64(len(content)), Ref: tempID}
}

func TestBatchUploader_ArchivesBatch(t *testing.T) {
	ctx := context.Background()
	store, err := upload.NewDiskStore(t.TempDir(), 0, 0)
	require.NoError(t, err)
	archiveDir := t.TempDir()
	archive, err := upload.NewDiskArchive(archiveDir)
	require.NoError(t, err)

	var gotBatchID string
	uploader := upload.NewBatchUploader(store, archive, nil)
	uploader.OnArchived = func(batchID string, files []*upload.File) {
		gotBatchID = batchID
		require.Len(t, files, 2)
	}

	batch := []dropzone.File{
		stage(t, store, "a.csv", "a,b\n1,2\n"),
		stage(t, store, "b.csv", "c,d\n3,4\n"),
	}

	var progress []float64
	err = uploader.Upload(ctx, batch, func(v float64) { progress = append(progress, v) })
	require.NoError(t, err)

	require.Equal(t, []float64{50, 100}, progress)
	require.NotEmpty(t, gotBatchID)

	data, err := os.ReadFile(filepath.Join(archiveDir, gotBatchID, "a.csv"))
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n", string(data))

	// Claimed temp files are consumed.
	_, err = store.Claim(ctx, batch[0].Ref)
	require.ErrorIs(t, err, upload.ErrNotFound)
}

func TestBatchUploader_MissingRef(t *testing.T) {
	store, _ := upload.NewDiskStore(t.TempDir(), 0, 0)
	archive, _ := upload.NewDiskArchive(t.TempDir())
	uploader := upload.NewBatchUploader(store, archive, nil)

	batch := []dropzone.File{{Name: "ghost.csv", Ref: "does-not-exist"}}
	err := uploader.Upload(context.Background(), batch, func(float64) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "ghost.csv")
}

func TestBatchUploader_EmptyRef(t *testing.T) {
	store, _ := upload.NewDiskStore(t.TempDir(), 0, 0)
	archive, _ := upload.NewDiskArchive(t.TempDir())
	uploader := upload.NewBatchUploader(store, archive, nil)

	batch := []dropzone.File{{Name: "a.csv"}}
	err := uploader.Upload(context.Background(), batch, func(float64) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing upload reference")
}

func TestBatchUploader_RejectsNonCSVRef(t *testing.T) {
	// A forged Ref can point at any staged object; the uploader
	// re-checks the filename on claim.
	store, _ := upload.NewDiskStore(t.TempDir(), 0, 0)
	archive, _ := upload.NewDiskArchive(t.TempDir())
	uploader := upload.NewBatchUploader(store, archive, nil)

	tempID, err := store.Save(context.Background(), "evil.exe", "application/octet-stream", 4, bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	batch := []dropzone.File{{Name: "a.csv", Ref: tempID}}
	err = uploader.Upload(context.Background(), batch, func(float64) {})
	require.ErrorIs(t, err, upload.ErrNotCSV)
}

func TestBatchUploader_EmptyBatch(t *testing.T) {
	store, _ := upload.NewDiskStore(t.TempDir(), 0, 0)
	archive, _ := upload.NewDiskArchive(t.TempDir())
	uploader := upload.NewBatchUploader(store, archive, nil)

	err := uploader.Upload(context.Background(), nil, func(float64) {})
	require.Error(t, err)
}

type failingArchive struct{}

func (failingArchive) Put(context.Context, string, *upload.File) error {
	return errors.New("archive unavailable")
}

func TestBatchUploader_ArchiveFailure(t *testing.T) {
	store, _ := upload.NewDiskStore(t.TempDir(), 0, 0)
	uploader := upload.NewBatchUploader(store, failingArchive{}, nil)

	batch := []dropzone.File{stage(t, store, "a.csv", "a,b\n")}
	err := uploader.Upload(context.Background(), batch, func(float64) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "archiving a.csv")
}

func TestDiskArchive_StripsPathFromFilename(t *testing.T) {
	archiveDir := t.TempDir()
	archive, err := upload.NewDiskArchive(archiveDir)
	require.NoError(t, err)

	f := &upload.File{
		Filename: "../escape.csv",
		Reader:   io.NopCloser(bytes.NewReader([]byte("a,b\n"))),
	}
	require.NoError(t, archive.Put(context.Background(), "batch1", f))

	_, err = os.Stat(filepath.Join(archiveDir, "batch1", "escape.csv"))
	require.NoError(t, err)
}
