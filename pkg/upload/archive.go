package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Archive is the durable destination for submitted batches. Claimed
// staging files are written under batchID and keep their original
// filenames.
type Archive interface {
	Put(ctx context.Context, batchID string, f *File) error
}

// DiskArchive writes batches to a local directory, one subdirectory per
// batch.
type DiskArchive struct {
	dir string
}

// NewDiskArchive creates a DiskArchive rooted at dir.
func NewDiskArchive(dir string) (*DiskArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DiskArchive{dir: dir}, nil
}

// Put copies f into <dir>/<batchID>/<filename>.
func (a *DiskArchive) Put(ctx context.Context, batchID string, f *File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	batchDir := filepath.Join(a.dir, batchID)
	if err := os.MkdirAll(batchDir, 0755); err != nil {
		return err
	}

	// Base strips any path the client smuggled into the filename.
	dst := filepath.Join(batchDir, filepath.Base(f.Filename))
	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, f.Reader); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// S3Archive writes batches to S3 under <prefix><batchID>/<filename>.
type S3Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archive creates an S3Archive.
func NewS3Archive(client *s3.Client, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

// Put uploads f under the batch key.
func (a *S3Archive) Put(ctx context.Context, batchID string, f *File) error {
	key := a.prefix + batchID + "/" + filepath.Base(f.Filename)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f.Reader,
		ContentType:   aws.String(f.ContentType),
		ContentLength: aws.Int64(f.Size),
	})
	if err != nil {
		return fmt.Errorf("s3 archive: %w", err)
	}
	return nil
}
