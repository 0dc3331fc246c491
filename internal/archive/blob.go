package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/ronaldwang03/agent-os-sub001/pkg/api"
)

// Blob archives runs to a bucket via gocloud.dev/blob, supporting S3,
// GCS, Azure Blob Storage, and S3-compatible stores
type Blob struct {
	bucket *blob.Bucket
	prefix string
}

var _ Archiver = (*Blob)(nil)

// NewBlob opens the bucket URL and creates a blob-backed run archive
func NewBlob(ctx context.Context, bucketURL, prefix string) (*Blob, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Blob{bucket: bucket, prefix: prefix}, nil
}

func (a *Blob) Put(ctx context.Context, run *api.Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(run.ID), data, nil)
}

func (a *Blob) Get(ctx context.Context, id api.RunID) (*api.Run, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, err
	}

	var run api.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (a *Blob) Close() error {
	return a.bucket.Close()
}

func (a *Blob) keyFor(id api.RunID) string {
	return fmt.Sprintf("%s/runs/%s.json", a.prefix, id)
}
