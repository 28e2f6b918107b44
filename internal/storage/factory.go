package storage

import (
	"context"
	"fmt"
	"strings"
)

// Options selects and configures an archive backend.
type Options struct {
	Backend   string
	LocalRoot string
	S3Bucket  string
	S3Prefix  string
	S3Client  S3ClientOptions
}

// New returns the configured archive, or nil for BackendNone.
func New(ctx context.Context, opts Options) (Archive, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendNone:
		return nil, nil
	case BackendLocal:
		if strings.TrimSpace(opts.LocalRoot) == "" {
			return nil, fmt.Errorf("local archive root cannot be empty")
		}
		return NewLocalArchive(opts.LocalRoot)
	case BackendS3:
		if strings.TrimSpace(opts.S3Bucket) == "" {
			return nil, fmt.Errorf("s3 archive bucket cannot be empty")
		}
		client, err := NewS3Client(ctx, opts.S3Client)
		if err != nil {
			return nil, err
		}
		return NewS3Archive(S3Options{Client: client, Bucket: opts.S3Bucket, Prefix: opts.S3Prefix}), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", opts.Backend)
	}
}
