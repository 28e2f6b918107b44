// Package storage keeps a copy of every artifact the lifecycle removes,
// content-addressed by sha256, on local disk or in an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	BackendNone  = "none"
	BackendLocal = "local"
	BackendS3    = "s3"
)

// ErrNoArchive is returned when a restore is requested with archiving off.
var ErrNoArchive = errors.New("no archive backend configured")

// Object describes one archived artifact.
type Object struct {
	Name   string
	Digest string
	Size   int64
	Key    string
}

// Archive is the interface for archive backends.
type Archive interface {
	// Put stores the bytes of r and returns where they went. name is the
	// artifact's original base name and is informational only.
	Put(ctx context.Context, name string, r io.Reader) (Object, error)

	// Open retrieves a previously stored object by its key. The caller
	// must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ArchiveFile streams the file at path into a.
func ArchiveFile(ctx context.Context, a Archive, path string) (Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return Object{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	obj, err := a.Put(ctx, filepath.Base(path), f)
	if err != nil {
		return Object{}, fmt.Errorf("archive %s: %w", path, err)
	}
	return obj, nil
}

// RestoreFile copies the object stored under key to path. path must not
// exist yet; a partial file is removed on failure.
func RestoreFile(ctx context.Context, a Archive, key, path string, mode os.FileMode) (n int64, err error) {
	rc, err := a.Open(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("open archived %s: %w", key, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	n, err = io.Copy(f, rc)
	if err != nil {
		return n, fmt.Errorf("restore %s: %w", key, err)
	}
	return n, nil
}

func digestKey(hexDigest string) string {
	return filepath.ToSlash(filepath.Join("sha256", hexDigest[:2], hexDigest))
}
