package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalArchive stores artifacts by sha256 digest on local disk.
type LocalArchive struct {
	root string
}

var _ Archive = (*LocalArchive)(nil)

func NewLocalArchive(root string) (*LocalArchive, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create archive root: %w", err)
	}
	return &LocalArchive{root: root}, nil
}

func (a *LocalArchive) Put(_ context.Context, name string, r io.Reader) (obj Object, err error) {
	tmpDir := filepath.Join(a.root, "tmp")
	if err := os.MkdirAll(tmpDir, 0o700); err != nil {
		return Object{}, fmt.Errorf("create tmp dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(tmpDir, "artifact-*")
	if err != nil {
		return Object{}, fmt.Errorf("create tmp file: %w", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmpFile, h), r)
	if err != nil {
		return Object{}, fmt.Errorf("write artifact: %w", err)
	}
	hexDigest := hex.EncodeToString(h.Sum(nil))
	obj = Object{
		Name:   name,
		Digest: "sha256:" + hexDigest,
		Size:   n,
		Key:    digestKey(hexDigest),
	}
	absPath := filepath.Join(a.root, filepath.FromSlash(obj.Key))

	if err := os.MkdirAll(filepath.Dir(absPath), 0o700); err != nil {
		return Object{}, fmt.Errorf("create artifact dir: %w", err)
	}
	if _, statErr := os.Stat(absPath); statErr == nil {
		_ = os.Remove(tmpName)
		return obj, nil
	}

	if err := tmpFile.Close(); err != nil {
		return Object{}, fmt.Errorf("close tmp file: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		return Object{}, fmt.Errorf("move artifact: %w", err)
	}
	return obj, nil
}

func (a *LocalArchive) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(a.root, filepath.FromSlash(key)))
}
