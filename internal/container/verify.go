package container

import (
	"fmt"
	"os"
)

// VerifyContainer re-reads the footer at path and checks it matches want
// with the given status.
func VerifyContainer(path string, want Meta, status Status) error {
	got, err := Inspect(path)
	if err != nil {
		return err
	}
	if got != want || got.Status() != status {
		return fmt.Errorf("%w: %s: got %s %+v, want %s %+v", ErrSizeMismatch, path, got.Status(), got, status, want)
	}
	return nil
}

// VerifySize checks that the file at path is exactly size bytes long.
func VerifySize(path string, size uint64) error {
	info, err := os.Stat(path)
	if err != nil {
		return &IOError{Op: "stat", Path: path, Err: err}
	}
	if uint64(info.Size()) != size {
		return fmt.Errorf("%w: %s: %d bytes, want %d", ErrSizeMismatch, path, info.Size(), size)
	}
	return nil
}
