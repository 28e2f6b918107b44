package container

import (
	"io/fs"
	"os"
)

const (
	// ExecutableMode is owner read, write and execute.
	ExecutableMode fs.FileMode = 0o700
	// DefaultPayloadMode is applied to split payloads.
	DefaultPayloadMode fs.FileMode = 0o600
)

// MarkExecutableOwnerOnly sets owner rwx and clears group and other bits.
func MarkExecutableOwnerOnly(path string) error {
	return setMode(path, ExecutableMode)
}

func setMode(path string, mode fs.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return &IOError{Op: "chmod", Path: path, Err: err}
	}
	return nil
}
