package container

import (
	"fmt"
	"io"
	"os"
)

// Fuse writes host, then payload, then the footer describing them into a
// new file at outputPath. An existing outputPath is never touched. On
// failure the partially written output is removed.
func Fuse(host, payload io.Reader, outputPath string) (meta Meta, err error) {
	out, err := createExclusive(outputPath, ExecutableMode)
	if err != nil {
		return Meta{}, fmt.Errorf("fuse: %w", err)
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	hostLen, err := copyBuffered(out, host, -1)
	if err != nil {
		return Meta{}, &IOError{Op: "copy host", Path: outputPath, Err: err}
	}
	payloadLen, err := copyBuffered(out, payload, -1)
	if err != nil {
		return Meta{}, &IOError{Op: "copy payload", Path: outputPath, Err: err}
	}
	if hostLen == 0 || payloadLen == 0 {
		return Meta{}, fmt.Errorf("fuse: %w: host=%d payload=%d", ErrEmptySegment, hostLen, payloadLen)
	}

	meta, err = finish(out, outputPath, hostLen, hostLen+payloadLen)
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Initialize writes host followed by a Bare footer (start 0) into a new
// file at outputPath. outputPath must differ from the file host is read
// from; the create-exclusive open guarantees that.
func Initialize(host io.Reader, outputPath string) (meta Meta, err error) {
	out, err := createExclusive(outputPath, ExecutableMode)
	if err != nil {
		return Meta{}, fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		_ = out.Close()
		if err != nil {
			_ = os.Remove(outputPath)
		}
	}()

	hostLen, err := copyBuffered(out, host, -1)
	if err != nil {
		return Meta{}, &IOError{Op: "copy host", Path: outputPath, Err: err}
	}

	meta, err = finish(out, outputPath, 0, hostLen)
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// finish appends the footer, closes the file and marks it executable.
func finish(out *os.File, path string, start, end uint64) (Meta, error) {
	footer := EncodeFooter(start, end)
	if _, err := out.Write(footer[:]); err != nil {
		return Meta{}, &IOError{Op: "write footer", Path: path, Err: err}
	}
	if err := out.Close(); err != nil {
		return Meta{}, &IOError{Op: "close", Path: path, Err: err}
	}
	if err := MarkExecutableOwnerOnly(path); err != nil {
		return Meta{}, err
	}
	return Meta{Size: end + FooterSize, Start: start, End: end}, nil
}
