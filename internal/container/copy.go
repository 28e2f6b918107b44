package container

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// CopyBufferSize bounds the memory used by every copy regardless of
// artifact size.
const CopyBufferSize = 32 * 1024

// copyBuffered copies src into dst through a fixed buffer. A negative
// limit copies until EOF; otherwise exactly limit bytes are required.
func copyBuffered(dst io.Writer, src io.Reader, limit int64) (uint64, error) {
	buf := make([]byte, CopyBufferSize)
	if limit < 0 {
		n, err := io.CopyBuffer(onlyWriter{dst}, onlyReader{src}, buf)
		return uint64(n), err
	}
	n, err := io.CopyBuffer(onlyWriter{dst}, io.LimitReader(src, limit), buf)
	if err != nil {
		return uint64(n), err
	}
	if n < limit {
		return uint64(n), io.ErrUnexpectedEOF
	}
	return uint64(n), nil
}

// onlyReader and onlyWriter hide ReadFrom/WriteTo so io.CopyBuffer
// always goes through the bounded buffer.
type onlyReader struct{ io.Reader }

type onlyWriter struct{ io.Writer }

// createExclusive opens path for writing only if it does not exist yet.
func createExclusive(path string, mode fs.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, &IOError{Op: "create", Path: path, Err: ErrOutputExists}
		}
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	return f, nil
}
