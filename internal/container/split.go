package container

import (
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
)

// SplitTargets names the two files a container is split into.
type SplitTargets struct {
	Host        string
	Payload     string
	PayloadMode fs.FileMode
}

// Split streams bytes [0, Start) of r into t.Host and [Start, End) into
// t.Payload in a single forward pass. Both targets are created before any
// byte is copied and both are removed if the split does not complete.
func Split(r io.Reader, meta Meta, t SplitTargets) (err error) {
	if meta.Status() != Fused {
		return fmt.Errorf("split: %w: status=%s start=%d end=%d size=%d",
			ErrNotFused, meta.Status(), meta.Start, meta.End, meta.Size)
	}
	if meta.Size > math.MaxInt64 {
		return fmt.Errorf("split: %w: size=%d", ErrTooLarge, meta.Size)
	}
	if t.PayloadMode == 0 {
		t.PayloadMode = DefaultPayloadMode
	}

	hostOut, err := createExclusive(t.Host, ExecutableMode)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	payloadOut, err := createExclusive(t.Payload, t.PayloadMode)
	if err != nil {
		_ = hostOut.Close()
		_ = os.Remove(t.Host)
		return fmt.Errorf("split: %w", err)
	}
	defer func() {
		_ = hostOut.Close()
		_ = payloadOut.Close()
		if err != nil {
			_ = os.Remove(t.Host)
			_ = os.Remove(t.Payload)
		}
	}()

	if _, err := copyBuffered(hostOut, r, int64(meta.Start)); err != nil {
		return &IOError{Op: "copy host", Path: t.Host, Err: err}
	}
	if _, err := copyBuffered(payloadOut, r, int64(meta.End-meta.Start)); err != nil {
		return &IOError{Op: "copy payload", Path: t.Payload, Err: err}
	}

	if err := hostOut.Close(); err != nil {
		return &IOError{Op: "close", Path: t.Host, Err: err}
	}
	if err := payloadOut.Close(); err != nil {
		return &IOError{Op: "close", Path: t.Payload, Err: err}
	}
	if err := MarkExecutableOwnerOnly(t.Host); err != nil {
		return err
	}
	return setMode(t.Payload, t.PayloadMode)
}

// SplitFile splits the container at path next to itself: the host is
// restored as ToolName and the payload under the path with Suffix removed.
func SplitFile(path string, payloadMode fs.FileMode) (SplitTargets, Meta, error) {
	payloadPath, err := PayloadName(path)
	if err != nil {
		return SplitTargets{}, Meta{}, fmt.Errorf("split: %w", err)
	}
	t := SplitTargets{Host: HostName(path), Payload: payloadPath, PayloadMode: payloadMode}

	f, err := os.Open(path)
	if err != nil {
		return t, Meta{}, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return t, Meta{}, &IOError{Op: "stat", Path: path, Err: err}
	}
	meta, err := DecodeFooter(f, uint64(info.Size()))
	if err != nil {
		return t, meta, fmt.Errorf("split %s: %w", path, err)
	}
	if err := Split(f, meta, t); err != nil {
		return t, meta, err
	}
	return t, meta, nil
}
