package container

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	// Width is the byte width of each footer field.
	Width = 8
	// FooterSize is the length of the trailing (start, end) pair.
	FooterSize = 2 * Width
)

// Meta is the decoded view of a stream: its total size and the two
// footer offsets.
type Meta struct {
	Size  uint64
	Start uint64
	End   uint64
}

func (m Meta) Status() Status {
	return Classify(m.Size, m.Start, m.End)
}

// HostLen is the host segment length. It is only meaningful for Fused
// streams; for Bare streams the whole body is the host and End holds its length.
func (m Meta) HostLen() uint64 {
	if m.Start == 0 {
		return m.End
	}
	return m.Start
}

func (m Meta) PayloadLen() uint64 {
	if m.Start == 0 || m.End < m.Start {
		return 0
	}
	return m.End - m.Start
}

// EncodeFooter serializes start and end as little-endian uint64.
func EncodeFooter(start, end uint64) [FooterSize]byte {
	var buf [FooterSize]byte
	binary.LittleEndian.PutUint64(buf[0:Width], start)
	binary.LittleEndian.PutUint64(buf[Width:FooterSize], end)
	return buf
}

func parseFooter(buf []byte) (start, end uint64) {
	return binary.LittleEndian.Uint64(buf[0:Width]), binary.LittleEndian.Uint64(buf[Width:FooterSize])
}

// DecodeFooter reads the last FooterSize bytes of a stream of the given size.
func DecodeFooter(r io.ReaderAt, size uint64) (Meta, error) {
	if size < FooterSize {
		return Meta{Size: size}, &FormatError{Size: size}
	}
	var buf [FooterSize]byte
	if _, err := r.ReadAt(buf[:], int64(size-FooterSize)); err != nil {
		return Meta{Size: size}, fmt.Errorf("read footer: %w", err)
	}
	start, end := parseFooter(buf[:])
	return Meta{Size: size, Start: start, End: end}, nil
}

// Inspect decodes the footer of the file at path.
func Inspect(path string) (Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return Meta{}, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Meta{}, &IOError{Op: "stat", Path: path, Err: err}
	}
	meta, err := DecodeFooter(f, uint64(info.Size()))
	if err != nil {
		return meta, fmt.Errorf("inspect %s: %w", path, err)
	}
	return meta, nil
}
