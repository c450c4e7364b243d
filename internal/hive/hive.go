package hive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/joshuapare/regrescue/internal/mmfile"
)

// Hive is an opened, immutable hive image.
type Hive struct {
	data    []byte
	hdr     header
	cleanup func() error
}

// Open maps the hive file at path read-only.
func Open(path string) (*Hive, error) {
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return nil, fmt.Errorf("hive: open %s: %w", path, err)
	}
	h, err := Parse(data)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("hive: %s: %w", path, err)
	}
	h.cleanup = cleanup
	return h, nil
}

// Parse validates the base block and the first bin of an in-memory image.
// The slice is retained, not copied.
func Parse(data []byte) (*Hive, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if len(data) < baseBlockSize+hbinHeaderSize || !bytes.Equal(data[baseBlockSize:baseBlockSize+4], sigHBIN) {
		return nil, fmt.Errorf("%w: first hbin", ErrSignature)
	}
	return &Hive{data: data, hdr: hdr}, nil
}

// Close releases the mapping. It is safe to call on a parsed image.
func (h *Hive) Close() error {
	if h == nil || h.cleanup == nil {
		return nil
	}
	err := h.cleanup()
	h.cleanup = nil
	h.data = nil
	return err
}

// Version returns the major and minor format version.
func (h *Hive) Version() (uint32, uint32) { return h.hdr.major, h.hdr.minor }

// Dirty reports whether the sequence numbers disagree, meaning the hive was
// captured mid-write and its log files were not replayed.
func (h *Hive) Dirty() bool { return h.hdr.primarySeq != h.hdr.secondarySeq }

// LastWrite returns the base block timestamp.
func (h *Hive) LastWrite() time.Time { return filetime(h.hdr.lastWrite) }

// Root returns the root key.
func (h *Hive) Root() (Key, error) {
	return h.key(h.hdr.rootOffset)
}

// cell returns the payload of the cell at a bin-relative offset.
func (h *Hive) cell(off uint32) ([]byte, error) {
	if off == invalidOffset {
		return nil, fmt.Errorf("%w: null cell reference", ErrCorrupt)
	}
	abs := baseBlockSize + int(off)
	if abs < baseBlockSize || abs+cellHeaderSize > len(h.data) {
		return nil, fmt.Errorf("%w: cell 0x%X outside image", ErrCorrupt, off)
	}
	size := int32(u32(h.data, abs))
	if size >= 0 {
		return nil, fmt.Errorf("%w: cell 0x%X is free", ErrCorrupt, off)
	}
	n := int(-size)
	if n < cellHeaderSize || abs+n > len(h.data) {
		return nil, fmt.Errorf("%w: cell 0x%X size %d", ErrCorrupt, off, n)
	}
	return h.data[abs+cellHeaderSize : abs+n], nil
}

func (h *Hive) key(off uint32) (Key, error) {
	b, err := h.cell(off)
	if err != nil {
		return Key{}, err
	}
	nk, err := decodeNK(b)
	if err != nil {
		return Key{}, fmt.Errorf("key at 0x%X: %w", off, err)
	}
	return Key{h: h, off: off, nk: nk}, nil
}

// filetime converts a Windows FILETIME (100ns ticks since 1601) to UTC.
func filetime(ft uint64) time.Time {
	const epochDelta = 116444736000000000
	if ft < epochDelta {
		return time.Time{}
	}
	ticks := ft - epochDelta
	return time.Unix(int64(ticks/10_000_000), int64(ticks%10_000_000)*100).UTC()
}
