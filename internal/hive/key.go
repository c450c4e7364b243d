package hive

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/regrescue/pkg/types"
)

// Key is a decoded NK record bound to its hive.
type Key struct {
	h   *Hive
	off uint32
	nk  nkRecord
}

// Name returns the key's own name.
func (k Key) Name() string {
	return decodeName(k.nk.nameRaw, k.nk.flags&nkCompressName != 0)
}

// LastWrite returns the key's timestamp.
func (k Key) LastWrite() time.Time { return filetime(k.nk.lastWrite) }

// SubkeyCount returns the stable subkey count.
func (k Key) SubkeyCount() int { return int(k.nk.subkeyCount) }

// ValueCount returns the number of values.
func (k Key) ValueCount() int { return int(k.nk.valueCount) }

// Subkeys lists the direct children, following ri indexes one level down.
func (k Key) Subkeys() ([]Key, error) {
	if k.nk.subkeyCount == 0 || k.nk.subkeyList == invalidOffset {
		return nil, nil
	}
	offs, err := k.h.subkeyOffsets(k.nk.subkeyList)
	if err != nil {
		return nil, fmt.Errorf("subkeys of %q: %w", k.Name(), err)
	}
	out := make([]Key, 0, len(offs))
	for _, off := range offs {
		child, err := k.h.key(off)
		if err != nil {
			return nil, err
		}
		out = append(out, child)
	}
	return out, nil
}

// Subkey returns the child named name, compared case-insensitively.
func (k Key) Subkey(name string) (Key, error) {
	children, err := k.Subkeys()
	if err != nil {
		return Key{}, err
	}
	for _, c := range children {
		if strings.EqualFold(c.Name(), name) {
			return c, nil
		}
	}
	return Key{}, fmt.Errorf("%w: subkey %q", ErrNotFound, name)
}

// Values decodes every value of the key.
func (k Key) Values() ([]types.Value, error) {
	if k.nk.valueCount == 0 || k.nk.valueList == invalidOffset {
		return nil, nil
	}
	list, err := k.h.cell(k.nk.valueList)
	if err != nil {
		return nil, fmt.Errorf("value list of %q: %w", k.Name(), err)
	}
	offs, err := decodeOffsets(list, int(k.nk.valueCount))
	if err != nil {
		return nil, fmt.Errorf("value list of %q: %w", k.Name(), err)
	}
	out := make([]types.Value, 0, len(offs))
	for _, off := range offs {
		v, err := k.h.value(off)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Value returns the value named name. An empty name selects the default value.
func (k Key) Value(name string) (types.Value, error) {
	values, err := k.Values()
	if err != nil {
		return types.Value{}, err
	}
	for _, v := range values {
		if strings.EqualFold(v.Name, name) {
			return v, nil
		}
	}
	return types.Value{}, fmt.Errorf("%w: value %q under %q", ErrNotFound, name, k.Name())
}

func (h *Hive) subkeyOffsets(listOff uint32) ([]uint32, error) {
	b, err := h.cell(listOff)
	if err != nil {
		return nil, err
	}
	if len(b) >= 4 && string(b[:2]) == string(sigRI) {
		subs, err := decodeOffsets(b[4:], int(u16(b, 2)))
		if err != nil {
			return nil, err
		}
		var out []uint32
		for _, sub := range subs {
			leaf, err := h.cell(sub)
			if err != nil {
				return nil, err
			}
			offs, err := decodeLeafList(leaf)
			if err != nil {
				return nil, err
			}
			out = append(out, offs...)
		}
		return out, nil
	}
	return decodeLeafList(b)
}

func (h *Hive) value(off uint32) (types.Value, error) {
	b, err := h.cell(off)
	if err != nil {
		return types.Value{}, err
	}
	vk, err := decodeVK(b)
	if err != nil {
		return types.Value{}, fmt.Errorf("value at 0x%X: %w", off, err)
	}
	data, err := h.valueData(vk)
	if err != nil {
		return types.Value{}, fmt.Errorf("value at 0x%X: %w", off, err)
	}
	return types.Value{
		Name: decodeName(vk.nameRaw, vk.flags&vkCompressName != 0),
		Type: types.RegType(vk.dataType),
		Data: data,
	}, nil
}

func (h *Hive) valueData(vk vkRecord) ([]byte, error) {
	n := vk.size()
	if n == 0 {
		return []byte{}, nil
	}
	if vk.resident() {
		if n > 4 {
			return nil, fmt.Errorf("%w: resident data of %d bytes", ErrCorrupt, n)
		}
		return append([]byte(nil), vk.inline[:n]...), nil
	}
	b, err := h.cell(vk.dataOffset)
	if err != nil {
		return nil, err
	}
	if n > bigDataChunkSize && len(b) >= 8 && string(b[:2]) == string(sigDB) {
		return h.bigData(b, n)
	}
	if n > len(b) {
		return nil, fmt.Errorf("%w: data cell holds %d of %d bytes", ErrCorrupt, len(b), n)
	}
	return append([]byte(nil), b[:n]...), nil
}

func (h *Hive) bigData(db []byte, n int) ([]byte, error) {
	list, err := h.cell(u32(db, 4))
	if err != nil {
		return nil, fmt.Errorf("db block list: %w", err)
	}
	blocks, err := decodeOffsets(list, int(u16(db, 2)))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, n)
	for _, off := range blocks {
		chunk, err := h.cell(off)
		if err != nil {
			return nil, fmt.Errorf("db chunk: %w", err)
		}
		take := min(len(chunk), bigDataChunkSize, n-len(out))
		out = append(out, chunk[:take]...)
		if len(out) == n {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: db chain holds %d of %d bytes", ErrCorrupt, len(out), n)
}

// decodeName turns an on-disk key or value name into a Go string. Compressed
// names are Latin-1, the rest UTF-16LE.
func decodeName(raw []byte, compressed bool) string {
	if compressed {
		s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return string(raw)
		}
		return string(s)
	}
	return types.DecodeUTF16(raw)
}
