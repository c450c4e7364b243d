// Package hivetest assembles small but structurally valid REGF images for
// tests, so hive parsing can be exercised without shipping binary fixtures.
package hivetest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/joshuapare/regrescue/pkg/types"
)

// ListKind selects the subkey index format written for every key.
type ListKind int

const (
	LF ListKind = iota
	LH
	LI
	// RI writes an ri index pointing at a single li leaf.
	RI
)

const (
	baseBlock  = 0x1000
	hbinHeader = 0x20
	binAlign   = 0x1000
	chunkSize  = 16344
	none       = 0xFFFFFFFF
)

type node struct {
	name     string
	children map[string]*node
	order    []string
	values   []types.Value
}

func (n *node) child(name string) *node {
	k := strings.ToLower(name)
	if c, ok := n.children[k]; ok {
		return c
	}
	c := &node{name: name, children: map[string]*node{}}
	n.children[k] = c
	n.order = append(n.order, k)
	return c
}

// Builder collects keys and values and renders them into a hive image.
type Builder struct {
	root  *node
	kind  ListKind
	dirty bool
	stamp uint64
}

// New returns a builder whose root key is named rootName.
func New(rootName string) *Builder {
	return &Builder{root: &node{name: rootName, children: map[string]*node{}}}
}

// Lists sets the subkey index format.
func (b *Builder) Lists(kind ListKind) *Builder {
	b.kind = kind
	return b
}

// Dirty makes the primary and secondary sequence numbers disagree.
func (b *Builder) Dirty() *Builder {
	b.dirty = true
	return b
}

// Stamp sets the base block FILETIME.
func (b *Builder) Stamp(ft uint64) *Builder {
	b.stamp = ft
	return b
}

// Key creates every segment of a backslash separated path.
func (b *Builder) Key(path string) *Builder {
	b.walk(path)
	return b
}

// Value adds v under path, creating the key if needed.
func (b *Builder) Value(path string, v types.Value) *Builder {
	n := b.walk(path)
	n.values = append(n.values, v)
	return b
}

func (b *Builder) walk(path string) *node {
	n := b.root
	for _, seg := range strings.Split(path, `\`) {
		if seg != "" {
			n = n.child(seg)
		}
	}
	return n
}

// Bytes renders the image.
func (b *Builder) Bytes() []byte {
	a := &arena{}
	a.buf = make([]byte, hbinHeader)
	rootOff := b.emitKey(a, b.root, none, true)

	binSize := (len(a.buf) + binAlign - 1) / binAlign * binAlign
	if free := binSize - len(a.buf); free > 0 {
		// Trailing free cell, positive size.
		tail := make([]byte, free)
		if free >= 4 {
			binary.LittleEndian.PutUint32(tail, uint32(free))
		}
		a.buf = append(a.buf, tail...)
	}
	copy(a.buf[0:], "hbin")
	binary.LittleEndian.PutUint32(a.buf[4:], 0)
	binary.LittleEndian.PutUint32(a.buf[8:], uint32(binSize))

	out := make([]byte, baseBlock, baseBlock+binSize)
	copy(out, "regf")
	seq2 := uint32(1)
	if b.dirty {
		seq2 = 0
	}
	binary.LittleEndian.PutUint32(out[0x04:], 1)
	binary.LittleEndian.PutUint32(out[0x08:], seq2)
	binary.LittleEndian.PutUint64(out[0x0C:], b.stamp)
	binary.LittleEndian.PutUint32(out[0x14:], 1)
	binary.LittleEndian.PutUint32(out[0x18:], 5)
	binary.LittleEndian.PutUint32(out[0x20:], 1)
	binary.LittleEndian.PutUint32(out[0x24:], rootOff)
	binary.LittleEndian.PutUint32(out[0x28:], uint32(binSize))
	binary.LittleEndian.PutUint32(out[0x2C:], 1)
	var sum uint32
	for i := 0; i < 0x1FC; i += 4 {
		sum ^= binary.LittleEndian.Uint32(out[i:])
	}
	binary.LittleEndian.PutUint32(out[0x1FC:], sum)
	return append(out, a.buf...)
}

// Write renders the image into dir/name and returns the path.
func (b *Builder) Write(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("hivetest: write %s: %v", path, err)
	}
	return path
}

func (b *Builder) emitKey(a *arena, n *node, parent uint32, root bool) uint32 {
	name, compressed := encodeName(n.name)
	nk := make([]byte, 0x4C+len(name))
	off := a.alloc(len(nk))

	copy(nk, "nk")
	flags := uint16(0)
	if compressed {
		flags |= 0x20
	}
	if root {
		flags |= 0x04 | 0x08
	}
	binary.LittleEndian.PutUint16(nk[0x02:], flags)
	binary.LittleEndian.PutUint32(nk[0x10:], parent)
	binary.LittleEndian.PutUint32(nk[0x1C:], none)
	binary.LittleEndian.PutUint32(nk[0x20:], none)
	binary.LittleEndian.PutUint32(nk[0x28:], none)
	binary.LittleEndian.PutUint32(nk[0x2C:], none)
	binary.LittleEndian.PutUint32(nk[0x30:], none)
	binary.LittleEndian.PutUint16(nk[0x48:], uint16(len(name)))
	copy(nk[0x4C:], name)

	if len(n.values) > 0 {
		list := make([]byte, 4*len(n.values))
		for i, v := range n.values {
			binary.LittleEndian.PutUint32(list[i*4:], b.emitValue(a, v))
		}
		binary.LittleEndian.PutUint32(nk[0x24:], uint32(len(n.values)))
		binary.LittleEndian.PutUint32(nk[0x28:], a.put(list))
	}

	if len(n.order) > 0 {
		keys := append([]string(nil), n.order...)
		sort.Strings(keys)
		children := make([]uint32, len(keys))
		names := make([]string, len(keys))
		for i, k := range keys {
			c := n.children[k]
			children[i] = b.emitKey(a, c, off, false)
			names[i] = c.name
		}
		binary.LittleEndian.PutUint32(nk[0x14:], uint32(len(children)))
		binary.LittleEndian.PutUint32(nk[0x1C:], b.emitList(a, children, names))
	}

	a.write(off, nk)
	return off
}

func (b *Builder) emitList(a *arena, offs []uint32, names []string) uint32 {
	leaf := func(sig string, stride int) []byte {
		out := make([]byte, 4+stride*len(offs))
		copy(out, sig)
		binary.LittleEndian.PutUint16(out[2:], uint16(len(offs)))
		for i, off := range offs {
			e := out[4+i*stride:]
			binary.LittleEndian.PutUint32(e, off)
			switch sig {
			case "lf":
				copy(e[4:8], (names[i] + "\x00\x00\x00\x00")[:4])
			case "lh":
				binary.LittleEndian.PutUint32(e[4:], nameHash(names[i]))
			}
		}
		return out
	}
	switch b.kind {
	case LH:
		return a.put(leaf("lh", 8))
	case LI:
		return a.put(leaf("li", 4))
	case RI:
		li := a.put(leaf("li", 4))
		ri := make([]byte, 8)
		copy(ri, "ri")
		binary.LittleEndian.PutUint16(ri[2:], 1)
		binary.LittleEndian.PutUint32(ri[4:], li)
		return a.put(ri)
	default:
		return a.put(leaf("lf", 8))
	}
}

func (b *Builder) emitValue(a *arena, v types.Value) uint32 {
	name, compressed := encodeName(v.Name)
	vk := make([]byte, 0x14+len(name))
	copy(vk, "vk")
	binary.LittleEndian.PutUint16(vk[0x02:], uint16(len(name)))
	binary.LittleEndian.PutUint32(vk[0x0C:], uint32(v.Type))
	if compressed {
		binary.LittleEndian.PutUint16(vk[0x10:], 1)
	}
	copy(vk[0x14:], name)

	size := uint32(len(v.Data))
	switch {
	case len(v.Data) <= 4:
		binary.LittleEndian.PutUint32(vk[0x04:], size|0x80000000)
		copy(vk[0x08:0x0C], v.Data)
	case len(v.Data) > chunkSize:
		binary.LittleEndian.PutUint32(vk[0x04:], size)
		binary.LittleEndian.PutUint32(vk[0x08:], emitBigData(a, v.Data))
	default:
		binary.LittleEndian.PutUint32(vk[0x04:], size)
		binary.LittleEndian.PutUint32(vk[0x08:], a.put(v.Data))
	}
	return a.put(vk)
}

func emitBigData(a *arena, data []byte) uint32 {
	var blocks []uint32
	for len(data) > 0 {
		n := min(len(data), chunkSize)
		blocks = append(blocks, a.put(data[:n]))
		data = data[n:]
	}
	list := make([]byte, 4*len(blocks))
	for i, off := range blocks {
		binary.LittleEndian.PutUint32(list[i*4:], off)
	}
	db := make([]byte, 8)
	copy(db, "db")
	binary.LittleEndian.PutUint16(db[2:], uint16(len(blocks)))
	binary.LittleEndian.PutUint32(db[4:], a.put(list))
	return a.put(db)
}

// arena is the hbin body; offsets are relative to the bin start.
type arena struct{ buf []byte }

func (a *arena) alloc(payload int) uint32 {
	size := (4 + payload + 7) &^ 7
	off := uint32(len(a.buf))
	a.buf = append(a.buf, make([]byte, size)...)
	binary.LittleEndian.PutUint32(a.buf[off:], uint32(-int32(size)))
	return off
}

func (a *arena) write(off uint32, payload []byte) {
	copy(a.buf[off+4:], payload)
}

func (a *arena) put(payload []byte) uint32 {
	off := a.alloc(len(payload))
	a.write(off, payload)
	return off
}

func encodeName(s string) ([]byte, bool) {
	latin := true
	for _, r := range s {
		if r > 0xFF {
			latin = false
			break
		}
	}
	if latin {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			out = append(out, byte(r))
		}
		return out, true
	}
	u := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(u))
	for i, c := range u {
		binary.LittleEndian.PutUint16(out[i*2:], c)
	}
	return out, false
}

func nameHash(s string) uint32 {
	var h uint32
	for _, r := range strings.ToUpper(s) {
		h = h*37 + uint32(r)
	}
	return h
}
