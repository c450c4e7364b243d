package hive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing key or value.
	ErrNotFound = errors.New("hive: not found")
	// ErrCorrupt reports a structure that failed validation.
	ErrCorrupt = errors.New("hive: corrupt structure")
	// ErrSignature reports a missing regf/hbin/nk/vk magic.
	ErrSignature = errors.New("hive: signature mismatch")
)

// Base block and bin layout.
//
//	Offset  Size  Field
//	0x000   4     "regf"
//	0x004   4     primary sequence
//	0x008   4     secondary sequence
//	0x00C   8     last write FILETIME
//	0x014   4     major version
//	0x018   4     minor version
//	0x024   4     root NK offset, relative to the first hbin
//	0x028   4     total size of hbin data
const (
	baseBlockSize    = 0x1000
	hbinHeaderSize   = 0x20
	cellHeaderSize   = 4
	regfRootOffset   = 0x24
	regfDataSize     = 0x28
	regfMajorOffset  = 0x14
	regfMinorOffset  = 0x18
	regfSeq1Offset   = 0x04
	regfSeq2Offset   = 0x08
	regfStampOffset  = 0x0C
	invalidOffset    = 0xFFFFFFFF
	maxNameLength    = 0x800
	maxListEntries   = 0x100000
	bigDataChunkSize = 16344
)

var (
	sigREGF = []byte("regf")
	sigHBIN = []byte("hbin")
	sigNK   = []byte("nk")
	sigVK   = []byte("vk")
	sigLF   = []byte("lf")
	sigLH   = []byte("lh")
	sigLI   = []byte("li")
	sigRI   = []byte("ri")
	sigDB   = []byte("db")
)

// NK record offsets (payload begins at the "nk" tag).
const (
	nkFlags        = 0x02
	nkLastWrite    = 0x04
	nkParent       = 0x10
	nkSubkeyCount  = 0x14
	nkSubkeyList   = 0x1C
	nkValueCount   = 0x24
	nkValueList    = 0x28
	nkNameLength   = 0x48
	nkName         = 0x4C
	nkCompressName = 0x20
)

// VK record offsets.
const (
	vkNameLength   = 0x02
	vkDataLength   = 0x04
	vkDataOffset   = 0x08
	vkType         = 0x0C
	vkFlags        = 0x10
	vkName         = 0x14
	vkCompressName = 0x0001
	vkInlineBit    = 0x80000000
)

type header struct {
	primarySeq   uint32
	secondarySeq uint32
	lastWrite    uint64
	major        uint32
	minor        uint32
	rootOffset   uint32
	dataSize     uint32
}

func parseHeader(b []byte) (header, error) {
	if len(b) < baseBlockSize {
		return header{}, fmt.Errorf("%w: base block truncated (%d bytes)", ErrCorrupt, len(b))
	}
	if !bytes.Equal(b[:4], sigREGF) {
		return header{}, fmt.Errorf("%w: regf", ErrSignature)
	}
	return header{
		primarySeq:   u32(b, regfSeq1Offset),
		secondarySeq: u32(b, regfSeq2Offset),
		lastWrite:    binary.LittleEndian.Uint64(b[regfStampOffset:]),
		major:        u32(b, regfMajorOffset),
		minor:        u32(b, regfMinorOffset),
		rootOffset:   u32(b, regfRootOffset),
		dataSize:     u32(b, regfDataSize),
	}, nil
}

// nkRecord is the subset of an NK cell a lookup needs.
type nkRecord struct {
	flags       uint16
	lastWrite   uint64
	parent      uint32
	subkeyCount uint32
	subkeyList  uint32
	valueCount  uint32
	valueList   uint32
	nameRaw     []byte
}

func decodeNK(b []byte) (nkRecord, error) {
	if len(b) < nkName || !bytes.Equal(b[:2], sigNK) {
		return nkRecord{}, fmt.Errorf("%w: nk", ErrSignature)
	}
	nameLen := int(u16(b, nkNameLength))
	if nameLen > maxNameLength || nkName+nameLen > len(b) {
		return nkRecord{}, fmt.Errorf("%w: nk name length %d", ErrCorrupt, nameLen)
	}
	return nkRecord{
		flags:       u16(b, nkFlags),
		lastWrite:   binary.LittleEndian.Uint64(b[nkLastWrite:]),
		parent:      u32(b, nkParent),
		subkeyCount: u32(b, nkSubkeyCount),
		subkeyList:  u32(b, nkSubkeyList),
		valueCount:  u32(b, nkValueCount),
		valueList:   u32(b, nkValueList),
		nameRaw:     b[nkName : nkName+nameLen],
	}, nil
}

// vkRecord is a decoded VK cell.
type vkRecord struct {
	dataLength uint32
	dataOffset uint32
	dataType   uint32
	flags      uint16
	nameRaw    []byte
	// inline holds the raw DataOffset field for resident data.
	inline [4]byte
}

func (vk vkRecord) resident() bool { return vk.dataLength&vkInlineBit != 0 }

func (vk vkRecord) size() int { return int(vk.dataLength &^ vkInlineBit) }

func decodeVK(b []byte) (vkRecord, error) {
	if len(b) < vkName || !bytes.Equal(b[:2], sigVK) {
		return vkRecord{}, fmt.Errorf("%w: vk", ErrSignature)
	}
	nameLen := int(u16(b, vkNameLength))
	if nameLen > maxNameLength || vkName+nameLen > len(b) {
		return vkRecord{}, fmt.Errorf("%w: vk name length %d", ErrCorrupt, nameLen)
	}
	vk := vkRecord{
		dataLength: u32(b, vkDataLength),
		dataOffset: u32(b, vkDataOffset),
		dataType:   u32(b, vkType),
		flags:      u16(b, vkFlags),
		nameRaw:    b[vkName : vkName+nameLen],
	}
	copy(vk.inline[:], b[vkDataOffset:vkDataOffset+4])
	return vk, nil
}

// decodeLeafList returns the NK offsets listed by an lf, lh or li cell.
func decodeLeafList(b []byte) ([]uint32, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: subkey list truncated", ErrCorrupt)
	}
	count := int(u16(b, 2))
	stride := 8
	switch {
	case bytes.Equal(b[:2], sigLF), bytes.Equal(b[:2], sigLH):
	case bytes.Equal(b[:2], sigLI):
		stride = 4
	default:
		return nil, fmt.Errorf("%w: subkey list %q", ErrSignature, b[:2])
	}
	if 4+count*stride > len(b) {
		return nil, fmt.Errorf("%w: subkey list of %d entries truncated", ErrCorrupt, count)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = u32(b, 4+i*stride)
	}
	return out, nil
}

// decodeOffsets reads count little-endian offsets, used by ri lists, value
// lists and db block lists.
func decodeOffsets(b []byte, count int) ([]uint32, error) {
	if count < 0 || count > maxListEntries || count*4 > len(b) {
		return nil, fmt.Errorf("%w: offset list of %d entries truncated", ErrCorrupt, count)
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = u32(b, i*4)
	}
	return out, nil
}

func u16(b []byte, off int) uint16 { return binary.LittleEndian.Uint16(b[off:]) }
func u32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }
