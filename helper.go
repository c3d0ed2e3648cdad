// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	// fixedHeaderSize is the size of the fixed portion of the header: the
	// region through the title thumbnail that every package carries before
	// the optional installer metadata begins.
	fixedHeaderSize = 0x971A

	// maxThumbnailSize bounds each of the two thumbnail regions.
	maxThumbnailSize = 0x4000
)

// Errors
var (

	// ErrInvalidPackageSize is returned when the buffer is smaller than the
	// fixed header region.
	ErrInvalidPackageSize = errors.New(
		"not an STFS package, smaller than the fixed header")

	// ErrInvalidHeader is returned on structural corruption inside the
	// package header: an unknown magic, impossible field combinations, or a
	// block chain that contradicts the header.
	ErrInvalidHeader = errors.New("invalid STFS package header")

	// ErrInvalidPackageType is returned when an operation requires an STFS
	// payload but the package carries a different filesystem.
	ErrInvalidPackageType = errors.New("package does not carry an STFS payload")

	// ErrBlockOutOfRange is returned when a block number falls outside the
	// allocated range declared by the volume descriptor.
	ErrBlockOutOfRange = errors.New("block number outside allocated range")

	// ErrCorruptDirectory is returned when the file table references a
	// parent directory that does not exist or forms a cycle.
	ErrCorruptDirectory = errors.New("corrupt file table directory")

	// ErrNotAFile is returned when extraction is requested for a directory
	// entry.
	ErrNotAFile = errors.New("entry is not a file")

	// ErrOutsideBoundary is reported when attempting to read an address
	// beyond the package limits.
	ErrOutsideBoundary = errors.New("reading data outside boundary")
)

// InvalidEnumError is returned when a field carries a value outside its
// declared set and a downstream structure depends on the discriminant
// (filesystem type, installer type), and for an undefined owner console type
// or installer resume state.
type InvalidEnumError struct {
	Field string
	Value uint64
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid value for %s: %#x", e.Field, e.Value)
}

// ReadUint64 read a big-endian uint64 from the package.
func (f *File) ReadUint64(offset int64) (uint64, error) {
	if offset < 0 || offset+8 > f.size {
		return 0, ErrOutsideBoundary
	}

	var v uint64
	for _, b := range f.data[offset : offset+8] {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// ReadUint32 read a big-endian uint32 from the package.
func (f *File) ReadUint32(offset int64) (uint32, error) {
	if offset < 0 || offset+4 > f.size {
		return 0, ErrOutsideBoundary
	}

	d := f.data[offset : offset+4]
	return uint32(d[0])<<24 | uint32(d[1])<<16 | uint32(d[2])<<8 |
		uint32(d[3]), nil
}

// ReadUint32LE read a little-endian uint32 from the package.
func (f *File) ReadUint32LE(offset int64) (uint32, error) {
	if offset < 0 || offset+4 > f.size {
		return 0, ErrOutsideBoundary
	}

	d := f.data[offset : offset+4]
	return uint32(d[3])<<24 | uint32(d[2])<<16 | uint32(d[1])<<8 |
		uint32(d[0]), nil
}

// ReadUint24 read a big-endian 24-bit integer from the package.
func (f *File) ReadUint24(offset int64) (uint32, error) {
	if offset < 0 || offset+3 > f.size {
		return 0, ErrOutsideBoundary
	}

	d := f.data[offset : offset+3]
	return uint32(d[0])<<16 | uint32(d[1])<<8 | uint32(d[2]), nil
}

// ReadUint24LE read a little-endian 24-bit integer from the package.
func (f *File) ReadUint24LE(offset int64) (uint32, error) {
	if offset < 0 || offset+3 > f.size {
		return 0, ErrOutsideBoundary
	}

	d := f.data[offset : offset+3]
	return uint32(d[2])<<16 | uint32(d[1])<<8 | uint32(d[0]), nil
}

// ReadUint16 read a big-endian uint16 from the package.
func (f *File) ReadUint16(offset int64) (uint16, error) {
	if offset < 0 || offset+2 > f.size {
		return 0, ErrOutsideBoundary
	}

	d := f.data[offset : offset+2]
	return uint16(d[0])<<8 | uint16(d[1]), nil
}

// ReadUint16LE read a little-endian uint16 from the package.
func (f *File) ReadUint16LE(offset int64) (uint16, error) {
	if offset < 0 || offset+2 > f.size {
		return 0, ErrOutsideBoundary
	}

	d := f.data[offset : offset+2]
	return uint16(d[1])<<8 | uint16(d[0]), nil
}

// ReadUint8 read a uint8 from the package.
func (f *File) ReadUint8(offset int64) (uint8, error) {
	if offset < 0 || offset+1 > f.size {
		return 0, ErrOutsideBoundary
	}

	return f.data[offset], nil
}

// ReadBytesAtOffset returns a copy of the byte region at offset.
func (f *File) ReadBytesAtOffset(offset, size int64) ([]byte, error) {
	if size < 0 || offset < 0 {
		return nil, ErrOutsideBoundary
	}

	totalSize := offset + size
	if totalSize < offset {
		return nil, ErrOutsideBoundary
	}

	if offset > f.size || totalSize > f.size {
		return nil, ErrOutsideBoundary
	}

	out := make([]byte, size)
	copy(out, f.data[offset:totalSize])
	return out, nil
}

// readASCIIStringAtOffset returns the NUL-trimmed ASCII string occupying the
// fixed-size region at offset.
func (f *File) readASCIIStringAtOffset(offset, size int64) (string, error) {
	b, err := f.ReadBytesAtOffset(offset, size)
	if err != nil {
		return "", err
	}

	if n := bytes.IndexByte(b, 0); n != -1 {
		b = b[:n]
	}
	return string(b), nil
}

// readUTF16StringAtOffset returns the NUL-terminated UTF-16 big-endian string
// beginning at offset, scanning at most maxLength bytes.
func (f *File) readUTF16StringAtOffset(offset, maxLength int64) (string, error) {
	if offset < 0 || offset > f.size {
		return "", ErrOutsideBoundary
	}

	end := offset + maxLength
	if end > f.size {
		end = f.size
	}
	return DecodeUTF16String(f.data[offset:end])
}

// DecodeUTF16String decodes a NUL-terminated UTF-16 big-endian string from
// the byte slice.
func DecodeUTF16String(b []byte) (string, error) {
	n := len(b) &^ 1
	end := n
	for i := 0; i < n; i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			end = i
			break
		}
	}

	decoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := decoder.Bytes(b[:end])
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// roundToBlock rounds a size up to the next block boundary.
func roundToBlock(v uint32) uint32 {
	return (v + BlockSize - 1) &^ (BlockSize - 1)
}

// ceilDiv divides rounding up.
func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

// IsBitSet returns true when a bit on a particular position is set.
func IsBitSet(n uint64, pos int) bool {
	val := n & (1 << pos)
	return (val > 0)
}

// sanitizeName strips path separators from an entry name so that a corrupt
// package cannot escape an extraction directory.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "." || name == ".." {
		return "_"
	}
	return name
}
