// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"io"
)

// Extract streams the contents of a file entry to the sink, exactly
// FileSize bytes. On error the sink may have received a prefix of the file,
// which the caller is responsible for discarding.
func (f *File) Extract(entry *FileEntry, w io.Writer) error {
	if entry == nil || entry.Directory {
		return ErrNotAFile
	}
	if f.Header.VolumeDescriptor == nil {
		return ErrInvalidPackageType
	}

	if entry.FileSize == 0 {
		return nil
	}

	if entry.Consecutive {
		return f.extractConsecutive(entry, w)
	}
	return f.extractChained(entry, w)
}

// extractConsecutive copies a file whose blocks are contiguous except where
// interrupted by hash tables. When the whole file fits before the next
// table it is a single copy; otherwise table-to-table runs are copied, each
// run starting right past the interleaved tables.
func (f *File) extractConsecutive(entry *FileEntry, w io.Writer) error {
	g := &f.geo

	start := entry.StartingBlock
	addr, err := f.BlockToAddr(start)
	if err != nil {
		return err
	}

	blocksUntilTable := int64(g.tableIndex(start)) + int64(g.blockStep[0]) -
		(addr-g.firstTableAddress)>>12

	remaining := int64(entry.FileSize)
	if int64(entry.BlockCount) <= blocksUntilTable {
		return f.writeRange(w, addr, remaining)
	}

	logical := start
	for remaining > 0 {
		n := blocksUntilTable * BlockSize
		if n > remaining {
			n = remaining
		}
		if err := f.writeRange(w, addr, n); err != nil {
			return err
		}
		remaining -= n
		if remaining == 0 {
			break
		}

		// The next run begins at the block past the table boundary.
		logical += uint32(blocksUntilTable)
		if addr, err = f.BlockToAddr(logical); err != nil {
			return err
		}
		blocksUntilTable = HashesPerTable
	}

	return nil
}

// extractChained copies a file by following the next-block chain kept in
// the level-0 hash entries.
func (f *File) extractChained(entry *FileEntry, w io.Writer) error {
	remaining := int64(entry.FileSize)
	block := entry.StartingBlock

	for remaining > 0 {
		if block == ChainTerminator {
			return ErrInvalidHeader
		}

		addr, err := f.BlockToAddr(block)
		if err != nil {
			return err
		}

		n := int64(BlockSize)
		if n > remaining {
			n = remaining
		}
		if err := f.writeRange(w, addr, n); err != nil {
			return err
		}
		remaining -= n
		if remaining == 0 {
			break
		}

		hashEntry, err := f.HashEntry(block)
		if err != nil {
			return err
		}
		block = hashEntry.NextBlock
	}

	return nil
}

// writeRange copies a byte region of the package to the sink.
func (f *File) writeRange(w io.Writer, addr, size int64) error {
	if addr < 0 || size < 0 || addr+size > f.size {
		return ErrOutsideBoundary
	}

	_, err := w.Write(f.data[addr : addr+size])
	return err
}
