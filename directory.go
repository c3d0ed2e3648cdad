// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"time"
)

// File entry flag bits carried in the top two bits of the name length byte.
const (
	fileEntryFlagConsecutive = 0x40
	fileEntryFlagDirectory   = 0x80

	fileEntryNameLength = 0x28
)

// FileEntry represents one record of the file table. Directory entries carry
// their children in entry order; the tree root is a synthetic directory with
// index 0xFFFF.
type FileEntry struct {
	Name          string       `json:"name"`
	Index         uint16       `json:"index"`
	Consecutive   bool         `json:"consecutive"`
	Directory     bool         `json:"directory"`
	BlockCount    uint32       `json:"block_count"`
	StartingBlock uint32       `json:"starting_block"`
	PathIndicator uint16       `json:"path_indicator"`
	FileSize      uint32       `json:"file_size"`
	CreatedAt     time.Time    `json:"created_at"`
	AccessedAt    time.Time    `json:"accessed_at"`
	Children      []*FileEntry `json:"children,omitempty"`

	parent *FileEntry
}

// parseFileTable walks the file table chain and decodes every record into a
// flat entry list.
func (f *File) parseFileTable() error {
	vd := f.Header.VolumeDescriptor

	block := vd.FileTableBlockNum
	for ordinal := uint16(0); ordinal < vd.FileTableBlockCount; ordinal++ {
		addr, err := f.BlockToAddr(block)
		if err != nil {
			return err
		}

		for slot := 0; slot < FileEntriesPerBlock; slot++ {
			recordAddr := addr + int64(slot)*FileEntrySize

			nameLen, err := f.ReadUint8(recordAddr + fileEntryNameLength)
			if err != nil {
				return err
			}

			// A zero byte ends the table; a record with flags but no name
			// is a deleted slot.
			if nameLen == 0 {
				return nil
			}
			length := int64(nameLen & 0x3F)
			if length == 0 {
				continue
			}
			if length > fileEntryNameLength {
				return ErrCorruptDirectory
			}

			entry, err := f.parseFileEntry(recordAddr, nameLen, length)
			if err != nil {
				return err
			}
			entry.Index = ordinal*FileEntriesPerBlock + uint16(slot)

			f.Entries = append(f.Entries, entry)
		}

		hashEntry, err := f.HashEntry(block)
		if err != nil {
			return err
		}
		if hashEntry.NextBlock == ChainTerminator {
			break
		}
		block = hashEntry.NextBlock
	}

	return nil
}

// parseFileEntry decodes the 64-byte record at recordAddr.
func (f *File) parseFileEntry(recordAddr int64, nameLen uint8,
	length int64) (*FileEntry, error) {

	name, err := f.ReadBytesAtOffset(recordAddr, length)
	if err != nil {
		return nil, err
	}

	entry := FileEntry{
		Name:        string(name),
		Consecutive: nameLen&fileEntryFlagConsecutive != 0,
		Directory:   nameLen&fileEntryFlagDirectory != 0,
	}

	if entry.BlockCount, err = f.ReadUint24LE(recordAddr + 0x29); err != nil {
		return nil, err
	}
	if entry.StartingBlock, err = f.ReadUint24LE(recordAddr + 0x2F); err != nil {
		return nil, err
	}
	if entry.PathIndicator, err = f.ReadUint16(recordAddr + 0x32); err != nil {
		return nil, err
	}
	if entry.FileSize, err = f.ReadUint32(recordAddr + 0x34); err != nil {
		return nil, err
	}

	created, err := f.ReadUint32(recordAddr + 0x38)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = fatTimestamp(created)

	accessed, err := f.ReadUint32(recordAddr + 0x3C)
	if err != nil {
		return nil, err
	}
	entry.AccessedAt = fatTimestamp(accessed)

	return &entry, nil
}

// buildTree links the flat entry list into a tree. Entries are decoded
// first and attached second, so a child may precede its parent in the file
// table.
func (f *File) buildTree() error {
	root := &FileEntry{
		Index:         RootPathIndicator,
		PathIndicator: RootPathIndicator,
		Directory:     true,
	}

	directories := make(map[uint16]*FileEntry)
	for _, entry := range f.Entries {
		if entry.Directory {
			directories[entry.Index] = entry
		}
	}

	for _, entry := range f.Entries {
		if entry.PathIndicator == RootPathIndicator {
			entry.parent = root
			root.Children = append(root.Children, entry)
			continue
		}

		parent, ok := directories[entry.PathIndicator]
		if !ok || parent == entry {
			return ErrCorruptDirectory
		}
		entry.parent = parent
		parent.Children = append(parent.Children, entry)
	}

	// The parent references come straight from the package, so a corrupt
	// table can close a cycle. Refuse any entry whose ancestor chain is
	// longer than the entry list itself.
	for _, entry := range f.Entries {
		depth := 0
		for e := entry; e.Index != RootPathIndicator; depth++ {
			if depth > len(f.Entries) {
				return ErrCorruptDirectory
			}
			next, ok := directories[e.PathIndicator]
			if !ok {
				// Attached directly under the synthetic root.
				break
			}
			e = next
		}
	}

	f.root = root
	return nil
}

// Path returns the slash-separated path of the entry from the package root.
func (e *FileEntry) Path() string {
	if e.parent == nil {
		return ""
	}

	name := sanitizeName(e.Name)
	if e.parent.Index == RootPathIndicator {
		return name
	}
	return e.parent.Path() + "/" + name
}

// Walk visits the entry and every descendant in depth-first entry order. The
// synthetic root itself is not visited, only its descendants.
func (e *FileEntry) Walk(visit func(*FileEntry)) {
	if e.Index != RootPathIndicator {
		visit(e)
	}
	for _, child := range e.Children {
		child.Walk(visit)
	}
}
