// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"fmt"
	"testing"
	"time"
)

func TestParseFileTable(t *testing.T) {
	p := newTestPackage("CON ", 8)
	p.addEntry(0, "savegames", fileEntryFlagDirectory, 0, 0, RootPathIndicator, 0)
	p.addEntry(1, "profile.dat", 0, 1, 2, 0, 2*BlockSize)
	p.addEntry(2, "readme.txt", fileEntryFlagConsecutive, 3, 1,
		RootPathIndicator, 100)
	p.setHashEntry(1, 2)
	p.setHashEntry(2, ChainTerminator)

	file := p.parse(t)

	if len(file.Entries) != 3 {
		t.Fatalf("entry count assertion failed, got %v, want %v",
			len(file.Entries), 3)
	}

	dir := file.Entries[0]
	if !dir.Directory || dir.Name != "savegames" || dir.Index != 0 {
		t.Errorf("directory entry assertion failed, got %+v", dir)
	}

	profile := file.Entries[1]
	if profile.Directory || profile.Consecutive {
		t.Errorf("profile flags assertion failed, got %+v", profile)
	}
	if profile.StartingBlock != 1 || profile.BlockCount != 2 {
		t.Errorf("profile blocks assertion failed, got %v/%v",
			profile.StartingBlock, profile.BlockCount)
	}
	if profile.FileSize != 2*BlockSize {
		t.Errorf("profile size assertion failed, got %v, want %v",
			profile.FileSize, 2*BlockSize)
	}
	if profile.PathIndicator != 0 {
		t.Errorf("profile parent assertion failed, got %v, want %v",
			profile.PathIndicator, 0)
	}

	readme := file.Entries[2]
	if !readme.Consecutive || readme.Index != 2 {
		t.Errorf("readme entry assertion failed, got %+v", readme)
	}

	want := time.Date(2021, time.May, 15, 12, 30, 10, 0, time.UTC)
	if !readme.CreatedAt.Equal(want) {
		t.Errorf("created time assertion failed, got %v, want %v",
			readme.CreatedAt, want)
	}
}

func TestBuildTree(t *testing.T) {
	p := newTestPackage("CON ", 8)
	p.addEntry(0, "savegames", fileEntryFlagDirectory, 0, 0, RootPathIndicator, 0)
	p.addEntry(1, "profile.dat", 0, 1, 1, 0, 16)
	p.addEntry(2, "readme.txt", 0, 2, 1, RootPathIndicator, 16)
	p.setHashEntry(1, ChainTerminator)
	p.setHashEntry(2, ChainTerminator)

	file := p.parse(t)

	root := file.Tree()
	if root == nil {
		t.Fatal("tree root missing")
	}
	if root.Index != RootPathIndicator || !root.Directory {
		t.Errorf("root entry assertion failed, got %+v", root)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children assertion failed, got %v, want %v",
			len(root.Children), 2)
	}

	dir := root.Children[0]
	if dir.Name != "savegames" || len(dir.Children) != 1 {
		t.Fatalf("directory node assertion failed, got %+v", dir)
	}
	if dir.Children[0].Name != "profile.dat" {
		t.Errorf("nested file assertion failed, got %v", dir.Children[0].Name)
	}
	if got := dir.Children[0].Path(); got != "savegames/profile.dat" {
		t.Errorf("path assertion failed, got %v, want %v",
			got, "savegames/profile.dat")
	}
	if got := root.Children[1].Path(); got != "readme.txt" {
		t.Errorf("path assertion failed, got %v, want %v", got, "readme.txt")
	}
}

func TestDeletedSlotSkipped(t *testing.T) {
	p := newTestPackage("CON ", 8)
	p.addEntry(0, "keep.bin", 0, 1, 1, RootPathIndicator, 16)
	// A deleted slot keeps its flags but has a zero name length.
	p.putFileEntry(p.blockAddr(0)+1*FileEntrySize, "", fileEntryFlagDirectory,
		0, 0, RootPathIndicator, 0)
	p.addEntry(2, "after.bin", 0, 2, 1, RootPathIndicator, 16)
	p.setHashEntry(1, ChainTerminator)
	p.setHashEntry(2, ChainTerminator)

	file := p.parse(t)

	if len(file.Entries) != 2 {
		t.Fatalf("entry count assertion failed, got %v, want %v",
			len(file.Entries), 2)
	}
	if file.Entries[0].Name != "keep.bin" || file.Entries[1].Name != "after.bin" {
		t.Errorf("entry names assertion failed, got %v/%v",
			file.Entries[0].Name, file.Entries[1].Name)
	}
	// The deleted slot still occupies its index.
	if file.Entries[1].Index != 2 {
		t.Errorf("entry index assertion failed, got %v, want %v",
			file.Entries[1].Index, 2)
	}
}

func TestCorruptPathIndicator(t *testing.T) {
	p := newTestPackage("CON ", 8)
	p.addEntry(0, "orphan.bin", 0, 1, 1, 5, 16)
	p.setHashEntry(1, ChainTerminator)

	file, err := NewBytes(p.data, nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if err := file.Parse(); err != ErrCorruptDirectory {
		t.Errorf("corrupt parent assertion failed, got %v, want %v",
			err, ErrCorruptDirectory)
	}
}

func TestFileTableChain(t *testing.T) {
	p := newTestPackage("CON ", 8)
	putLE16(p.data[volumeDescriptorOffset+3:], 2)

	// Fill the first file table block completely so the walk continues into
	// the chained block.
	for slot := 0; slot < FileEntriesPerBlock; slot++ {
		p.addEntry(slot, fmt.Sprintf("f%02d.bin", slot), 0, 0, 0,
			RootPathIndicator, 0)
	}
	p.setHashEntry(0, 4)
	p.putFileEntry(p.blockAddr(4), "tail.bin", 0, 5, 1, RootPathIndicator, 16)
	p.setHashEntry(5, ChainTerminator)

	file := p.parse(t)

	if len(file.Entries) != FileEntriesPerBlock+1 {
		t.Fatalf("entry count assertion failed, got %v, want %v",
			len(file.Entries), FileEntriesPerBlock+1)
	}

	tail := file.Entries[FileEntriesPerBlock]
	if tail.Name != "tail.bin" {
		t.Errorf("tail entry assertion failed, got %v", tail.Name)
	}
	if tail.Index != FileEntriesPerBlock {
		t.Errorf("tail index assertion failed, got %v, want %v",
			tail.Index, FileEntriesPerBlock)
	}
}

func TestWalkOrder(t *testing.T) {
	p := newTestPackage("CON ", 8)
	p.addEntry(0, "dir", fileEntryFlagDirectory, 0, 0, RootPathIndicator, 0)
	p.addEntry(1, "a.bin", 0, 1, 1, 0, 8)
	p.addEntry(2, "b.bin", 0, 2, 1, RootPathIndicator, 8)
	p.setHashEntry(1, ChainTerminator)
	p.setHashEntry(2, ChainTerminator)

	file := p.parse(t)

	var order []string
	file.Tree().Walk(func(e *FileEntry) {
		order = append(order, e.Name)
	})

	want := []string{"dir", "a.bin", "b.bin"}
	if len(order) != len(want) {
		t.Fatalf("walk order assertion failed, got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("walk order assertion failed, got %v, want %v", order, want)
		}
	}
}
