// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

// HashEntry represents one level-0 hash table entry: the hash of the block
// it covers (kept opaque), a status byte and the number of the next block in
// the owning file's chain.
type HashEntry struct {
	BlockHash []byte `json:"block_hash"`
	Status    uint8  `json:"status"`
	NextBlock uint32 `json:"next_block"`
}

// hashEntryStatusMirror marks which of the two mirrored child tables is
// live.
const hashEntryStatusMirror = 0x40

// hashTable is a decoded run of hash entries.
type hashTable struct {
	addressInFile int64
	entries       []HashEntry
}

// tableIndex returns the payload block number of the level-0 hash table
// that covers block b.
func (g *hashGeometry) tableIndex(b uint32) uint32 {
	if b < HashesPerTable {
		return 0
	}

	n := (b / HashesPerTable) * g.blockStep[0]
	n += ((b / hashesPerLevel[1]) + 1) << g.shift()
	if b/hashesPerLevel[1] == 0 {
		return n
	}
	return n + 1<<g.shift()
}

// level1TableIndex returns the payload block number of the level-1 hash
// table that covers block b.
func (g *hashGeometry) level1TableIndex(b uint32) uint32 {
	if b < hashesPerLevel[1] {
		return g.blockStep[0]
	}
	return 1<<g.shift() + (b/hashesPerLevel[1])*g.blockStep[1]
}

// blockToBacking maps a logical block number to its payload block number,
// accounting for the hash tables interleaved with the data.
func (g *hashGeometry) blockToBacking(b uint32) uint32 {
	base := ((b+HashesPerTable)/HashesPerTable)<<g.shift() + b
	if b < HashesPerTable {
		return base
	}
	if b < hashesPerLevel[1] {
		return base + ((base+hashesPerLevel[1])/hashesPerLevel[1])<<g.shift()
	}
	return 1<<g.shift() + base +
		((b+hashesPerLevel[1])/hashesPerLevel[1])<<g.shift()
}

// blockToAddr maps a logical block number to the file address of its
// payload.
func (g *hashGeometry) blockToAddr(b uint32) int64 {
	return int64(g.blockToBacking(b))<<12 + g.firstTableAddress
}

// BlockToAddr returns the file address of the payload of logical block b.
func (f *File) BlockToAddr(b uint32) (int64, error) {
	if b >= f.geo.allocatedBlockCount {
		return 0, ErrBlockOutOfRange
	}

	addr := f.geo.blockToAddr(b)
	if addr+BlockSize > f.size {
		return 0, ErrOutsideBoundary
	}
	return addr, nil
}

// hashEntryAddr returns the file address of the level-0 hash entry that
// describes block b. For deeper trees the live mirror of the covering
// level-0 table is selected by walking the parent entries down from the
// root.
func (f *File) hashEntryAddr(b uint32) (int64, error) {
	g := &f.geo

	addr := int64(g.tableIndex(b))<<12 + g.firstTableAddress +
		int64(b%HashesPerTable)*HashEntrySize

	switch g.rootLevel {
	case 0:
		return addr, nil

	case 1:
		return addr + int64(g.blockSeparation&2)<<11, nil

	default:
		// The top-level entry selects the live level-1 table; its entry in
		// turn selects the live level-0 table.
		topIndex := b / hashesPerLevel[1]
		if int(topIndex) >= len(f.topTable.entries) {
			return 0, ErrBlockOutOfRange
		}

		l1Addr := int64(g.level1TableIndex(b))<<12 + g.firstTableAddress +
			int64(f.topTable.entries[topIndex].Status&hashEntryStatusMirror)<<6
		l1Index := int64(b%hashesPerLevel[1]) / HashesPerTable

		status, err := f.ReadUint8(l1Addr + l1Index*HashEntrySize + 0x14)
		if err != nil {
			return 0, err
		}
		return addr + int64(status&hashEntryStatusMirror)<<6, nil
	}
}

// HashEntry returns the level-0 hash entry describing block b.
func (f *File) HashEntry(b uint32) (HashEntry, error) {
	if b >= f.geo.allocatedBlockCount {
		return HashEntry{}, ErrBlockOutOfRange
	}

	addr, err := f.hashEntryAddr(b)
	if err != nil {
		return HashEntry{}, err
	}
	return f.readHashEntryAt(addr)
}

// readHashEntryAt decodes the hash entry at the given file address.
func (f *File) readHashEntryAt(addr int64) (HashEntry, error) {
	entry := HashEntry{}

	var err error
	if entry.BlockHash, err = f.ReadBytesAtOffset(addr, 0x14); err != nil {
		return HashEntry{}, err
	}
	if entry.Status, err = f.ReadUint8(addr + 0x14); err != nil {
		return HashEntry{}, err
	}
	if entry.NextBlock, err = f.ReadUint24(addr + 0x15); err != nil {
		return HashEntry{}, err
	}

	return entry, nil
}

// readTopTable loads the live copy of the root hash table.
func (f *File) readTopTable() error {
	table := hashTable{
		addressInFile: f.geo.topTableAddress(),
	}

	count := f.geo.topTableEntryCount()
	if count > HashesPerTable {
		return ErrInvalidHeader
	}

	table.entries = make([]HashEntry, count)
	for i := uint32(0); i < count; i++ {
		entry, err := f.readHashEntryAt(
			table.addressInFile + int64(i)*HashEntrySize)
		if err != nil {
			return err
		}
		table.entries[i] = entry
	}

	f.topTable = table
	return nil
}
