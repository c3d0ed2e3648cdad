// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

// hashGeometry carries the per-package constants that govern block
// addressing: the layout schedule, the table strides, the position of the
// first table and the depth of the hash table tree.
type hashGeometry struct {
	sex                 PackageSex
	blockStep           [2]uint32
	blockSeparation     uint8
	firstTableAddress   int64
	rootLevel           int
	allocatedBlockCount uint32
	tablesPerLevel      [3]uint32
}

// newHashGeometry derives the addressing constants from the volume
// descriptor. The payload begins at the header rounded up to a block
// boundary; the root level is the smallest table level able to cover the
// allocated block count.
func newHashGeometry(vd *StfsVolumeDescriptor, headerSize uint32,
	sex PackageSex) (hashGeometry, error) {

	if vd == nil {
		return hashGeometry{}, ErrInvalidPackageType
	}

	g := hashGeometry{
		sex:                 sex,
		blockStep:           sex.blockStep(),
		blockSeparation:     vd.BlockSeparation,
		firstTableAddress:   int64(roundToBlock(headerSize)),
		allocatedBlockCount: vd.AllocatedBlockCount,
	}

	g.rootLevel = -1
	for level := 0; level < len(hashesPerLevel); level++ {
		if g.allocatedBlockCount <= hashesPerLevel[level] {
			g.rootLevel = level
			break
		}
	}
	if g.rootLevel == -1 {
		return hashGeometry{}, ErrInvalidHeader
	}

	for level := 0; level < len(hashesPerLevel); level++ {
		g.tablesPerLevel[level] = ceilDiv(g.allocatedBlockCount,
			hashesPerLevel[level])
	}

	return g, nil
}

// shift returns the layout shift amount: 0 for single tables, 1 for
// mirrored pairs.
func (g *hashGeometry) shift() uint32 {
	return uint32(g.sex)
}

// rootTableBlock returns the payload block number of the root hash table.
func (g *hashGeometry) rootTableBlock() uint32 {
	switch g.rootLevel {
	case 0:
		return 0
	case 1:
		return g.blockStep[0]
	default:
		return g.blockStep[1]
	}
}

// topTableAddress returns the file address of the live copy of the root
// hash table. Bit 1 of the block separation byte selects between the two
// mirrored copies.
func (g *hashGeometry) topTableAddress() int64 {
	return int64(g.rootTableBlock())<<12 + g.firstTableAddress +
		int64(g.blockSeparation&2)<<11
}

// topTableEntryCount returns the number of entries the root table holds.
func (g *hashGeometry) topTableEntryCount() uint32 {
	return ceilDiv(g.allocatedBlockCount, dataBlocksPerLevel[g.rootLevel])
}
