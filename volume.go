// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

// StfsVolumeDescriptor describes the block layout of an STFS payload. The
// file table fields are little endian, the block counts big endian.
type StfsVolumeDescriptor struct {
	Size                  uint8  `json:"size"`
	Reserved              uint8  `json:"reserved"`
	BlockSeparation       uint8  `json:"block_separation"`
	FileTableBlockCount   uint16 `json:"file_table_block_count"`
	FileTableBlockNum     uint32 `json:"file_table_block_num"`
	TopHashTableHash      []byte `json:"top_hash_table_hash"`
	AllocatedBlockCount   uint32 `json:"allocated_block_count"`
	UnallocatedBlockCount uint32 `json:"unallocated_block_count"`
}

// parseStfsVolumeDescriptor reads the STFS volume descriptor at offset.
func (f *File) parseStfsVolumeDescriptor(offset int64) (*StfsVolumeDescriptor, error) {
	vd := StfsVolumeDescriptor{}

	var err error
	if vd.Size, err = f.ReadUint8(offset); err != nil {
		return nil, err
	}
	if vd.Reserved, err = f.ReadUint8(offset + 1); err != nil {
		return nil, err
	}
	if vd.BlockSeparation, err = f.ReadUint8(offset + 2); err != nil {
		return nil, err
	}
	if vd.FileTableBlockCount, err = f.ReadUint16LE(offset + 3); err != nil {
		return nil, err
	}
	if vd.FileTableBlockNum, err = f.ReadUint24LE(offset + 5); err != nil {
		return nil, err
	}
	if vd.TopHashTableHash, err = f.ReadBytesAtOffset(offset+8, 0x14); err != nil {
		return nil, err
	}
	if vd.AllocatedBlockCount, err = f.ReadUint32(offset + 0x1C); err != nil {
		return nil, err
	}
	if vd.UnallocatedBlockCount, err = f.ReadUint32(offset + 0x20); err != nil {
		return nil, err
	}

	return &vd, nil
}

// SvodVolumeDescriptor describes the layout of an SVOD payload. It is parsed
// for completeness; SVOD payloads are not decoded past the header.
type SvodVolumeDescriptor struct {
	Size                   uint8  `json:"size"`
	BlockCacheElementCount uint8  `json:"block_cache_element_count"`
	WorkerThreadProcessor  uint8  `json:"worker_thread_processor"`
	WorkerThreadPriority   uint8  `json:"worker_thread_priority"`
	RootHash               []byte `json:"root_hash"`
	Flags                  uint8  `json:"flags"`
	DataBlockCount         uint32 `json:"data_block_count"`
	DataBlockOffset        uint32 `json:"data_block_offset"`
	Reserved               []byte `json:"reserved"`
}

// parseSvodVolumeDescriptor reads the SVOD volume descriptor at offset.
func (f *File) parseSvodVolumeDescriptor(offset int64) (*SvodVolumeDescriptor, error) {
	vd := SvodVolumeDescriptor{}

	var err error
	if vd.Size, err = f.ReadUint8(offset); err != nil {
		return nil, err
	}
	if vd.BlockCacheElementCount, err = f.ReadUint8(offset + 1); err != nil {
		return nil, err
	}
	if vd.WorkerThreadProcessor, err = f.ReadUint8(offset + 2); err != nil {
		return nil, err
	}
	if vd.WorkerThreadPriority, err = f.ReadUint8(offset + 3); err != nil {
		return nil, err
	}
	if vd.RootHash, err = f.ReadBytesAtOffset(offset+4, 0x14); err != nil {
		return nil, err
	}
	if vd.Flags, err = f.ReadUint8(offset + 0x18); err != nil {
		return nil, err
	}
	if vd.DataBlockCount, err = f.ReadUint24(offset + 0x19); err != nil {
		return nil, err
	}
	if vd.DataBlockOffset, err = f.ReadUint24(offset + 0x1C); err != nil {
		return nil, err
	}
	if vd.Reserved, err = f.ReadBytesAtOffset(offset+0x1F, 5); err != nil {
		return nil, err
	}

	return &vd, nil
}

// packageSex derives the layout schedule from the volume descriptor. Bit 0
// of the block separation byte selects between the two schedules.
func packageSex(vd *StfsVolumeDescriptor) (PackageSex, error) {
	if vd == nil {
		return 0, ErrInvalidPackageType
	}

	if (^vd.BlockSeparation)&1 == 0 {
		return PackageSexFemale, nil
	}
	return PackageSexMale, nil
}
