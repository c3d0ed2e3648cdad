// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"sort"
	"strconv"
	"testing"
)

const (
	testHeaderSize uint32 = 0xA000
	testFirstTable int64  = 0xA000
)

func putBE16(b []byte, v uint16) {
	b[0] = byte(v >> 8)
	b[1] = byte(v)
}

func putBE24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putBE64(b []byte, v uint64) {
	putBE32(b, uint32(v>>32))
	putBE32(b[4:], uint32(v))
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLE24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

// putUTF16BE writes s as NUL-terminated UTF-16 big endian.
func putUTF16BE(b []byte, s string) {
	i := 0
	for _, r := range s {
		b[i] = byte(uint16(r) >> 8)
		b[i+1] = byte(uint16(r))
		i += 2
	}
	b[i] = 0
	b[i+1] = 0
}

// testPackage builds synthetic packages in memory. The layout is the
// single-table schedule with the header occupying 0xA000 bytes, so payload
// block b sits at 0xA000 + (1+b)*0x1000 while b stays below 170, and two
// extra table blocks are interleaved past that.
type testPackage struct {
	data []byte
}

func newTestPackage(magic string, allocated uint32) *testPackage {
	extra := int64(1)
	if allocated > HashesPerTable {
		extra = 3
	}
	size := testFirstTable + (extra+int64(allocated))*BlockSize
	p := &testPackage{data: make([]byte, size)}

	copy(p.data, magic)

	// Certificate material, read only in console-signed packages.
	putBE16(p.data[0x4:], 0x1A8)
	copy(p.data[0x6:], []byte{0xBA, 0xDC, 0x0F, 0xFE, 0xE0})
	copy(p.data[0xB:], "X812979-001")
	putBE32(p.data[0x1C:], uint32(ConsoleTypeRetail))
	copy(p.data[0x20:], "09-18-08")
	putBE32(p.data[0x28:], 0x00010001)

	putBE32(p.data[headerSizeOffset:], testHeaderSize)
	putBE32(p.data[contentTypeOffset:], uint32(ContentTypeSavedGame))
	putBE32(p.data[metadataVersionOffset:], 2)
	putBE64(p.data[contentSizeOffset:], uint64(allocated)*BlockSize)
	putBE32(p.data[mediaIDOffset:], 0x12345678)
	putBE32(p.data[versionOffset:], 0x12003404)
	putBE32(p.data[titleIDOffset:], 0x4D5307E6)

	for i := 0; i < 20; i++ {
		p.data[headerHashOffset+i] = byte(i + 1)
	}

	// License table entry 0: unrestricted.
	putBE64(p.data[licenseTableOffset:], uint64(LicenseTypeUnrestricted)<<48|0x1)

	// Volume descriptor: single-table layout, file table in block 0.
	d := p.data[volumeDescriptorOffset:]
	d[0] = 0x24
	d[2] = 0x01
	putLE16(d[3:], 1)
	putLE24(d[5:], 0)
	for i := 0; i < 20; i++ {
		d[8+i] = byte(0xA0 + i)
	}
	putBE32(d[0x1C:], allocated)

	putBE32(p.data[fileSystemTypeOffset:], uint32(FileSystemSTFS))

	putUTF16BE(p.data[displayNameOffset:], "Halo 3 Save")
	putUTF16BE(p.data[displayDescOffset:], "Campaign checkpoint")
	putUTF16BE(p.data[publisherNameOffset:], "Bungie")
	putUTF16BE(p.data[titleNameOffset:], "Halo 3")

	return p
}

// blockAddr returns the file address of payload block b under the fixture
// layout.
func (p *testPackage) blockAddr(b uint32) int64 {
	if b < HashesPerTable {
		return testFirstTable + (1+int64(b))*BlockSize
	}
	return testFirstTable + (3+int64(b))*BlockSize
}

// hashEntryAddr returns the file address of block b's hash entry under the
// fixture layout.
func (p *testPackage) hashEntryAddr(b uint32) int64 {
	table := testFirstTable
	if b >= HashesPerTable {
		table = testFirstTable + 172*BlockSize
	}
	return table + int64(b%HashesPerTable)*HashEntrySize
}

// setHashEntry fills the hash entry of block b and points its chain at
// next.
func (p *testPackage) setHashEntry(b, next uint32) {
	off := p.hashEntryAddr(b)
	for i := 0; i < 20; i++ {
		p.data[off+int64(i)] = byte(b + uint32(i))
	}
	p.data[off+0x14] = 0x80
	putBE24(p.data[off+0x15:], next)
}

// fillBlock fills payload block b with a deterministic pattern.
func (p *testPackage) fillBlock(b uint32, seed byte) {
	addr := p.blockAddr(b)
	for i := 0; i < BlockSize; i++ {
		p.data[addr+int64(i)] = seed + byte(i)
	}
}

// putFileEntry writes a 64-byte file table record at recordAddr.
func (p *testPackage) putFileEntry(recordAddr int64, name string, flags byte,
	startBlock, blockCount uint32, path uint16, fileSize uint32) {

	rec := p.data[recordAddr : recordAddr+FileEntrySize]
	copy(rec, name)
	rec[0x28] = flags | byte(len(name))
	putLE24(rec[0x29:], blockCount)
	putLE24(rec[0x2F:], startBlock)
	putBE16(rec[0x32:], path)
	putBE32(rec[0x34:], fileSize)
	// 2021-05-15 12:30:10, FAT packed.
	putBE32(rec[0x38:], 0x52AF<<16|0x63C5)
	putBE32(rec[0x3C:], 0x52AF<<16|0x63C5)
}

// addEntry writes a record into the file table block at the given slot.
func (p *testPackage) addEntry(slot int, name string, flags byte,
	startBlock, blockCount uint32, path uint16, fileSize uint32) {

	p.putFileEntry(p.blockAddr(0)+int64(slot)*FileEntrySize, name, flags,
		startBlock, blockCount, path, fileSize)
}

// parse decodes the package and fails the test on error.
func (p *testPackage) parse(t *testing.T) *File {
	t.Helper()

	file, err := NewBytes(p.data, nil)
	if err != nil {
		t.Fatalf("NewBytes failed, reason: %v", err)
	}
	if err := file.Parse(); err != nil {
		t.Fatalf("Parse failed, reason: %v", err)
	}
	return file
}

func TestPackageTypeString(t *testing.T) {

	tests := []struct {
		in  PackageType
		out string
	}{
		{Con, "CON"},
		{Live, "LIVE"},
		{Pirs, "PIRS"},
		{PackageType(9), "?"},
	}

	for _, tt := range tests {
		name := "CasePackageTypeEqualTo_" + strconv.Itoa(int(tt.in))
		t.Run(name, func(t *testing.T) {
			got := tt.in.String()
			if got != tt.out {
				t.Errorf("package type assertion failed, got %v, want %v",
					got, tt.out)
			}
		})
	}
}

func TestContentTypeString(t *testing.T) {

	tests := []struct {
		in  ContentType
		out string
	}{
		{ContentTypeSavedGame, "Saved Game"},
		{ContentTypeArcadeGame, "Arcade Game"},
		{ContentTypeAvatarItem, "Avatar Item"},
		{ContentType(0xdeadbeef), "?"},
	}

	for _, tt := range tests {
		name := "CaseContentTypeEqualTo_" + strconv.Itoa(int(tt.in))
		t.Run(name, func(t *testing.T) {
			got := tt.in.String()
			if got != tt.out {
				t.Errorf("content type assertion failed, got %v, want %v",
					got, tt.out)
			}
		})
	}
}

func TestConsoleTypeFlagsString(t *testing.T) {

	tests := []struct {
		in  ConsoleTypeFlags
		out []string
	}{
		{ConsoleTypeFlagTestKit | ConsoleTypeFlagRecoveryGenerated,
			[]string{"RecoveryGenerated", "TestKit"}},
		{0, []string{}},
	}

	for _, tt := range tests {
		name := "CaseConsoleTypeFlagsEqualTo_" + strconv.Itoa(int(tt.in))
		t.Run(name, func(t *testing.T) {
			got := tt.in.String()
			sort.Strings(got)
			if len(got) != len(tt.out) {
				t.Fatalf("console type flags assertion failed, got %v, want %v",
					got, tt.out)
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Errorf("console type flags assertion failed, got %v, want %v",
						got, tt.out)
				}
			}
		})
	}
}

func TestVersionString(t *testing.T) {

	tests := []struct {
		in  uint32
		out string
	}{
		{0x12003404, "1.2.52.4"},
		{0, "0.0.0.0"},
	}

	for _, tt := range tests {
		name := "CaseVersionEqualTo_" + strconv.Itoa(int(tt.in))
		t.Run(name, func(t *testing.T) {
			got := NewVersion(tt.in).String()
			if got != tt.out {
				t.Errorf("version assertion failed, got %v, want %v",
					got, tt.out)
			}
		})
	}
}
