// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/sirupsen/logrus"
)

// A File represents an open STFS package.
type File struct {
	Header  XContentHeader `json:"header"`
	Sex     PackageSex     `json:"sex"`
	Entries []*FileEntry   `json:"entries,omitempty"`

	root     *FileEntry
	geo      hashGeometry
	topTable hashTable
	data     mmap.MMap
	size     int64
	f        *os.File
	opts     *Options
	logger   logrus.FieldLogger
}

// Options for parsing.
type Options struct {

	// Parse only the package header and do not walk the file table, by
	// default (false).
	HeaderOnly bool

	// A custom logger.
	Logger logrus.FieldLogger
}

// New instantiates a file instance with options given a file name.
func New(name string, opts *Options) (*File, error) {

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	// Memory map the file instead of using read/write.
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}

	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}
	file.initLogger()

	file.data = data
	file.size = int64(len(file.data))
	file.f = f
	return &file, nil
}

// NewBytes instantiates a file instance with options given a memory buffer.
func NewBytes(data []byte, opts *Options) (*File, error) {

	file := File{}
	if opts != nil {
		file.opts = opts
	} else {
		file.opts = &Options{}
	}
	file.initLogger()

	file.data = data
	file.size = int64(len(file.data))
	return &file, nil
}

func (f *File) initLogger() {
	if f.opts.Logger != nil {
		f.logger = f.opts.Logger
		return
	}

	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	f.logger = l
}

// Close closes the File.
func (f *File) Close() error {
	if f.f != nil {
		_ = f.data.Unmap()
		return f.f.Close()
	}
	return nil
}

// Parse performs the file parsing for an STFS package.
func (f *File) Parse() error {

	// Check for the smallest possible package: the fixed header region.
	if f.size < fixedHeaderSize {
		return ErrInvalidPackageSize
	}

	// Parse the header: magic, certificate or signature, license table,
	// content metadata, volume descriptor, display strings, thumbnails and
	// the optional installer metadata.
	if err := f.parseHeader(); err != nil {
		return err
	}

	// Only STFS payloads have a decodable block layout. SVOD and FATX
	// packages stop at the header.
	if f.Header.FileSystemType != FileSystemSTFS {
		f.logger.Debugf("filesystem %s is not decoded past the header",
			f.Header.FileSystemType)
		return nil
	}

	sex, err := packageSex(f.Header.VolumeDescriptor)
	if err != nil {
		return err
	}
	f.Sex = sex

	geo, err := newHashGeometry(f.Header.VolumeDescriptor, f.Header.HeaderSize, sex)
	if err != nil {
		return err
	}
	f.geo = geo

	if f.geo.firstTableAddress > f.size {
		return ErrInvalidPackageSize
	}

	if err := f.readTopTable(); err != nil {
		return err
	}

	// In header-only mode, do not walk the file table.
	if f.opts.HeaderOnly {
		return nil
	}

	if err := f.parseFileTable(); err != nil {
		return err
	}

	return f.buildTree()
}

// Tree returns the root of the decoded directory tree. The root is a
// synthetic directory entry; it is nil until Parse succeeds on an STFS
// package parsed without HeaderOnly.
func (f *File) Tree() *FileEntry {
	return f.root
}
