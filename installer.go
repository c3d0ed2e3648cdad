// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

import (
	"time"
)

// FullInstallerMeta carries the version pair of a system or title update
// installer.
type FullInstallerMeta struct {
	InstallerBaseVersion Version `json:"installer_base_version"`
	InstallerVersion     Version `json:"installer_version"`
}

// InstallerProgressCache records how far a previous download of the content
// got. The trailing CAB resume data is kept opaque; no resumption logic is
// implemented.
type InstallerProgressCache struct {
	ResumeState       OnlineContentResumeState `json:"resume_state"`
	CurrentFileIndex  uint32                   `json:"current_file_index"`
	CurrentFileOffset uint64                   `json:"current_file_offset"`
	BytesProcessed    uint64                   `json:"bytes_processed"`
	LastModified      time.Time                `json:"last_modified"`
	CabResumeData     []byte                   `json:"cab_resume_data,omitempty"`
}

// parseInstallerMeta reads the optional installer metadata at the tail of
// the header. It is present when the header, rounded up to a block
// boundary, leaves room for it past the fixed region.
func (f *File) parseInstallerMeta(hdr *XContentHeader) error {

	roundedHeader := roundToBlock(hdr.HeaderSize)
	if roundedHeader < installerMetaOffset ||
		roundedHeader-installerMetaOffset < installerMetaMin {
		return nil
	}

	rawType, err := f.ReadUint32(installerMetaOffset)
	if err != nil {
		return err
	}
	hdr.InstallerType = InstallerType(rawType)

	offset := int64(installerMetaOffset) + 4

	switch hdr.InstallerType {
	case InstallerTypeSystemUpdate, InstallerTypeTitleUpdate:
		base, err := f.ReadUint32(offset)
		if err != nil {
			return err
		}
		version, err := f.ReadUint32(offset + 4)
		if err != nil {
			return err
		}
		hdr.Installer = &FullInstallerMeta{
			InstallerBaseVersion: NewVersion(base),
			InstallerVersion:     NewVersion(version),
		}

	case InstallerTypeSystemUpdateProgressCache,
		InstallerTypeTitleUpdateProgressCache,
		InstallerTypeTitleContentProgressCache:
		cache, err := f.parseProgressCache(offset, int64(roundedHeader))
		if err != nil {
			return err
		}
		hdr.ProgressCache = cache

	case InstallerTypeNone:
		// No installer payload.

	default:
		return &InvalidEnumError{Field: "installer_type", Value: uint64(rawType)}
	}

	return nil
}

// parseProgressCache reads a download progress cache. The resume data spans
// the remainder of the header region.
func (f *File) parseProgressCache(offset, headerEnd int64) (*InstallerProgressCache, error) {
	cache := InstallerProgressCache{}

	rawState, err := f.ReadUint32(offset)
	if err != nil {
		return nil, err
	}
	cache.ResumeState = OnlineContentResumeState(rawState)
	if cache.ResumeState.String() == "?" {
		return nil, &InvalidEnumError{Field: "resume_state", Value: uint64(rawState)}
	}

	if cache.CurrentFileIndex, err = f.ReadUint32(offset + 4); err != nil {
		return nil, err
	}
	if cache.CurrentFileOffset, err = f.ReadUint64(offset + 8); err != nil {
		return nil, err
	}
	if cache.BytesProcessed, err = f.ReadUint64(offset + 16); err != nil {
		return nil, err
	}

	high, err := f.ReadUint32(offset + 24)
	if err != nil {
		return nil, err
	}
	low, err := f.ReadUint32(offset + 28)
	if err != nil {
		return nil, err
	}
	cache.LastModified = filetimeTimestamp(high, low)

	// The remainder of the header region is opaque CAB resume state.
	resumeStart := offset + 32
	if headerEnd > f.size {
		headerEnd = f.size
	}
	if headerEnd > resumeStart {
		cache.CabResumeData, err = f.ReadBytesAtOffset(
			resumeStart, headerEnd-resumeStart)
		if err != nil {
			return nil, err
		}
	}

	return &cache, nil
}
