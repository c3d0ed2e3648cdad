// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

// Absolute offsets of the header fields. All multi-byte fields are big
// endian unless noted otherwise.
const (
	certificateOffset      = 0x4
	packageSignatureOffset = 0x4
	licenseTableOffset     = 0x22C
	headerHashOffset       = 0x32C
	headerSizeOffset       = 0x340
	contentTypeOffset      = 0x344
	metadataVersionOffset  = 0x348
	contentSizeOffset      = 0x34C
	mediaIDOffset          = 0x354
	versionOffset          = 0x358
	baseVersionOffset      = 0x35C
	titleIDOffset          = 0x360
	platformOffset         = 0x364
	executableTypeOffset   = 0x365
	discNumberOffset       = 0x366
	discInSetOffset        = 0x367
	savegameIDOffset       = 0x368
	consoleIDOffset        = 0x36C
	profileIDOffset        = 0x371
	volumeDescriptorOffset = 0x379
	dataFileCountOffset    = 0x39D
	dataFileSizeOffset     = 0x3A1
	fileSystemTypeOffset   = 0x3A9
	contentMetadataOffset  = 0x3D9
	deviceIDOffset         = 0x3FD
	displayNameOffset      = 0x411
	displayDescOffset      = 0xD11
	publisherNameOffset    = 0x1611
	titleNameOffset        = 0x1691
	transferFlagsOffset    = 0x1711
	thumbnailSizeOffset    = 0x1712
	titleThumbSizeOffset   = 0x1716
	thumbnailOffset        = 0x171A
	titleThumbnailOffset   = 0x571A
	installerMetaOffset    = 0x971A

	licenseEntryCount   = 16
	displayStringLength = 0x900
	nameStringLength    = 0x80
	installerMetaMin    = 0x15F4
)

// LicenseEntry represents one slot of the 16-entry license table.
type LicenseEntry struct {
	Type  LicenseType `json:"type"`
	Data  uint64      `json:"data"`
	Bits  uint32      `json:"bits"`
	Flags uint32      `json:"flags"`
}

// XContentHeader represents the package header: signing material, license
// table, content metadata, volume descriptor and display strings.
type XContentHeader struct {
	PackageType PackageType `json:"package_type"`

	// Only present in console-signed packages.
	Certificate *Certificate `json:"certificate,omitempty"`

	// Only present in strong-signed packages.
	PackageSignature []byte `json:"package_signature,omitempty"`

	LicenseTable [licenseEntryCount]LicenseEntry `json:"license_table"`

	HeaderHash      []byte      `json:"header_hash"`
	HeaderSize      uint32      `json:"header_size"`
	ContentType     ContentType `json:"content_type"`
	MetadataVersion uint32      `json:"metadata_version"`
	ContentSize     uint64      `json:"content_size"`
	MediaID         uint32      `json:"media_id"`
	Version         Version     `json:"version"`
	BaseVersion     Version     `json:"base_version"`
	TitleID         uint32      `json:"title_id"`
	Platform        uint8       `json:"platform"`
	ExecutableType  uint8       `json:"executable_type"`
	DiscNumber      uint8       `json:"disc_number"`
	DiscInSet       uint8       `json:"disc_in_set"`
	SavegameID      uint32      `json:"savegame_id"`
	ConsoleID       []byte      `json:"console_id"`
	ProfileID       []byte      `json:"profile_id"`

	FileSystemType   FileSystemType        `json:"file_system_type"`
	VolumeDescriptor *StfsVolumeDescriptor `json:"volume_descriptor,omitempty"`
	SvodDescriptor   *SvodVolumeDescriptor `json:"svod_descriptor,omitempty"`

	DataFileCount        uint32 `json:"data_file_count"`
	DataFileCombinedSize uint64 `json:"data_file_combined_size"`
	DeviceID             []byte `json:"device_id"`

	DisplayName        string `json:"display_name"`
	DisplayDescription string `json:"display_description"`
	PublisherName      string `json:"publisher_name"`
	TitleName          string `json:"title_name"`

	TransferFlags uint8 `json:"transfer_flags"`

	ThumbnailSize      uint32 `json:"thumbnail_size"`
	Thumbnail          []byte `json:"thumbnail,omitempty"`
	TitleThumbnailSize uint32 `json:"title_thumbnail_size"`
	TitleThumbnail     []byte `json:"title_thumbnail,omitempty"`

	// Content-type dependent metadata.
	AvatarAsset *AvatarAssetInformation `json:"avatar_asset,omitempty"`
	Media       *MediaInformation       `json:"media,omitempty"`

	// Optional installer metadata at the tail of the header.
	InstallerType InstallerType           `json:"installer_type,omitempty"`
	Installer     *FullInstallerMeta      `json:"installer,omitempty"`
	ProgressCache *InstallerProgressCache `json:"progress_cache,omitempty"`
}

// parseHeader reads the fixed-offset header region.
func (f *File) parseHeader() error {

	magic, err := f.ReadBytesAtOffset(0, 4)
	if err != nil {
		return err
	}

	hdr := XContentHeader{}
	switch string(magic) {
	case ConMagic:
		hdr.PackageType = Con
	case LiveMagic:
		hdr.PackageType = Live
	case PirsMagic:
		hdr.PackageType = Pirs
	default:
		return ErrInvalidHeader
	}

	// The certificate exists only in console-signed packages; strong-signed
	// packages carry a bare signature blob at the same location.
	if hdr.PackageType == Con {
		cert, err := f.parseCertificate(certificateOffset)
		if err != nil {
			return err
		}
		hdr.Certificate = cert
	} else {
		sig, err := f.ReadBytesAtOffset(packageSignatureOffset, 0x100)
		if err != nil {
			return err
		}
		hdr.PackageSignature = sig
	}

	if err := f.parseLicenseTable(&hdr); err != nil {
		return err
	}

	if hdr.HeaderHash, err = f.ReadBytesAtOffset(headerHashOffset, 0x14); err != nil {
		return err
	}
	if hdr.HeaderSize, err = f.ReadUint32(headerSizeOffset); err != nil {
		return err
	}

	ct, err := f.ReadUint32(contentTypeOffset)
	if err != nil {
		return err
	}
	hdr.ContentType = ContentType(ct)
	if hdr.ContentType.String() == "?" {
		f.logger.Warnf("unknown content type %#x", ct)
	}

	if hdr.MetadataVersion, err = f.ReadUint32(metadataVersionOffset); err != nil {
		return err
	}
	if hdr.ContentSize, err = f.ReadUint64(contentSizeOffset); err != nil {
		return err
	}
	if hdr.MediaID, err = f.ReadUint32(mediaIDOffset); err != nil {
		return err
	}

	rawVersion, err := f.ReadUint32(versionOffset)
	if err != nil {
		return err
	}
	hdr.Version = NewVersion(rawVersion)

	rawBase, err := f.ReadUint32(baseVersionOffset)
	if err != nil {
		return err
	}
	hdr.BaseVersion = NewVersion(rawBase)

	if hdr.TitleID, err = f.ReadUint32(titleIDOffset); err != nil {
		return err
	}
	if hdr.Platform, err = f.ReadUint8(platformOffset); err != nil {
		return err
	}
	if hdr.ExecutableType, err = f.ReadUint8(executableTypeOffset); err != nil {
		return err
	}
	if hdr.DiscNumber, err = f.ReadUint8(discNumberOffset); err != nil {
		return err
	}
	if hdr.DiscInSet, err = f.ReadUint8(discInSetOffset); err != nil {
		return err
	}
	if hdr.SavegameID, err = f.ReadUint32(savegameIDOffset); err != nil {
		return err
	}
	if hdr.ConsoleID, err = f.ReadBytesAtOffset(consoleIDOffset, 5); err != nil {
		return err
	}
	if hdr.ProfileID, err = f.ReadBytesAtOffset(profileIDOffset, 8); err != nil {
		return err
	}

	fsType, err := f.ReadUint32(fileSystemTypeOffset)
	if err != nil {
		return err
	}
	hdr.FileSystemType = FileSystemType(fsType)

	switch hdr.FileSystemType {
	case FileSystemSTFS:
		vd, err := f.parseStfsVolumeDescriptor(volumeDescriptorOffset)
		if err != nil {
			return err
		}
		hdr.VolumeDescriptor = vd
	case FileSystemSVOD:
		vd, err := f.parseSvodVolumeDescriptor(volumeDescriptorOffset)
		if err != nil {
			return err
		}
		hdr.SvodDescriptor = vd
	case FileSystemFATX:
		// Recognized but not decoded.
	default:
		return &InvalidEnumError{Field: "file_system_type", Value: uint64(fsType)}
	}

	if hdr.DataFileCount, err = f.ReadUint32(dataFileCountOffset); err != nil {
		return err
	}
	if hdr.DataFileCombinedSize, err = f.ReadUint64(dataFileSizeOffset); err != nil {
		return err
	}

	// Content-type dependent metadata region.
	switch hdr.ContentType {
	case ContentTypeAvatarItem:
		asset, err := f.parseAvatarAssetInformation(contentMetadataOffset)
		if err != nil {
			return err
		}
		hdr.AvatarAsset = asset
	case ContentTypeVideo:
		media, err := f.parseMediaInformation(contentMetadataOffset)
		if err != nil {
			return err
		}
		hdr.Media = media
	}

	if hdr.DeviceID, err = f.ReadBytesAtOffset(deviceIDOffset, 0x14); err != nil {
		return err
	}

	if hdr.DisplayName, err = f.readUTF16StringAtOffset(
		displayNameOffset, displayStringLength); err != nil {
		return err
	}
	if hdr.DisplayDescription, err = f.readUTF16StringAtOffset(
		displayDescOffset, displayStringLength); err != nil {
		return err
	}
	if hdr.PublisherName, err = f.readUTF16StringAtOffset(
		publisherNameOffset, nameStringLength); err != nil {
		return err
	}
	if hdr.TitleName, err = f.readUTF16StringAtOffset(
		titleNameOffset, nameStringLength); err != nil {
		return err
	}

	if hdr.TransferFlags, err = f.ReadUint8(transferFlagsOffset); err != nil {
		return err
	}

	if err := f.parseThumbnails(&hdr); err != nil {
		return err
	}

	if err := f.parseInstallerMeta(&hdr); err != nil {
		return err
	}

	f.Header = hdr
	return nil
}

// parseLicenseTable reads the 16-entry license table. Each entry packs the
// license type into the top 16 bits of a 64-bit word, the remaining 48 bits
// carry licensing data.
func (f *File) parseLicenseTable(hdr *XContentHeader) error {
	offset := int64(licenseTableOffset)
	for i := 0; i < licenseEntryCount; i++ {
		packed, err := f.ReadUint64(offset)
		if err != nil {
			return err
		}

		entry := LicenseEntry{
			Type: LicenseType(packed >> 48),
			Data: packed & 0xFFFFFFFFFFFF,
		}
		if entry.Bits, err = f.ReadUint32(offset + 8); err != nil {
			return err
		}
		if entry.Flags, err = f.ReadUint32(offset + 12); err != nil {
			return err
		}

		if entry.Type.String() == "?" {
			f.logger.Warnf("license entry %d has unknown type %#x",
				i, uint16(entry.Type))
		}

		hdr.LicenseTable[i] = entry
		offset += 16
	}
	return nil
}

// parseThumbnails reads the two thumbnail blobs, bounded by their declared
// sizes.
func (f *File) parseThumbnails(hdr *XContentHeader) error {
	var err error
	if hdr.ThumbnailSize, err = f.ReadUint32(thumbnailSizeOffset); err != nil {
		return err
	}
	if hdr.TitleThumbnailSize, err = f.ReadUint32(titleThumbSizeOffset); err != nil {
		return err
	}

	if hdr.ThumbnailSize > maxThumbnailSize ||
		hdr.TitleThumbnailSize > maxThumbnailSize {
		return ErrInvalidHeader
	}

	if hdr.ThumbnailSize > 0 {
		hdr.Thumbnail, err = f.ReadBytesAtOffset(
			thumbnailOffset, int64(hdr.ThumbnailSize))
		if err != nil {
			return err
		}
	}
	if hdr.TitleThumbnailSize > 0 {
		hdr.TitleThumbnail, err = f.ReadBytesAtOffset(
			titleThumbnailOffset, int64(hdr.TitleThumbnailSize))
		if err != nil {
			return err
		}
	}
	return nil
}
