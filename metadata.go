// Copyright 2022 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stfs

// AvatarAssetInformation describes an avatar item package. Unlike the rest
// of the header this record is little endian.
type AvatarAssetInformation struct {
	Subcategory     AssetSubcategory `json:"subcategory"`
	Colorizable     uint32           `json:"colorizable"`
	GUID            []byte           `json:"guid"`
	SkeletonVersion SkeletonVersion  `json:"skeleton_version"`
}

// parseAvatarAssetInformation reads the avatar asset record at offset.
func (f *File) parseAvatarAssetInformation(offset int64) (*AvatarAssetInformation, error) {
	asset := AvatarAssetInformation{}

	sub, err := f.ReadUint32LE(offset)
	if err != nil {
		return nil, err
	}
	asset.Subcategory = AssetSubcategory(sub)

	if asset.Colorizable, err = f.ReadUint32LE(offset + 4); err != nil {
		return nil, err
	}
	if asset.GUID, err = f.ReadBytesAtOffset(offset+8, 0x10); err != nil {
		return nil, err
	}

	skel, err := f.ReadUint8(offset + 0x18)
	if err != nil {
		return nil, err
	}
	asset.SkeletonVersion = SkeletonVersion(skel)
	if asset.SkeletonVersion.String() == "?" {
		f.logger.Warnf("unknown skeleton version %#x", skel)
	}

	return &asset, nil
}

// MediaInformation describes a video package.
type MediaInformation struct {
	SeriesID      []byte `json:"series_id"`
	SeasonID      []byte `json:"season_id"`
	SeasonNumber  uint16 `json:"season_number"`
	EpisodeNumber uint16 `json:"episode_number"`
}

// parseMediaInformation reads the media record at offset.
func (f *File) parseMediaInformation(offset int64) (*MediaInformation, error) {
	media := MediaInformation{}

	var err error
	if media.SeriesID, err = f.ReadBytesAtOffset(offset, 0x10); err != nil {
		return nil, err
	}
	if media.SeasonID, err = f.ReadBytesAtOffset(offset+0x10, 0x10); err != nil {
		return nil, err
	}
	if media.SeasonNumber, err = f.ReadUint16(offset + 0x20); err != nil {
		return nil, err
	}
	if media.EpisodeNumber, err = f.ReadUint16(offset + 0x22); err != nil {
		return nil, err
	}

	return &media, nil
}
