// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"fmt"
)

const EFI_LOADED_IMAGE_PROTOCOL_REVISION = 0x00001000

// LoadedImage represents an EFI Loaded Image Protocol instance.
type LoadedImage struct {
	Revision        uint32
	_               uint32
	ParentHandle    Handle
	SystemTable     uint64
	DeviceHandle    Handle
	FilePath        uint64
	_               uint64
	LoadOptionsSize uint32
	_               uint32
	LoadOptions     uint64
	ImageBase       uint64
	ImageSize       uint64
	ImageCodeType   uint32
	ImageDataType   uint32
	Unload          uint64
}

// LoadedImage returns the EFI Loaded Image Protocol instance for the argument
// image handle, its DeviceHandle identifies the device the image was loaded
// from.
func (s *BootServices) LoadedImage(imageHandle Handle) (image *LoadedImage, err error) {
	var addr uint64

	if addr, err = s.GetProtocol(imageHandle, EFI_LOADED_IMAGE_PROTOCOL_GUID); err != nil {
		return
	}

	image = &LoadedImage{}

	if err = decode(s.fw, image, addr); err != nil {
		return nil, err
	}

	if image.Revision != EFI_LOADED_IMAGE_PROTOCOL_REVISION {
		return nil, fmt.Errorf("invalid loaded image protocol revision (%#x)", image.Revision)
	}

	return
}
