// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

var Decode = decode

// NewMemoryMapView returns a memory map over the argument buffer, as if
// filled by firmware.
func NewMemoryMapView(buf []byte, mapSize int, descriptorSize int) *MemoryMap {
	return &MemoryMap{
		mapSize:        uint64(mapSize),
		descriptorSize: uint64(descriptorSize),
		buf:            buf,
	}
}
