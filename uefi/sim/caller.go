// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"unicode/utf16"
	"unsafe"

	"github.com/usbarmory/go-preboot/uefi"
)

// Service arguments which are not simulated addresses point to memory owned
// by the caller, which firmware accesses directly. The helpers below are the
// only place where such raw accesses happen.

// maximum length of a caller supplied UTF-16 string
const maxString = 4096

func pointer(addr uint64) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

func load64(addr uint64) uint64 {
	return *(*uint64)(pointer(addr))
}

func store64(addr uint64, val uint64) {
	if addr != 0 {
		*(*uint64)(pointer(addr)) = val
	}
}

func store32(addr uint64, val uint32) {
	if addr != 0 {
		*(*uint32)(pointer(addr)) = val
	}
}

func copyOut(addr uint64, buf []byte) {
	if addr == 0 || len(buf) == 0 {
		return
	}

	copy(unsafe.Slice((*byte)(pointer(addr)), len(buf)), buf)
}

func loadGUID(addr uint64) (g uefi.GUID) {
	if addr != 0 {
		g = *(*uefi.GUID)(pointer(addr))
	}

	return
}

func loadString(addr uint64) string {
	var s []uint16

	for i := uint64(0); i < maxString; i++ {
		r := *(*uint16)(pointer(addr + 2*i))

		if r == 0 {
			break
		}

		s = append(s, r)
	}

	return string(utf16.Decode(s))
}
