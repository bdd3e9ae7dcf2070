// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"sync/atomic"
	"unsafe"
)

// Firmware represents the interop layer towards UEFI firmware, all foreign
// calls and firmware memory accesses are performed through it.
type Firmware interface {
	// Call invokes the firmware function pointer stored at the fn slot
	// address, following the UEFI calling convention, and returns its
	// EFI_STATUS.
	Call(fn uint64, args []uint64) (status uint64)

	// Read copies firmware owned memory at the argument address.
	Read(addr uint64, buf []byte) error
}

var escape atomic.Pointer[any]

// This function helps preparing Firmware.Call arguments, allowing a single
// call for all EFI services.
//
// Obtaining a pointer in this fashion is typically unsafe. However, as
// arguments are prepared right before invoking the firmware, and the pointed
// variables are referenced after the call returns, it is considered safe as
// it is identical as having *uint64 as call prototype.
func ptrval(ptr any) uint64 {
	var p unsafe.Pointer

	// pointed variables must not live on a goroutine stack, which might
	// move while firmware holds their address
	escape.Store(&ptr)

	switch v := ptr.(type) {
	case *uint64:
		p = unsafe.Pointer(v)
	case *uint32:
		p = unsafe.Pointer(v)
	case *uint16:
		p = unsafe.Pointer(v)
	case *byte:
		p = unsafe.Pointer(v)
	case *Handle:
		p = unsafe.Pointer(v)
	case *GUID:
		p = unsafe.Pointer(v)
	case *InputKey:
		p = unsafe.Pointer(v)
	default:
		panic("internal error, invalid ptrval")
	}

	return uint64(uintptr(p))
}
