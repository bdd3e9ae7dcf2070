// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package x64

import (
	"errors"

	"github.com/usbarmory/tamago/dma"
)

// MS x64 calling convention register arguments
const registerArgs = 4

// firmware memory reads are performed in 64-bit aligned regions
const align = 8

// defined in efi.s
func callService(fn uint64, n int, args []uint64) (status uint64)

// Firmware implements the UEFI interop layer for the running image, firmware
// memory is identity mapped.
type Firmware struct{}

// Call invokes the firmware function pointer stored at the fn slot address,
// following the MS x64 calling convention.
func (fw *Firmware) Call(fn uint64, args []uint64) (status uint64) {
	if n := len(args); n < registerArgs {
		args = append(args[:n:n], make([]uint64, registerArgs-n)...)
	}

	return callService(fn, len(args), args)
}

// Read copies firmware owned memory at the argument address.
func (fw *Firmware) Read(addr uint64, buf []byte) (err error) {
	if addr == 0 {
		return errors.New("invalid address")
	}

	n := len(buf)

	if n == 0 {
		return
	}

	r, err := dma.NewRegion(uint(addr), n+(align-n%align)%align, false)

	if err != nil {
		return
	}

	ptr, mem := r.Reserve(n, 0)
	defer r.Release(ptr)

	copy(buf, mem)

	return
}
