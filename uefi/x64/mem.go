// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build tamago && amd64

package x64

import (
	"errors"
	"fmt"
	"runtime"
	_ "unsafe"

	"github.com/usbarmory/go-preboot/uefi"
)

//go:linkname ramStart runtime.ramStart
var ramStart uint64 = 0x00100000 // overridden in x64.s

// RamSize is the runtime memory size, it can be overridden at build time.
//
//go:linkname RamSize runtime.ramSize
var RamSize uint64 = 0x2c000000 // 704MB

// allocateHeap reserves the runtime heap, which follows the image within the
// runtime memory region, as EfiLoaderData pages.
func allocateHeap() (err error) {
	var heapStart uint64
	var memoryMap *uefi.MemoryMap

	if memoryMap, err = UEFI.Boot.MemoryMap(); err != nil {
		return fmt.Errorf("could not get memory map, %w", err)
	}

	start, end := runtime.MemRegion()

	// locate runtime heap offset within UEFI memory allocation
	for _, desc := range memoryMap.Descriptors() {
		if desc.Type == uefi.EfiLoaderCode && desc.PhysicalStart == uint64(start) {
			heapStart = desc.PhysicalEnd()
			break
		}
	}

	if heapStart == 0 {
		return errors.New("could not find heap offset")
	}

	if err = UEFI.Boot.AllocatePages(
		uefi.AllocateAddress,
		uefi.EfiLoaderData,
		int(uint64(end)-heapStart),
		heapStart,
	); err != nil {
		return fmt.Errorf("could not allocate heap at %#x, %w", heapStart, err)
	}

	return
}
