// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

import (
	"errors"
	"fmt"

	"github.com/u-root/u-root/pkg/boot/bzimage"
)

// EFI Boot Services offset for GetMemoryMap
const getMemoryMap = 0x38

// EFI_MEMORY_DESCRIPTOR size, firmware may report a larger stride.
const descriptorSize = 40

// MemoryMapSize is the initial buffer size used by [BootServices.MemoryMap].
var MemoryMapSize = 4 * PageSize

// Advanced Configuration and Power Interface Specification (ACPI)
// Version 6.0 - Table 15-312 Address Range Types12
const AddressRangePersistentMemory = 7

// PageSize represents the EFI page size in bytes
const PageSize = 4096 // 4 KiB

// EFI_MEMORY_DESCRIPTOR attributes
const (
	EFI_MEMORY_UC      = 0x0000000000000001
	EFI_MEMORY_WC      = 0x0000000000000002
	EFI_MEMORY_WT      = 0x0000000000000004
	EFI_MEMORY_WB      = 0x0000000000000008
	EFI_MEMORY_UCE     = 0x0000000000000010
	EFI_MEMORY_WP      = 0x0000000000001000
	EFI_MEMORY_RP      = 0x0000000000002000
	EFI_MEMORY_XP      = 0x0000000000004000
	EFI_MEMORY_NV      = 0x0000000000008000
	EFI_MEMORY_RO      = 0x0000000000020000
	EFI_MEMORY_RUNTIME = 0x8000000000000000
)

// MemoryDescriptor represents an EFI Memory Descriptor
type MemoryDescriptor struct {
	Type          uint32
	_             uint32
	PhysicalStart uint64
	VirtualStart  uint64
	NumberOfPages uint64
	Attribute     uint64
}

// PhysicalEnd returns the descriptor physical end address.
func (d *MemoryDescriptor) PhysicalEnd() uint64 {
	return d.PhysicalStart + d.NumberOfPages*PageSize
}

// Size returns the descriptor size.
func (d *MemoryDescriptor) Size() int {
	return int(d.NumberOfPages * PageSize)
}

// E820 converts an EFI Memory Map entry to an x86 E820 one.
func (d *MemoryDescriptor) E820() bzimage.E820Entry {
	e := bzimage.E820Entry{
		Addr: d.PhysicalStart,
		Size: d.NumberOfPages * PageSize,
	}

	// Unified Extensible Firmware Interface (UEFI) Specification
	// Version 2.10 - Table 7.10: Memory Type Usage after ExitBootServices()
	switch d.Type {
	case EfiLoaderCode, EfiLoaderData, EfiBootServicesCode, EfiBootServicesData, EfiConventionalMemory:
		e.MemType = bzimage.RAM
	case EfiPersistentMemory:
		e.MemType = AddressRangePersistentMemory
	case EfiACPIReclaimMemory:
		e.MemType = bzimage.ACPI
	case EfiACPIMemoryNVS:
		e.MemType = bzimage.NVS
	default:
		e.MemType = bzimage.Reserved
	}

	return e
}

// MemoryMap represents an EFI Memory Map, as returned by a single
// GetMemoryMap() call. The descriptor stride is pinned to the one reported by
// that call and never changes.
type MemoryMap struct {
	mapSize           uint64
	mapKey            uint64
	descriptorSize    uint64
	descriptorVersion uint32

	buf []byte
}

// Size returns the number of bytes filled by firmware.
func (m *MemoryMap) Size() int {
	return int(m.mapSize)
}

// Key returns the map key, it is stale as soon as any allocation takes place
// after the call.
func (m *MemoryMap) Key() uint64 {
	return m.mapKey
}

// DescriptorSize returns the descriptor stride reported by firmware.
func (m *MemoryMap) DescriptorSize() int {
	return int(m.descriptorSize)
}

// DescriptorVersion returns the descriptor format version.
func (m *MemoryMap) DescriptorVersion() uint32 {
	return m.descriptorVersion
}

// Len returns the number of descriptors within the map.
func (m *MemoryMap) Len() int {
	if m.descriptorSize == 0 {
		return 0
	}

	return int((m.mapSize + m.descriptorSize - 1) / m.descriptorSize)
}

// Descriptor returns the descriptor at the argument index, the boolean
// result reports whether the index falls within the filled map size. Bytes
// past the filled size are never read.
func (m *MemoryMap) Descriptor(i int) (d *MemoryDescriptor, ok bool) {
	if i < 0 || i >= m.Len() {
		return nil, false
	}

	off := uint64(i) * m.descriptorSize
	end := min(off+descriptorSize, off+m.descriptorSize, m.mapSize)

	var buf [descriptorSize]byte
	copy(buf[:], m.buf[off:end])

	d = &MemoryDescriptor{}

	if err := unmarshalBinary(buf[:], d); err != nil {
		return nil, false
	}

	return d, true
}

// Descriptors returns all descriptors within the map.
func (m *MemoryMap) Descriptors() (descriptors []*MemoryDescriptor) {
	for i := 0; i < m.Len(); i++ {
		if d, ok := m.Descriptor(i); ok {
			descriptors = append(descriptors, d)
		}
	}

	return
}

// GetMemoryMap calls EFI_BOOT_SERVICES.GetMemoryMap() once, using the
// argument buffer. A buffer too small for the current map results in a
// [*SizeError] reporting the required size, the call is never retried.
func (s *BootServices) GetMemoryMap(buf []byte) (m *MemoryMap, err error) {
	var addr uint64

	if len(buf) > 0 {
		addr = ptrval(&buf[0])
	}

	m = &MemoryMap{
		mapSize: uint64(len(buf)),
		buf:     buf,
	}

	status := s.fw.Call(s.base+getMemoryMap,
		[]uint64{
			ptrval(&m.mapSize),
			addr,
			ptrval(&m.mapKey),
			ptrval(&m.descriptorSize),
			ptrval(&m.descriptorVersion),
		},
	)

	if Status(status) == ErrBufferTooSmall {
		return nil, &SizeError{
			Required: int(m.mapSize),
			Capacity: len(buf),
		}
	}

	if err = parseStatus(status); err != nil {
		return nil, err
	}

	switch {
	case m.mapSize > uint64(len(buf)):
		return nil, fmt.Errorf("invalid memory map size (%d > %d)", m.mapSize, len(buf))
	case m.mapSize > 0 && m.descriptorSize == 0:
		return nil, errors.New("invalid memory descriptor size")
	}

	return
}

// MemoryMap returns the current EFI Memory Map, negotiating the buffer size
// with firmware starting from MemoryMapSize.
func (s *BootServices) MemoryMap() (*MemoryMap, error) {
	return s.NegotiateMemoryMap(MemoryMapSize)
}

// NegotiateMemoryMap returns the current EFI Memory Map, negotiating the
// buffer size with firmware starting from the argument size.
func (s *BootServices) NegotiateMemoryMap(size int) (*MemoryMap, error) {
	// allocating a larger buffer might add descriptors to the map
	slack := 8 * descriptorSize

	return Negotiate(size, slack, func(n int) (*MemoryMap, error) {
		return s.GetMemoryMap(make([]byte, n))
	})
}
