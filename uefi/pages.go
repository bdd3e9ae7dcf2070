// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package uefi

// EFI Boot Service offset for AllocatePages
const allocatePages = 0x28

// EFI_ALLOCATE_TYPE
const (
	AllocateAnyPages = iota
	AllocateMaxAddress
	AllocateAddress
	MaxAllocateType
)

// EFI_MEMORY_TYPE
const (
	EfiReservedMemoryType = iota
	EfiLoaderCode
	EfiLoaderData
	EfiBootServicesCode
	EfiBootServicesData
	EfiRuntimeServicesCode
	EfiRuntimeServicesData
	EfiConventionalMemory
	EfiUnusableMemory
	EfiACPIReclaimMemory
	EfiACPIMemoryNVS
	EfiMemoryMappedIO
	EfiMemoryMappedIOPortSpace
	EfiPalCode
	EfiPersistentMemory
	EfiUnacceptedMemoryType
	EfiMaxMemoryType
)

var memoryTypeNames = []string{
	"Reserved",
	"LoaderCode",
	"LoaderData",
	"BootServicesCode",
	"BootServicesData",
	"RuntimeServicesCode",
	"RuntimeServicesData",
	"Conventional",
	"Unusable",
	"ACPIReclaim",
	"ACPIMemoryNVS",
	"MemoryMappedIO",
	"MemoryMappedIOPortSpace",
	"PalCode",
	"Persistent",
	"Unaccepted",
}

// MemoryTypeName returns the EFI_MEMORY_TYPE name without its Efi prefix.
func MemoryTypeName(t uint32) string {
	if int(t) < len(memoryTypeNames) {
		return memoryTypeNames[t]
	}

	return "OEM"
}

// AllocatePages calls EFI_BOOT_SERVICES.AllocatePages().
func (s *BootServices) AllocatePages(allocateType int, memoryType int, size int, physicalAddress uint64) error {
	status := s.fw.Call(s.base+allocatePages,
		[]uint64{
			uint64(allocateType),
			uint64(memoryType),
			uint64(size+PageSize-1) / PageSize,
			ptrval(&physicalAddress),
		},
	)

	return parseStatus(status)
}
