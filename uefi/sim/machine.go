// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"unicode/utf16"

	"github.com/usbarmory/go-preboot/uefi"
)

// Simulated firmware identification
const (
	Vendor              = "go-preboot simulator"
	FirmwareRevision    = 0x00010000
	SystemTableRevision = 2<<16 | 100
	ImageBase           = 0x00100000
	ImageSize           = 0x00400000
	ACPITable           = 0x000e0000
)

// EFI table sizes
const (
	systemTableSize  = 120
	bootServicesSize = 0x178
	configEntrySize  = 24
)

// Open represents an EFI_BOOT_SERVICES.OpenProtocol() request served by the
// simulator.
type Open struct {
	Handle     uefi.Handle
	GUID       uefi.GUID
	Agent      uefi.Handle
	Controller uefi.Handle
	Attributes uint32
}

// Allocation represents an EFI_BOOT_SERVICES.AllocatePages() request served
// by the simulator.
type Allocation struct {
	Type       int
	MemoryType uint32
	Pages      uint64
	Address    uint64
}

// Machine represents the simulated platform state exposed by [Firmware].
type Machine struct {
	// Addresses of firmware tables and protocol instances
	SystemTable      uint64
	BootServices     uint64
	ConOut           uint64
	ConIn            uint64
	LoadedImage      uint64
	SimpleFileSystem uint64
	Root             uint64

	// Handles
	ImageHandle   uefi.Handle
	DeviceHandle  uefi.Handle
	ConsoleHandle uefi.Handle

	// MemoryMap holds the descriptors returned by GetMemoryMap().
	MemoryMap []uefi.MemoryDescriptor
	// DescriptorSize is the descriptor stride reported by GetMemoryMap().
	DescriptorSize int
	// DescriptorVersion is the descriptor version reported by
	// GetMemoryMap().
	DescriptorVersion uint32
	// MapKey is the current memory map key.
	MapKey uint64
	// MapGrowth is the number of descriptors added to the map each time
	// GetMemoryMap() reports EFI_BUFFER_TOO_SMALL.
	MapGrowth int

	// Output holds the strings written with OutputString().
	Output []string
	// Resets counts Simple Text Output Reset() calls.
	Resets int
	// Keys holds the characters returned by ReadKeyStroke().
	Keys []uint16

	// Opened holds all successful OpenProtocol() requests.
	Opened []Open
	// Allocations holds all successful AllocatePages() requests.
	Allocations []Allocation
	// WatchdogTimeout is the current watchdog timeout in seconds.
	WatchdogTimeout int

	handles   []uefi.Handle
	protocols map[uefi.Handle]map[uefi.GUID]uint64
	files     map[string]uint64
}

// DefaultMemoryMap returns a small x86 memory map.
func DefaultMemoryMap() []uefi.MemoryDescriptor {
	return []uefi.MemoryDescriptor{
		{Type: uefi.EfiBootServicesCode, PhysicalStart: 0x00000000, NumberOfPages: 0x1, Attribute: uefi.EFI_MEMORY_WB},
		{Type: uefi.EfiConventionalMemory, PhysicalStart: 0x00001000, NumberOfPages: 0x9f, Attribute: uefi.EFI_MEMORY_WB},
		{Type: uefi.EfiLoaderCode, PhysicalStart: ImageBase, NumberOfPages: ImageSize / uefi.PageSize, Attribute: uefi.EFI_MEMORY_WB},
		{Type: uefi.EfiConventionalMemory, PhysicalStart: 0x00500000, NumberOfPages: 0x7b00, Attribute: uefi.EFI_MEMORY_WB},
		{Type: uefi.EfiACPIReclaimMemory, PhysicalStart: 0x08000000, NumberOfPages: 0x10, Attribute: uefi.EFI_MEMORY_WB},
		{Type: uefi.EfiRuntimeServicesData, PhysicalStart: 0x08010000, NumberOfPages: 0x20, Attribute: uefi.EFI_MEMORY_WB | uefi.EFI_MEMORY_RUNTIME},
	}
}

// New returns a simulated firmware with a loaded image, a console and a
// boot volume holding the argument files.
func New(files ...string) *Firmware {
	f := newFirmware()

	f.DescriptorSize = 48
	f.DescriptorVersion = 1
	f.MapKey = 0x1000
	f.MemoryMap = DefaultMemoryMap()
	f.WatchdogTimeout = 300

	f.protocols = make(map[uefi.Handle]map[uefi.GUID]uint64)
	f.files = make(map[string]uint64)

	f.ImageHandle = f.Handle()
	f.DeviceHandle = f.Handle()
	f.ConsoleHandle = f.Handle()

	f.ConOut = f.textOutput()
	f.ConIn = f.textInput()
	f.BootServices = f.bootServices()

	f.Root = f.file(uefi.EFI_FILE_PROTOCOL_REVISION)

	for _, name := range files {
		f.files[name] = f.file(uefi.EFI_FILE_PROTOCOL_REVISION)
	}

	f.SystemTable = f.systemTable()
	f.SimpleFileSystem = f.simpleFileSystem(f.Root)
	f.LoadedImage = f.loadedImage(f.DeviceHandle)

	f.Install(f.ImageHandle, uefi.EFI_LOADED_IMAGE_PROTOCOL_GUID, f.LoadedImage)
	f.Install(f.DeviceHandle, uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID, f.SimpleFileSystem)
	f.Install(f.ConsoleHandle, uefi.EFI_SIMPLE_TEXT_OUTPUT_PROTOCOL_GUID, f.ConOut)
	f.Install(f.ConsoleHandle, uefi.EFI_SIMPLE_TEXT_INPUT_PROTOCOL_GUID, f.ConIn)

	return f
}

func (f *Firmware) systemTable() (addr uint64) {
	var vendor []byte

	for _, r := range utf16.Encode([]rune(Vendor)) {
		vendor = append(vendor, byte(r), byte(r>>8))
	}

	vendor = append(vendor, 0, 0)
	vendorAddr := f.Alloc(max(len(vendor), 64))
	f.mustWrite(vendorAddr, vendor)

	config := f.Alloc(configEntrySize)
	f.mustPut(config, &uefi.ConfigurationTable{
		GUID:        uefi.EFI_ACPI_20_TABLE_GUID,
		VendorTable: ACPITable,
	})

	addr = f.Alloc(systemTableSize)
	f.mustPut(addr, &uefi.SystemTable{
		Header: uefi.TableHeader{
			Signature:  0x5453595320494249,
			Revision:   SystemTableRevision,
			HeaderSize: systemTableSize,
		},
		FirmwareVendor:       vendorAddr,
		FirmwareRevision:     FirmwareRevision,
		ConsoleInHandle:      uint64(f.ConsoleHandle),
		ConIn:                f.ConIn,
		ConsoleOutHandle:     uint64(f.ConsoleHandle),
		ConOut:               f.ConOut,
		StandardErrorHandle:  uint64(f.ConsoleHandle),
		StdErr:               f.ConOut,
		BootServices:         f.BootServices,
		NumberOfTableEntries: 1,
		ConfigurationTable:   config,
	})

	return
}

// Install adds a protocol interface to a handle.
func (f *Firmware) Install(handle uefi.Handle, guid uefi.GUID, iface uint64) {
	p, ok := f.protocols[handle]

	if !ok {
		p = make(map[uefi.GUID]uint64)
		f.protocols[handle] = p
		f.handles = append(f.handles, handle)
	}

	p[guid] = iface
}

// AddVolume adds a device handle exposing a further Simple File System
// Protocol instance.
func (f *Firmware) AddVolume() uefi.Handle {
	handle := f.Handle()
	root := f.file(uefi.EFI_FILE_PROTOCOL_REVISION)

	f.Install(handle, uefi.EFI_SIMPLE_FILE_SYSTEM_PROTOCOL_GUID, f.simpleFileSystem(root))

	return handle
}

// Services returns UEFI services initialized against the simulated
// firmware, as an image would at entry.
func (f *Firmware) Services() (s *uefi.Services, err error) {
	s = &uefi.Services{}
	err = s.Init(f, uint64(f.ImageHandle), f.SystemTable)
	return
}

func (f *Firmware) lookup(handle uefi.Handle, guid uefi.GUID) (iface uint64, ok bool) {
	if p, found := f.protocols[handle]; found {
		iface, ok = p[guid]
	}

	return
}

func (f *Firmware) mustWrite(addr uint64, buf []byte) {
	if err := f.Write(addr, buf); err != nil {
		panic(err)
	}
}

func (f *Firmware) mustPut(addr uint64, data any) {
	if err := f.Put(addr, data); err != nil {
		panic(err)
	}
}
