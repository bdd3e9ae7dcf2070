// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sim

import (
	"bytes"
	"encoding/binary"

	"github.com/usbarmory/go-preboot/uefi"
)

// EFI Boot Services offsets
const (
	allocatePages    = 0x028
	getMemoryMap     = 0x038
	handleProtocol   = 0x098
	locateHandle     = 0x0b0
	setWatchdogTimer = 0x100
	openProtocol     = 0x118
	locateProtocol   = 0x140
)

func (f *Firmware) bootServices() uint64 {
	return f.Table(bootServicesSize, map[int]uint64{
		allocatePages:    f.Func("AllocatePages", f.allocatePages),
		getMemoryMap:     f.Func("GetMemoryMap", f.getMemoryMap),
		handleProtocol:   f.Func("HandleProtocol", f.handleProtocol),
		locateHandle:     f.Func("LocateHandle", f.locateHandle),
		setWatchdogTimer: f.Func("SetWatchdogTimer", f.setWatchdogTimer),
		openProtocol:     f.Func("OpenProtocol", f.openProtocol),
		locateProtocol:   f.Func("LocateProtocol", f.locateProtocol),
	})
}

// encodeMemoryMap returns the memory map using the current descriptor
// stride.
func (f *Firmware) encodeMemoryMap() []byte {
	buf := make([]byte, len(f.MemoryMap)*f.DescriptorSize)

	for i, d := range f.MemoryMap {
		b := new(bytes.Buffer)
		binary.Write(b, binary.LittleEndian, &d)

		off := i * f.DescriptorSize
		copy(buf[off:off+f.DescriptorSize], b.Bytes())
	}

	return buf
}

// GetMemoryMap(MemoryMapSize, MemoryMap, MapKey, DescriptorSize, DescriptorVersion)
func (f *Firmware) getMemoryMap(args []uint64) uint64 {
	sizePtr := arg(args, 0)
	buf := arg(args, 1)

	if sizePtr == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	m := f.encodeMemoryMap()
	capacity := load64(sizePtr)

	store64(sizePtr, uint64(len(m)))
	store64(arg(args, 3), uint64(f.DescriptorSize))
	store32(arg(args, 4), f.DescriptorVersion)

	if capacity < uint64(len(m)) || buf == 0 {
		for i := 0; i < f.MapGrowth; i++ {
			f.MemoryMap = append(f.MemoryMap, uefi.MemoryDescriptor{
				Type:          uefi.EfiBootServicesData,
				PhysicalStart: 0x09000000 + uint64(len(f.MemoryMap))*uefi.PageSize,
				NumberOfPages: 1,
			})
			f.MapKey++
		}

		return uint64(uefi.ErrBufferTooSmall)
	}

	copyOut(buf, m)
	store64(arg(args, 2), f.MapKey)

	return uefi.EFI_SUCCESS
}

// AllocatePages(Type, MemoryType, Pages, Memory)
func (f *Firmware) allocatePages(args []uint64) uint64 {
	var addr uint64

	allocation := Allocation{
		Type:       int(arg(args, 0)),
		MemoryType: uint32(arg(args, 1)),
		Pages:      arg(args, 2),
	}

	if allocation.Pages == 0 || arg(args, 3) == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	switch allocation.Type {
	case uefi.AllocateAnyPages:
		addr = ImageBase + ImageSize

		if n := len(f.MemoryMap); n > 0 {
			addr = f.MemoryMap[n-1].PhysicalEnd()
		}
	case uefi.AllocateMaxAddress, uefi.AllocateAddress:
		addr = load64(arg(args, 3))
	default:
		return uint64(uefi.ErrInvalidParameter)
	}

	allocation.Address = addr
	f.Allocations = append(f.Allocations, allocation)

	f.MemoryMap = append(f.MemoryMap, uefi.MemoryDescriptor{
		Type:          allocation.MemoryType,
		PhysicalStart: addr,
		NumberOfPages: allocation.Pages,
		Attribute:     uefi.EFI_MEMORY_WB,
	})
	f.MapKey++

	store64(arg(args, 3), addr)

	return uefi.EFI_SUCCESS
}

// HandleProtocol(Handle, Protocol, Interface)
func (f *Firmware) handleProtocol(args []uint64) uint64 {
	if arg(args, 1) == 0 || arg(args, 2) == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	iface, ok := f.lookup(uefi.Handle(arg(args, 0)), loadGUID(arg(args, 1)))

	if !ok {
		return uint64(uefi.ErrUnsupported)
	}

	store64(arg(args, 2), iface)

	return uefi.EFI_SUCCESS
}

// OpenProtocol(Handle, Protocol, Interface, AgentHandle, ControllerHandle, Attributes)
func (f *Firmware) openProtocol(args []uint64) uint64 {
	req := Open{
		Handle:     uefi.Handle(arg(args, 0)),
		GUID:       loadGUID(arg(args, 1)),
		Agent:      uefi.Handle(arg(args, 3)),
		Controller: uefi.Handle(arg(args, 4)),
		Attributes: uint32(arg(args, 5)),
	}

	if arg(args, 1) == 0 || req.Attributes == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	if req.Attributes != uefi.EFI_OPEN_PROTOCOL_TEST_PROTOCOL && (arg(args, 2) == 0 || req.Agent == 0) {
		return uint64(uefi.ErrInvalidParameter)
	}

	iface, ok := f.lookup(req.Handle, req.GUID)

	if !ok {
		return uint64(uefi.ErrUnsupported)
	}

	f.Opened = append(f.Opened, req)
	store64(arg(args, 2), iface)

	return uefi.EFI_SUCCESS
}

// LocateProtocol(Protocol, Registration, Interface)
func (f *Firmware) locateProtocol(args []uint64) uint64 {
	if arg(args, 0) == 0 || arg(args, 2) == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	guid := loadGUID(arg(args, 0))

	for _, handle := range f.handles {
		if iface, ok := f.lookup(handle, guid); ok {
			store64(arg(args, 2), iface)
			return uefi.EFI_SUCCESS
		}
	}

	store64(arg(args, 2), 0)

	return uint64(uefi.ErrNotFound)
}

// LocateHandle(SearchType, Protocol, SearchKey, BufferSize, Buffer)
func (f *Firmware) locateHandle(args []uint64) uint64 {
	var handles []uefi.Handle

	sizePtr := arg(args, 3)

	if sizePtr == 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	switch arg(args, 0) {
	case uefi.AllHandles:
		handles = f.handles
	case uefi.ByProtocol:
		if arg(args, 1) == 0 {
			return uint64(uefi.ErrInvalidParameter)
		}

		guid := loadGUID(arg(args, 1))

		for _, handle := range f.handles {
			if _, ok := f.lookup(handle, guid); ok {
				handles = append(handles, handle)
			}
		}
	default:
		return uint64(uefi.ErrUnsupported)
	}

	if len(handles) == 0 {
		return uint64(uefi.ErrNotFound)
	}

	required := uint64(len(handles) * 8)
	capacity := load64(sizePtr)

	store64(sizePtr, required)

	if capacity < required || arg(args, 4) == 0 {
		return uint64(uefi.ErrBufferTooSmall)
	}

	buf := make([]byte, required)

	for i, handle := range handles {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(handle))
	}

	copyOut(arg(args, 4), buf)

	return uefi.EFI_SUCCESS
}

// SetWatchdogTimer(Timeout, WatchdogCode, DataSize, WatchdogData)
func (f *Firmware) setWatchdogTimer(args []uint64) uint64 {
	if code := arg(args, 1); code <= 0xffff && arg(args, 0) != 0 {
		return uint64(uefi.ErrInvalidParameter)
	}

	f.WatchdogTimeout = int(arg(args, 0))

	return uefi.EFI_SUCCESS
}
